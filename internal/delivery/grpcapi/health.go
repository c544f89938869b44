package grpcapi

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
)

const serviceName = "rebate.Engine"

// ExchangeServiceName is the health-check service name reported for an exchange.
func ExchangeServiceName(exchange domain.Exchange) string {
	return serviceName + "/" + string(exchange)
}

// HealthService exposes the standard gRPC health protocol. The overall
// service is SERVING while the process runs; each exchange follows the
// result of the latest connectivity check.
type HealthService struct {
	server *health.Server
}

func NewHealthService(exchanges []domain.Exchange) *HealthService {
	server := health.NewServer()
	server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	server.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	for _, exchange := range exchanges {
		server.SetServingStatus(ExchangeServiceName(exchange), grpc_health_v1.HealthCheckResponse_UNKNOWN)
	}
	return &HealthService{server: server}
}

func (h *HealthService) Register(grpcServer *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcServer, h.server)
}

func (h *HealthService) SetExchangeStatus(exchange domain.Exchange, up bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if up {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(ExchangeServiceName(exchange), status)
}

// Shutdown flips every service to NOT_SERVING ahead of GracefulStop.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthService) Server() grpc_health_v1.HealthServer {
	return h.server
}
