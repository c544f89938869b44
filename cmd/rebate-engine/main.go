package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/LavaJover/shvark-rebate-service/internal/app/setup"
	"github.com/LavaJover/shvark-rebate-service/internal/config"
	applog "github.com/LavaJover/shvark-rebate-service/internal/infrastructure/logger"
)

func main() {
	runOnce := flag.Bool("run-once", false, "run the daily sync and notify job once and exit")
	flag.Parse()

	// Reading config
	cfg := config.MustLoad()
	logger := applog.New(cfg.LogConfig, cfg.Env)

	deps, err := setup.InitializeDependencies(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}
	defer deps.Close()

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		log.Fatalf("failed to init usecases: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *runOnce {
		if err := uc.Scheduler.ManualSync(ctx); err != nil {
			logger.Error("manual sync failed", "error", err)
			stop()
			deps.Close()
			os.Exit(1)
		}
		logger.Info("manual sync finished")
		return
	}

	// Metrics
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Metrics.Host, cfg.Metrics.Port),
		Handler:           promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// Health
	grpcServer := grpc.NewServer()
	deps.Health.Register(grpcServer)
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go func() {
		logger.Info("gRPC health server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server failed", "error", err)
		}
	}()

	if err := uc.Scheduler.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	// report connectivity right away instead of waiting for the first hourly fire
	go uc.Scheduler.HealthCheck(ctx)
	logger.Info("next daily run", "at", uc.Scheduler.NextDailyRun())

	<-ctx.Done()
	logger.Info("shutting down")

	uc.Scheduler.Stop()
	deps.Health.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
