package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/metrics"
)

const DefaultInterval = 100 * time.Millisecond

// DispatchReport counts one fan-out. Attempted includes failed sends.
type DispatchReport struct {
	Attempted int
	Delivered int
	Failed    int
}

// Dispatcher delivers messages one at a time, spaced by a fixed interval
// so the messaging provider's flood limits are not hit.
type Dispatcher struct {
	messenger domain.Messenger
	limiter   *rate.Limiter
	metrics   *metrics.RebateMetrics
	logger    *slog.Logger
}

func NewDispatcher(messenger domain.Messenger, interval time.Duration, m *metrics.RebateMetrics, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		messenger: messenger,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		metrics:   m,
		logger:    logger,
	}
}

// NotifyRecipients sends the daily notice to each recipient in order.
// A failed send is logged and counted, it never stops the fan-out.
func (d *Dispatcher) NotifyRecipients(ctx context.Context, recipients []domain.RebateRecipient) DispatchReport {
	var report DispatchReport

	for _, recipient := range recipients {
		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Warn("notification fan-out interrupted",
				"error", err,
				"remaining", len(recipients)-report.Attempted,
			)
			break
		}

		report.Attempted++
		if err := d.messenger.SendMessage(ctx, recipient.ChatID, DailyNotification(recipient)); err != nil {
			report.Failed++
			d.logger.Error("failed to send rebate notification",
				"chat_id", recipient.ChatID,
				"customer_id", recipient.CustomerID,
				"error", err,
			)
			continue
		}
		report.Delivered++
	}

	d.metrics.ObserveNotifications(report.Delivered, report.Failed)
	d.logger.Info("rebate notifications dispatched",
		"attempted", report.Attempted,
		"delivered", report.Delivered,
		"failed", report.Failed,
	)
	return report
}

// SendAdmin delivers an operator message through the same pacing limiter.
func (d *Dispatcher) SendAdmin(ctx context.Context, chatID, text string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return d.messenger.SendMessage(ctx, chatID, text)
}
