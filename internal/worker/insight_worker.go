package worker

import (
	"context"
	"fmt"

	"brokeometer/internal/amqp"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
)

// InsightWorker regenerates the stored insight on request.
type InsightWorker struct {
	svc    *insight.Service
	logger *log.Logger
}

func NewInsightWorker(svc *insight.Service, logger *log.Logger) *InsightWorker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &InsightWorker{svc: svc, logger: logger.WithComponent(log.ComponentWorker)}
}

func (w *InsightWorker) HandleRefresh(ctx context.Context, msg *amqp.Message) error {
	r, err := w.svc.Refresh(ctx, msg.Period)
	if err != nil {
		return fmt.Errorf("refresh insight: %w", err)
	}
	w.logger.InfoContext(ctx, "Insight refreshed from queue", log.FieldPeriod, r.Period, "queued_at", msg.Timestamp)
	return nil
}
