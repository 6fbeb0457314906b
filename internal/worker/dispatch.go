package worker

import (
	"context"

	"brokeometer/internal/amqp"
	"brokeometer/internal/log"
)

// Dispatcher routes queue messages to the worker that handles their type.
// Either worker may be nil; messages for a missing worker are acknowledged
// and dropped.
type Dispatcher struct {
	Insights *InsightWorker
	Sheets   *SheetsWorker
	Logger   *log.Logger
}

// Handle implements amqp.Handler.
func (d *Dispatcher) Handle(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeInsightRefresh:
		if d.Insights == nil {
			return d.skip(ctx, msg)
		}
		return d.Insights.HandleRefresh(ctx, msg)
	case amqp.TypeExpenseSync:
		if d.Sheets == nil {
			return d.skip(ctx, msg)
		}
		return d.Sheets.HandleSync(ctx, msg)
	case amqp.TypeExpenseDelete:
		if d.Sheets == nil {
			return d.skip(ctx, msg)
		}
		return d.Sheets.HandleDelete(ctx, msg)
	default:
		return d.skip(ctx, msg)
	}
}

func (d *Dispatcher) skip(ctx context.Context, msg *amqp.Message) error {
	if d.Logger != nil {
		d.Logger.DebugContext(ctx, "No worker for message, dropping", log.FieldMessage, msg.Type)
	}
	return nil
}
