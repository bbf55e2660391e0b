// Package audit writes a structured log line for every task lifecycle
// event published on the bus.
package audit

import (
	"context"
	"log/slog"

	"github.com/gardenops/grounds/internal/eventbus"
)

type Logger struct {
	bus *eventbus.Bus
}

func NewLogger(bus *eventbus.Bus) *Logger {
	return &Logger{bus: bus}
}

// Start consumes events until the context is cancelled.
func (l *Logger) Start(ctx context.Context) error {
	id, ch := l.bus.Subscribe(64)
	defer l.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			attrs := []any{
				"event_id", event.ID,
				"task_id", event.TaskID,
				"actor_id", event.ActorID,
			}
			for k, v := range event.Metadata {
				attrs = append(attrs, k, v)
			}
			slog.InfoContext(ctx, string(event.Type), attrs...)
		}
	}
}
