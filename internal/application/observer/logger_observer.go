package observer

import (
	"context"

	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
)

// LoggerObserver logs notebook events to the structured logger.
type LoggerObserver struct {
	name   string
	logger *logger.Logger
	filter EventFilter
}

// LoggerObserverOption configures LoggerObserver.
type LoggerObserverOption func(*LoggerObserver)

// WithLoggerInstance sets the logger instance.
func WithLoggerInstance(l *logger.Logger) LoggerObserverOption {
	return func(o *LoggerObserver) {
		o.logger = l
	}
}

// WithLoggerFilter sets the event filter.
func WithLoggerFilter(filter EventFilter) LoggerObserverOption {
	return func(o *LoggerObserver) {
		o.filter = filter
	}
}

// NewLoggerObserver creates a new logger observer.
func NewLoggerObserver(opts ...LoggerObserverOption) *LoggerObserver {
	obs := &LoggerObserver{name: "logger"}
	for _, opt := range opts {
		opt(obs)
	}
	return obs
}

// Name returns the observer's name.
func (o *LoggerObserver) Name() string {
	return o.name
}

// Filter returns the event filter.
func (o *LoggerObserver) Filter() EventFilter {
	return o.filter
}

// OnEvent logs one event.
func (o *LoggerObserver) OnEvent(ctx context.Context, event Event) error {
	if o.logger == nil {
		return nil
	}

	fields := []any{"event_type", string(event.Type)}

	if event.State != nil {
		fields = append(fields,
			"cell_id", event.CellID,
			"status", string(event.State.Status),
		)
		if event.State.Error != nil {
			fields = append(fields, "error", *event.State.Error)
		}
		if event.State.BlockedBy != nil {
			fields = append(fields, "blocked_by", *event.State.BlockedBy)
		}
	}
	if event.Cells != nil {
		fields = append(fields, "cell_count", len(event.Cells))
	}

	o.logger.InfoContext(ctx, "notebook event", fields...)
	return nil
}
