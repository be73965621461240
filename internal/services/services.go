// Package services implements the team and entry use cases on top of the
// store ports, the access filter and the event publisher.
package services

import (
	"context"
	"time"

	"teamfinance/internal/events"
	"teamfinance/internal/log"
	"teamfinance/internal/metrics"
)

// Option customises a service.
type Option func(*options)

type options struct {
	publisher events.Publisher
	logger    *log.Logger
	now       func() time.Time
}

// WithPublisher sets where domain events go. Without one, events are dropped.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(component string, opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Discard()
	}
	o.logger = o.logger.WithComponent(component)
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

// publish hands ev to the publisher. Failures are logged, never returned:
// the write that produced the event has already been committed.
func (o options) publish(ctx context.Context, ev events.Event) {
	if o.publisher == nil {
		o.logger.DebugContext(ctx, "No event publisher configured, skipping event", log.FieldEventType, ev.Type)
		return
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		o.logger.ErrorContext(ctx, "Failed to publish event",
			log.FieldEventType, ev.Type,
			"event_id", ev.ID,
			log.FieldError, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type), "ok").Inc()
}
