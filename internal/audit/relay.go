package audit

import (
	"context"
	"log/slog"
	"time"
)

// BrokerPublisher delivers a batch of audit events to the message broker.
type BrokerPublisher interface {
	Publish(ctx context.Context, events []Event) error
}

const (
	defaultRelayInterval  = 2 * time.Second
	defaultRelayBatchSize = 100
)

// Relay drains the audit outbox into the broker on a fixed interval. Broker
// failures leave the batch unmarked; the next tick retries it.
type Relay struct {
	outbox    OutboxStore
	broker    BrokerPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayInterval overrides the drain interval.
func WithRelayInterval(interval time.Duration) RelayOption {
	return func(r *Relay) { r.interval = interval }
}

// WithRelayBatchSize overrides the per-tick batch limit.
func WithRelayBatchSize(size int) RelayOption {
	return func(r *Relay) { r.batchSize = size }
}

// WithRelayLogger attaches a logger.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

// NewRelay constructs an outbox relay.
func NewRelay(outbox OutboxStore, broker BrokerPublisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		broker:    broker,
		logger:    slog.Default(),
		interval:  defaultRelayInterval,
		batchSize: defaultRelayBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run drains until ctx is cancelled. Returns ctx.Err() on shutdown so an
// errgroup supervising it treats cancellation as the stop signal.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay drain failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

// DrainOnce publishes one batch of pending events. Exported for tests and
// for a final flush during shutdown.
func (r *Relay) DrainOnce(ctx context.Context) error {
	events, err := r.outbox.NextBatch(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	if err := r.broker.Publish(ctx, events); err != nil {
		return err
	}

	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return r.outbox.MarkPublished(ctx, ids)
}
