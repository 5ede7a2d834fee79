package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher writes audit events through the store. The default mode is
// synchronous: Emit returns once the event is persisted, so a committed
// lifecycle transition is never missing its trail entry. WithAsyncBuffer
// trades that guarantee for latency: events go through a channel and a
// background drainer, and Emit never blocks the request path.
type Publisher struct {
	store  Store
	logger *slog.Logger

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger attaches a logger for async drop warnings.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// channel capacity. Events that arrive while the buffer is full are dropped
// with a warning rather than stalling request handling.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) { p.inbox = make(chan Event, size) }
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. A zero timestamp is stamped with wall-clock time.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			slog.String("action", string(event.Action)),
			slog.String("case_id", event.CaseID.String()))
	}
	return nil
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Detached from the request context on purpose: the request may be
		// long gone by the time the event is persisted.
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed",
				slog.String("action", string(event.Action)),
				slog.String("error", err.Error()))
		}
	}
}

// Close flushes the async buffer and stops the drainer. No-op in sync mode.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.closed.Do(func() {
		close(p.inbox)
		<-p.done
	})
}
