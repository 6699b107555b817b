// Package notify delivers state-change events to staff screens and other services.
// Publishing never waits on a sink.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Envelope is the message every sink receives.
type Envelope struct {
	Type     string          `json:"type"`
	Sequence int64           `json:"sequence"`
	At       time.Time       `json:"at"`
	Data     json.RawMessage `json:"data"`
}

type Sink interface {
	Name() string
	Send(ctx context.Context, env Envelope) error
}

// Bus queues events and fans them out to its sinks from Run.
type Bus struct {
	queue   chan Envelope
	seq     atomic.Int64
	dropped atomic.Int64
	log     *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(size int, log *zap.Logger, sinks ...Sink) *Bus {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		queue: make(chan Envelope, size),
		log:   log,
		now:   time.Now,
		sinks: sinks,
	}
}

func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish enqueues the event. When the queue is full the event is dropped.
func (b *Bus) Publish(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("event payload is not serialisable", zap.String("event", event), zap.Error(err))
		return
	}
	env := Envelope{
		Type:     event,
		Sequence: b.seq.Add(1),
		At:       b.now().UTC(),
		Data:     raw,
	}
	select {
	case b.queue <- env:
	default:
		n := b.dropped.Add(1)
		b.log.Warn("notification queue full, event dropped",
			zap.String("event", event),
			zap.Int64("sequence", env.Sequence),
			zap.Int64("dropped", n),
		)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Run delivers queued events until ctx is done. Sink errors are logged.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-b.queue:
			b.deliver(ctx, env)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, env Envelope) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := s.Send(sendCtx, env)
		cancel()
		if err != nil {
			b.log.Warn("notification delivery failed",
				zap.String("sink", s.Name()),
				zap.String("event", env.Type),
				zap.Int64("sequence", env.Sequence),
				zap.Error(err),
			)
		}
	}
}
