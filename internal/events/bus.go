package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// Handler reacts to a published event.
type Handler func(ctx context.Context, e Event) error

type subscription struct {
	name    string
	handler Handler
	types   map[string]struct{}
	async   bool
}

func (s subscription) wants(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// Bus is an in-process publish/subscribe hub for lifecycle events.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	wg     sync.WaitGroup
	logger *logging.Logger
}

func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler that runs before Publish returns. With no
// types it receives every event.
func (b *Bus) Subscribe(name string, h Handler, types ...string) {
	b.add(subscription{name: name, handler: h, types: typeSet(types)})
}

// SubscribeAsync registers a handler that runs on its own goroutine and
// outlives the publishing request.
func (b *Bus) SubscribeAsync(name string, h Handler, types ...string) {
	b.add(subscription{name: name, handler: h, types: typeSet(types), async: true})
}

func (b *Bus) add(s subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

func typeSet(types []string) map[string]struct{} {
	if len(types) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(types))
	for _, t := range types {
		out[t] = struct{}{}
	}
	return out
}

// Publish delivers e to every interested subscriber. Synchronous handler
// failures are joined into the returned error; they never stop delivery.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if !s.wants(e.Type) {
			continue
		}
		if s.async {
			b.wg.Add(1)
			go func(s subscription) {
				defer b.wg.Done()
				if err := s.handler(context.WithoutCancel(ctx), e); err != nil {
					b.logger.Error("event subscriber failed", "subscriber", s.name, "event_type", e.Type, "event_id", e.ID, "error", err)
				}
			}(s)
			continue
		}
		if err := s.handler(ctx, e); err != nil {
			b.logger.Error("event subscriber failed", "subscriber", s.name, "event_type", e.Type, "event_id", e.ID, "error", err)
			errs = append(errs, fmt.Errorf("events: %s: %w", s.name, err))
		}
	}
	b.logger.Debug("event published", "event_type", e.Type, "org_id", e.OrgID, "lead_id", e.LeadID)
	return errors.Join(errs...)
}

// Wait blocks until every asynchronous delivery has finished.
func (b *Bus) Wait() {
	b.wg.Wait()
}
