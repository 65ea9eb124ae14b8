package source

import (
	"context"
	"slices"
	"sync"
)

// hub keeps the handler set shared by the drivers. Dispatch holds the read
// lock for the whole fan-out, so taking the write lock (Unsubscribe, WaitIdle)
// doubles as the quiescence barrier. Handlers must not call back into the hub.
type hub struct {
	mu       sync.RWMutex
	next     Subscription
	handlers map[Subscription]Handler
}

func newHub() *hub {
	return &hub{handlers: make(map[Subscription]Handler)}
}

func (h *hub) subscribe(fn Handler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.handlers[h.next] = fn
	return h.next
}

func (h *hub) unsubscribe(s Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, s)
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// dispatch delivers ev to every handler in subscription order.
func (h *hub) dispatch(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.handlers) == 0 {
		return 0
	}

	ids := make([]Subscription, 0, len(h.handlers))
	for id := range h.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		h.handlers[id](ev)
	}
	return len(ids)
}

// waitIdle returns once every dispatch that started before the call has finished.
func (h *hub) waitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.mu.Lock()
		close(done)
		h.mu.Unlock()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
