package bridge

import (
	"context"
	"fmt"
	"sync"
)

// Handler answers one request type. It runs on its own goroutine.
type Handler func(ctx context.Context, req Request) (any, error)

// Mux routes requests to handlers by type.
type Mux struct {
	mu       sync.RWMutex
	handlers map[Type]Handler
}

// NewMux creates an empty mux
func NewMux() *Mux {
	return &Mux{handlers: make(map[Type]Handler)}
}

// Handle registers h for t, replacing any previous handler.
func (m *Mux) Handle(t Type, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[t] = h
}

// Dispatch starts the handler for req and returns its pending response.
func (m *Mux) Dispatch(ctx context.Context, req Request) *Future {
	f := NewFuture()

	m.mu.RLock()
	h, ok := m.handlers[req.Type]
	m.mu.RUnlock()

	if !ok {
		f.Reject(fmt.Errorf("%w: %q", ErrUnknownType, req.Type))
		return f
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(fmt.Errorf("handler panic: %v", r))
			}
		}()

		v, err := h(ctx, req)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()

	return f
}
