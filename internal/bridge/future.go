package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Future is a response that settles exactly once.
type Future struct {
	once    sync.Once
	done    chan struct{}
	payload json.RawMessage
	err     error
}

// NewFuture returns an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve settles the future with v encoded as JSON.
// Later calls to Resolve or Reject are ignored.
func (f *Future) Resolve(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		f.Reject(fmt.Errorf("encode response: %w", err))
		return
	}
	f.settle(data, nil)
}

// Reject settles the future with err.
func (f *Future) Reject(err error) {
	f.settle(nil, err)
}

func (f *Future) settle(payload json.RawMessage, err error) {
	f.once.Do(func() {
		f.payload = payload
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx ends.
func (f *Future) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-f.done:
		return f.payload, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
