package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Serve answers requests arriving on conn using mux until conn is closed or
// ctx ends. Each response is written when its future settles, so responses
// to independent requests may go out in any order.
func Serve(ctx context.Context, conn Conn, mux *Mux) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		env, err := conn.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if env.Request == nil {
			continue
		}

		f := mux.Dispatch(ctx, *env.Request)

		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()

			resp := &Response{}
			payload, err := f.Await(ctx)
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Payload = payload
			}
			_ = conn.Send(ctx, Envelope{ID: id, Response: resp})
		}(env.ID)
	}
}

// Client sends requests over a Conn and matches responses by envelope ID.
type Client struct {
	conn   Conn
	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *Response
	done    chan struct{}
}

// NewClient starts reading responses from conn.
func NewClient(conn Conn) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		env, err := c.conn.Recv(context.Background())
		if err != nil {
			return
		}
		if env.Response == nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()

		if ok {
			ch <- env.Response
		}
	}
}

// Call sends req and decodes the response payload into out (if non-nil).
// A rejection on the other side is returned as *RemoteError.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan *Response, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.conn.Send(ctx, Envelope{ID: id, Request: &req}); err != nil {
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return &RemoteError{Type: req.Type, Message: resp.Error}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("decode %s response: %w", req.Type, err)
		}
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
