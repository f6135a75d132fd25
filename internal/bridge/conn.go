package bridge

import (
	"context"
	"sync"
)

// Conn is one end of a message channel between two contexts.
// Messages sent on one end arrive at the other in order.
type Conn interface {
	Send(ctx context.Context, env Envelope) error
	Recv(ctx context.Context) (Envelope, error)
	Close() error
}

const pipeBuffer = 16

type pipeConn struct {
	in     <-chan Envelope
	out    chan<- Envelope
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns a connected in-memory Conn pair. Closing either end closes both.
func Pipe() (Conn, Conn) {
	ab := make(chan Envelope, pipeBuffer)
	ba := make(chan Envelope, pipeBuffer)
	closed := make(chan struct{})
	once := &sync.Once{}

	a := &pipeConn{in: ba, out: ab, closed: closed, once: once}
	b := &pipeConn{in: ab, out: ba, closed: closed, once: once}
	return a, b
}

func (p *pipeConn) Send(ctx context.Context, env Envelope) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	select {
	case p.out <- env:
		return nil
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Recv(ctx context.Context) (Envelope, error) {
	select {
	case env := <-p.in:
		return env, nil
	case <-p.closed:
		return Envelope{}, ErrClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
