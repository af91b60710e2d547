// Package natsbus is the cross-node relay of §2's distributed
// deployment: a concurrency.Mailbox implementation that publishes to,
// and subscribes from, a NATS subject instead of an in-process channel.
// It is wired into a Bus exactly like any other worker/node sink
// (bus.RegisterWorker(idx, natsbus.NewMailbox(...))), so single-node
// deployments never import it or nats.go.
//
// Only SignalMessage and Heartbeat cross a natsbus Mailbox — a
// graph.Request carries a closure over local worker/coordinator state
// and cannot be marshaled to another process, so Request routing stays
// on in-process mailboxes within a node; only the signal traffic
// between vertices owned by different nodes needs the network hop.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
)

// envelope tags a message's concrete type so the receiving side can
// decode it back into the right Go type, the same JSON-over-the-wire
// choice SPEC_FULL.md made for the generic Signal payload.
type envelope[ID comparable, S any] struct {
	Kind      string                    `json:"kind"`
	Signal    *graph.SignalMessage[ID, S] `json:"signal,omitempty"`
	Heartbeat *graph.Heartbeat          `json:"heartbeat,omitempty"`
}

const (
	kindSignal    = "signal"
	kindHeartbeat = "heartbeat"
)

// Mailbox implements concurrency.Mailbox over a NATS subject: Send
// publishes, and an internal subscription feeds Receive/TryReceive from
// a local buffered channel, mirroring the bounded-queue backpressure a
// local mailbox already gives the caller.
type Mailbox[ID comparable, S any] struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
	inbox   chan any
	closed  chan struct{}
}

// NewMailbox subscribes to subject on nc and returns a Mailbox backed
// by it. capacity bounds the local relay buffer the same way a
// concurrency.NewBoundedMailbox's channel would.
func NewMailbox[ID comparable, S any](nc *nats.Conn, subject string, capacity int) (*Mailbox[ID, S], error) {
	m := &Mailbox[ID, S]{
		nc:      nc,
		subject: subject,
		inbox:   make(chan any, capacity),
		closed:  make(chan struct{}),
	}
	sub, err := nc.Subscribe(subject, m.onMessage)
	if err != nil {
		return nil, fmt.Errorf("natsbus: subscribe %s: %w", subject, err)
	}
	m.sub = sub
	return m, nil
}

func (m *Mailbox[ID, S]) onMessage(msg *nats.Msg) {
	var env envelope[ID, S]
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return
	}
	var decoded any
	switch env.Kind {
	case kindSignal:
		if env.Signal == nil {
			return
		}
		decoded = *env.Signal
	case kindHeartbeat:
		if env.Heartbeat == nil {
			return
		}
		decoded = *env.Heartbeat
	default:
		return
	}
	select {
	case m.inbox <- decoded:
	case <-m.closed:
	default:
		// local relay buffer full: drop, mirroring a bounded mailbox's
		// Send returning ErrMailboxFull rather than blocking the NATS
		// dispatcher goroutine.
	}
}

// Send publishes msg to the NATS subject. Only graph.SignalMessage[ID,S]
// and graph.Heartbeat are supported; anything else is rejected rather
// than silently dropped, since a Request reaching here would mean a
// caller tried to route a local-only command across the network.
func (m *Mailbox[ID, S]) Send(msg interface{}) error {
	select {
	case <-m.closed:
		return concurrency.ErrMailboxClosed
	default:
	}

	env := envelope[ID, S]{}
	switch v := msg.(type) {
	case graph.SignalMessage[ID, S]:
		env.Kind = kindSignal
		env.Signal = &v
	case graph.Heartbeat:
		env.Kind = kindHeartbeat
		env.Heartbeat = &v
	default:
		return fmt.Errorf("natsbus: cannot send message of type %T across a cross-node mailbox", msg)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return m.nc.Publish(m.subject, data)
}

// Receive blocks until a message arrives, ctx is cancelled, or the
// mailbox is closed.
func (m *Mailbox[ID, S]) Receive(ctx context.Context) (interface{}, error) {
	select {
	case msg, ok := <-m.inbox:
		if !ok {
			return nil, concurrency.ErrMailboxClosed
		}
		return msg, nil
	case <-m.closed:
		return nil, concurrency.ErrMailboxClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryReceive is the non-blocking form of Receive.
func (m *Mailbox[ID, S]) TryReceive() (interface{}, bool, error) {
	select {
	case msg, ok := <-m.inbox:
		if !ok {
			return nil, false, concurrency.ErrMailboxClosed
		}
		return msg, true, nil
	case <-m.closed:
		return nil, false, concurrency.ErrMailboxClosed
	default:
		return nil, false, nil
	}
}

// Close unsubscribes from the NATS subject and closes the local relay
// buffer; subsequent Send/Receive calls return ErrMailboxClosed.
func (m *Mailbox[ID, S]) Close() {
	select {
	case <-m.closed:
		return
	default:
	}
	close(m.closed)
	if m.sub != nil {
		_ = m.sub.Unsubscribe()
	}
}

// Capacity returns the local relay buffer's capacity.
func (m *Mailbox[ID, S]) Capacity() int { return cap(m.inbox) }

// Size returns how many messages are currently buffered locally,
// waiting to be received.
func (m *Mailbox[ID, S]) Size() int { return len(m.inbox) }

// IsClosed reports whether Close has been called.
func (m *Mailbox[ID, S]) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

var _ concurrency.Mailbox = (*Mailbox[int, float64])(nil)
