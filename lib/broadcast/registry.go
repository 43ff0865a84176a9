// Package broadcast tracks the live connections of one relay and fans
// newly accepted events out to every connection except the one that
// submitted them.
package broadcast

import (
	"github.com/puzpuzpuz/xsync/v3"

	"relaycore/lib/nostrcore"
)

// outboundQueueSize bounds the per-connection delivery channel; once
// full, Broadcast drops the connection rather than blocking on a slow
// peer.
const outboundQueueSize = 256

// Notifiable is the connection-side half of delivery: Notify is called
// with an event that the connection's installed filters should be
// tested against, and Close tears down a connection that fell behind.
type Notifiable interface {
	Notify(e *nostrcore.Event)
	Close() error
}

type entry struct {
	conn  Notifiable
	queue chan *nostrcore.Event
	done  chan struct{}
}

// Registry holds the live connection set for one relay.
type Registry struct {
	conns *xsync.MapOf[Notifiable, *entry]
}

// NewRegistry returns an empty registry for one relay.
func NewRegistry() *Registry {
	return &Registry{conns: xsync.NewMapOf[Notifiable, *entry]()}
}

// Attach adds conn to the registry and starts its delivery goroutine.
// It is idempotent: attaching an already-attached connection is a
// no-op.
func (r *Registry) Attach(conn Notifiable) {
	r.conns.LoadOrCompute(conn, func() *entry {
		e := &entry{
			conn:  conn,
			queue: make(chan *nostrcore.Event, outboundQueueSize),
			done:  make(chan struct{}),
		}
		go e.drain()
		return e
	})
}

// Detach removes conn from the registry and stops its delivery
// goroutine.
func (r *Registry) Detach(conn Notifiable) {
	if e, ok := r.conns.LoadAndDelete(conn); ok {
		close(e.done)
	}
}

// Broadcast delivers event to every attached connection except source.
// It never blocks on a slow peer: if a connection's queue is full, that
// connection is dropped and closed instead of stalling the broadcast.
func (r *Registry) Broadcast(source Notifiable, event *nostrcore.Event) {
	r.conns.Range(func(conn Notifiable, e *entry) bool {
		if conn == source {
			return true
		}
		select {
		case e.queue <- event:
		default:
			r.Detach(conn)
			conn.Close()
		}
		return true
	})
}

// Size reports the number of attached connections.
func (r *Registry) Size() int {
	return r.conns.Size()
}

func (e *entry) drain() {
	for {
		select {
		case ev := <-e.queue:
			e.conn.Notify(ev)
		case <-e.done:
			return
		}
	}
}
