package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaycore/lib/nostrcore"
)

type fakeConn struct {
	mu       sync.Mutex
	received []*nostrcore.Event
	closed   bool
	block    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{}
}

func (f *fakeConn) Notify(e *nostrcore.Event) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, e)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) snapshot() ([]*nostrcore.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*nostrcore.Event, len(f.received))
	copy(out, f.received)
	return out, f.closed
}

func TestBroadcastIsolation(t *testing.T) {
	r := NewRegistry()
	source := newFakeConn()
	other := newFakeConn()

	r.Attach(source)
	r.Attach(other)

	e := &nostrcore.Event{ID: "e1"}
	r.Broadcast(source, e)

	require.Eventually(t, func() bool {
		got, _ := other.snapshot()
		return len(got) == 1
	}, time.Second, time.Millisecond)

	got, _ := source.snapshot()
	assert.Empty(t, got)
}

func TestDetachStopsDelivery(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	r.Attach(conn)
	r.Detach(conn)

	r.Broadcast(nil, &nostrcore.Event{ID: "e1"})

	time.Sleep(10 * time.Millisecond)
	got, _ := conn.snapshot()
	assert.Empty(t, got)
}

func TestOverflowDropsConnection(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	conn.block = make(chan struct{}) // never unblocks; Notify hangs

	r.Attach(conn)

	// Fill the queue beyond capacity; the blocked drain goroutine
	// consumes one at a time, stalled on the first Notify call.
	for i := 0; i < outboundQueueSize+5; i++ {
		r.Broadcast(nil, &nostrcore.Event{ID: "e"})
	}

	require.Eventually(t, func() bool {
		_, closed := conn.snapshot()
		return closed
	}, time.Second, time.Millisecond)
}
