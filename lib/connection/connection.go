// Package connection implements the per-client state machine: it reads
// wire frames one at a time, dispatches EVENT/REQ/CLOSE, and holds the
// set of installed subscription filters used for live delivery.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"relaycore/lib/broadcast"
	"relaycore/lib/eventstore"
	"relaycore/lib/filter"
	"relaycore/lib/logging"
	"relaycore/lib/nostrcore"
	"relaycore/lib/policy"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Registry is the subset of broadcast.Registry a Connection needs; kept
// as an interface so the registry is a constructor dependency rather
// than something installed on the connection after the fact.
type Registry interface {
	Attach(conn broadcast.Notifiable)
	Detach(conn broadcast.Notifiable)
	Broadcast(source broadcast.Notifiable, e *nostrcore.Event)
}

// Connection drives one client from accept to close.
type Connection struct {
	transport Transport
	relayID   string
	store     *eventstore.Store
	registry  Registry
	spec      policy.Spec
	log       *logging.Logger

	subsMu    sync.Mutex
	subs      map[string]*filter.Filter
	subsOrder []string

	// writeMu serializes frame writes: handleReq's historical replay
	// runs on the Run goroutine while Notify runs on the broadcaster's
	// delivery goroutine, and both write to the same transport.
	writeMu sync.Mutex
}

// New constructs a Connection. The registry is supplied here, not
// installed later, so a Connection is always fully wired. Every log
// line this connection emits carries its relay id and a per-connection
// sequence number, so a multi-tenant process's logs can be told apart
// by relay and by connection.
func New(transport Transport, relayID string, store *eventstore.Store, registry Registry, spec policy.Spec) *Connection {
	return &Connection{
		transport: transport,
		relayID:   relayID,
		store:     store,
		registry:  registry,
		spec:      spec,
		subs:      make(map[string]*filter.Filter),
		log:       logging.GetLogger().WithRelay(relayID).WithConn(),
	}
}

// Run is the receive loop: Opening -> Running -> Closed. It reads one
// frame at a time and dispatches it; only a transport error or context
// cancellation terminates the loop. Malformed frames, unknown tags, and
// handler errors are logged and do not close the connection.
func (c *Connection) Run(ctx context.Context) error {
	c.registry.Attach(c)
	defer c.registry.Detach(c)

	for {
		select {
		case <-ctx.Done():
			return c.transport.Close()
		default:
		}

		raw, err := c.transport.ReadMessage()
		if err != nil {
			return err
		}

		if err := c.dispatch(raw); err != nil {
			if errors.Is(err, errTransport) {
				return err
			}
			c.log.Warnf("dispatch error: %v", err)
		}
	}
}

var errTransport = errors.New("connection: transport error")

func (c *Connection) dispatch(raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("handler panic: %v", r)
			err = nil
		}
	}()

	var frame []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debugf("malformed frame: %v", err)
		return nil
	}
	if len(frame) == 0 {
		return nil
	}

	var tag string
	if err := json.Unmarshal(frame[0], &tag); err != nil {
		c.log.Debugf("malformed frame tag: %v", err)
		return nil
	}

	switch tag {
	case "EVENT":
		if len(frame) != 2 {
			c.log.Debugf("EVENT frame with arity %d", len(frame))
			return nil
		}
		return c.handleEvent(frame[1])
	case "REQ":
		if len(frame) < 3 {
			c.log.Debugf("REQ frame with arity %d", len(frame))
			return nil
		}
		return c.handleReq(frame[1], frame[2])
	case "CLOSE":
		if len(frame) != 2 {
			c.log.Debugf("CLOSE frame with arity %d", len(frame))
			return nil
		}
		return c.handleClose(frame[1])
	default:
		c.log.Debugf("unknown message tag %q", tag)
		return nil
	}
}

func (c *Connection) handleEvent(raw jsoniter.RawMessage) error {
	var e nostrcore.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return c.sendOK("", false, "error: malformed event")
	}

	if err := nostrcore.Verify(&e); err != nil {
		return c.sendOK(e.ID, false, "error: "+err.Error())
	}

	if err := policy.Admit(c.store, c.relayID, c.spec, &e); err != nil {
		return c.sendOK(e.ID, false, "error: "+err.Error())
	}

	if err := c.store.Put(c.relayID, &e); err != nil {
		if errors.Is(err, eventstore.ErrDuplicate) {
			return c.sendOK(e.ID, false, "duplicate")
		}
		return c.sendOK(e.ID, false, "error: "+err.Error())
	}

	if e.Kind == nostrcore.KindDeletion {
		if err := policy.ApplyDeletion(c.store, c.relayID, &e); err != nil {
			c.log.Warnf("apply deletion: %v", err)
		}
	}

	c.registry.Broadcast(c, &e)

	return c.sendOK(e.ID, true, "")
}

func (c *Connection) handleReq(subIDRaw, filterRaw jsoniter.RawMessage) error {
	var subID string
	if err := json.Unmarshal(subIDRaw, &subID); err != nil {
		return nil
	}

	var f filter.Filter
	if err := json.Unmarshal(filterRaw, &f); err != nil {
		return nil
	}
	f.SubscriptionID = subID

	c.subsMu.Lock()
	if _, exists := c.subs[subID]; !exists {
		c.subsOrder = append(c.subsOrder, subID)
	}
	c.subs[subID] = &f
	c.subsMu.Unlock()

	events, err := c.store.Query(c.relayID, &f)
	if err != nil {
		c.log.Errorf("query failed: %v", err)
		return fmt.Errorf("query: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, e := range events {
		if err := c.transport.WriteJSON([]interface{}{"EVENT", subID, e}); err != nil {
			return errTransport
		}
	}

	if err := c.transport.WriteJSON([]interface{}{"EOSE", subID}); err != nil {
		return errTransport
	}

	return nil
}

func (c *Connection) handleClose(subIDRaw jsoniter.RawMessage) error {
	var subID string
	if err := json.Unmarshal(subIDRaw, &subID); err != nil {
		return nil
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	delete(c.subs, subID)
	for i, id := range c.subsOrder {
		if id == subID {
			c.subsOrder = append(c.subsOrder[:i], c.subsOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Notify is the broadcaster's delivery callback: it tests e against
// every installed filter in insertion order, emitting one EVENT frame
// per match (a single event may fan out to more than one subscription
// on the same connection).
func (c *Connection) Notify(e *nostrcore.Event) {
	c.subsMu.Lock()
	order := make([]string, len(c.subsOrder))
	copy(order, c.subsOrder)
	matching := make([]string, 0, len(order))
	for _, subID := range order {
		f, ok := c.subs[subID]
		if ok && filter.Matches(f, e) {
			matching = append(matching, subID)
		}
	}
	c.subsMu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, subID := range matching {
		if err := c.transport.WriteJSON([]interface{}{"EVENT", subID, e}); err != nil {
			c.log.Warnf("notify write failed: %v", err)
			return
		}
	}
}

func (c *Connection) sendOK(id string, accepted bool, message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.transport.WriteJSON([]interface{}{"OK", id, accepted, message}); err != nil {
		return errTransport
	}
	return nil
}

// Close tears down the underlying transport.
func (c *Connection) Close() error {
	return c.transport.Close()
}
