// Package transport wires the connection state machine to an HTTP/WS
// surface using gofiber/fiber, the same stack the teacher relay uses.
// This is glue, not core engineering: the wire protocol framing,
// auth, and relay admin all live outside the core per scope.
package transport

import (
	"context"
	"strings"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"relaycore/lib/broadcast"
	"relaycore/lib/connection"
	"relaycore/lib/eventstore"
	"relaycore/lib/logging"
	"relaycore/lib/relay"
	"relaycore/lib/transport/wsadapter"
)

// Server binds the relay core to fiber routes. One Server instance
// serves every tenant relay hosted by this process; the relay id comes
// from the URL path, never a hardcoded literal.
type Server struct {
	store   *eventstore.Store
	configs relay.ConfigProvider

	mu         sync.Mutex
	registries map[string]*broadcast.Registry
}

// New builds a Server over store, resolving relay identity/policy
// through configs.
func New(store *eventstore.Store, configs relay.ConfigProvider) *Server {
	return &Server{
		store:      store,
		configs:    configs,
		registries: make(map[string]*broadcast.Registry),
	}
}

func (s *Server) registryFor(relayID string) *broadcast.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registries[relayID]
	if !ok {
		r = broadcast.NewRegistry()
		s.registries[relayID] = r
	}
	return r
}

// Mount registers the relay-info middleware and the websocket upgrade
// route on app.
func (s *Server) Mount(app *fiber.App) {
	app.Use(s.handleRelayInfo)

	app.Get("/:relayID", websocket.New(func(c *websocket.Conn) {
		s.handleWebSocket(c)
	}))
}

// handleRelayInfo answers NIP-11 relay information requests: a GET with
// Accept: application/nostr+json on a relay's root.
func (s *Server) handleRelayInfo(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodGet || c.Get("Accept") != "application/nostr+json" {
		return c.Next()
	}

	relayID := strings.TrimPrefix(c.Path(), "/")
	cfg, err := s.configs.Get(relayID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown relay"})
	}

	c.Set("Access-Control-Allow-Origin", "*")
	return c.JSON(relay.BuildInfo(cfg))
}

func (s *Server) handleWebSocket(c *websocket.Conn) {
	relayID := c.Params("relayID")
	log := logging.GetLogger().WithRelay(relayID)

	cfg, err := s.configs.Get(relayID)
	if err != nil {
		log.Warnf("unknown relay: %v", err)
		c.Close()
		return
	}

	conn := connection.New(wsadapter.New(c), relayID, s.store, s.registryFor(relayID), cfg.Spec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := conn.Run(ctx); err != nil {
		log.Debugf("connection closed: %v", err)
	}
}
