package connection

// Transport is the minimal surface a Connection needs from the wire.
// Concrete implementations (lib/transport/wsadapter) wrap a specific
// websocket library; Connection never depends on one directly, so the
// registry can be injected at construction rather than via runtime
// attribute mutation on the transport.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}
