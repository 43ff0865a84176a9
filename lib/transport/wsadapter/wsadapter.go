// Package wsadapter adapts a gofiber/contrib/websocket connection to
// the connection.Transport interface, so lib/connection never imports
// a specific websocket library directly.
package wsadapter

import (
	"github.com/gofiber/contrib/websocket"
)

// Adapter wraps a *websocket.Conn as a connection.Transport.
type Adapter struct {
	conn *websocket.Conn
}

// New wraps conn.
func New(conn *websocket.Conn) *Adapter {
	return &Adapter{conn: conn}
}

// ReadMessage blocks for the next text frame.
func (a *Adapter) ReadMessage() ([]byte, error) {
	_, data, err := a.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteJSON writes v as a single text frame.
func (a *Adapter) WriteJSON(v interface{}) error {
	return a.conn.WriteJSON(v)
}

// Close closes the underlying websocket connection.
func (a *Adapter) Close() error {
	return a.conn.Close()
}
