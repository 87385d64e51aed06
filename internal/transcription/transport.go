package transcription

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types mirrored from the websocket package so fakes need not
// depend on transport internals.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Conn is one open provider connection.
type Conn interface {
	// ReadMessage blocks for the next inbound frame.
	ReadMessage() (messageType int, data []byte, err error)
	// WriteMessage sends one frame.
	WriteMessage(messageType int, data []byte) error
	// WriteClose sends a close frame with the given code.
	WriteClose(code int) error
	// Close tears the connection down.
	Close() error
}

// Transport dials provider connections. Tests substitute a fake.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

const dialTimeout = 15 * time.Second

// WebSocketTransport dials real provider connections over websocket.
type WebSocketTransport struct{}

// Dial implements Transport.
func (WebSocketTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts *websocket.Conn to Conn with a write mutex, since gorilla
// connections allow only one concurrent writer.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsConn) WriteClose(code int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(2 * time.Second)
	return c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
