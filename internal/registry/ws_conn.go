package registry

import (
	"context"

	cws "github.com/coder/websocket"
)

// wsConn adapts a coder/websocket.Conn to the registry's Conn interface.
type wsConn struct {
	conn *cws.Conn
}

// NewWSConn wraps an accepted websocket connection.
func NewWSConn(conn *cws.Conn) Conn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, cws.MessageText, data)
}

// Ping performs a full ping/pong round trip; it returns once the peer
// answers or the context expires.
func (c *wsConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *wsConn) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
