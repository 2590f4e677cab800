package session

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Transport kinds accepted by Options.Transport.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Dialer establishes the raw byte stream a session runs over.
type Dialer interface {
	Dial(ctx context.Context, address string) (net.Conn, error)
}

type tcpDialer struct {
	timeout time.Duration
}

func (d *tcpDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.timeout}
	return nd.DialContext(ctx, "tcp", address)
}

type wsDialer struct {
	handshakeTimeout time.Duration
}

func (d *wsDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	timeout := d.handshakeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &websocket.Dialer{
		HandshakeTimeout: timeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: conn}, nil
}

// wsConn adapts a websocket connection to net.Conn so the session and the
// response reader treat both transports as one byte stream. Each Write
// becomes one binary websocket message; Read drains messages in order.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
