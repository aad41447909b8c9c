package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnClosed marks an orderly close by the peer.
var ErrConnClosed = errors.New("connection closed")

// Conn is one open duplex connection carrying one frame per message.
type Conn interface {
	ReadMessage() (string, error)
	WriteMessage(msg string) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Identity resolves the visitor identifier sent in the handshake.
type Identity interface {
	VisitorID(ctx context.Context) (string, error)
}

const defaultWriteTimeout = 10 * time.Second

// WebSocketDialer dials the server's /connect endpoint.
type WebSocketDialer struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	WriteTimeout time.Duration
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	c, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	timeout := d.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &wsConn{c: c, writeTimeout: timeout}, nil
}

type wsConn struct {
	c            *websocket.Conn
	writeTimeout time.Duration
}

func (w *wsConn) ReadMessage() (string, error) {
	for {
		mt, data, err := w.c.ReadMessage()
		if err != nil {
			return "", classifyReadError(err)
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return string(data), nil
		}
	}
}

func (w *wsConn) WriteMessage(msg string) error {
	if err := w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (w *wsConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return w.c.Close()
}

func classifyReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrConnClosed, err)
	}
	return err
}
