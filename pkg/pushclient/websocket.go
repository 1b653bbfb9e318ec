package pushclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeUnauthorized is the close code the server uses after a negative ack.
const closeUnauthorized = 4401

// DefaultReadTimeout covers two server ping intervals at the server default.
const DefaultReadTimeout = 60 * time.Second

// WebsocketDialer connects to the /ws endpoint with a bearer header.
type WebsocketDialer struct {
	URL          string
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
	// ReadTimeout bounds the silence between server frames or pings. A
	// connection quiet for longer is treated as dead.
	ReadTimeout time.Duration
}

func NewWebsocketDialer(url string) *WebsocketDialer {
	return &WebsocketDialer{
		URL: url,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  DefaultReadTimeout,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := d.Dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	c := &wsConn{conn: conn, writeTimeout: d.WriteTimeout, readTimeout: d.ReadTimeout}
	c.extendRead()
	conn.SetPingHandler(func(appData string) error {
		c.extendRead()
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.pongTimeout()))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	return c, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration
	closeOnce    sync.Once
}

func (c *wsConn) extendRead() {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

func (c *wsConn) pongTimeout() time.Duration {
	if c.writeTimeout > 0 {
		return c.writeTimeout
	}
	return time.Second
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, closeUnauthorized) {
				return nil, fmt.Errorf("%w: %v", ErrAuth, err)
			}
			return nil, err
		}
		c.extendRead()
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
