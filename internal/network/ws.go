package network

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/protocol"
)

var errVersion = errors.New("unsupported protocol version")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients are terminals and scripts as well as browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request to a websocket and serves it until it
// closes. The first message must be hello; ?codec=msgpack selects the
// binary codec.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	codec := protocol.CodecByName(r.URL.Query().Get("codec"))
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &wsConn{
		conn:   conn,
		codec:  codec,
		logger: h.logger.With("remote", r.RemoteAddr),
		send:   make(chan []byte, config.SendBuffer),
		done:   make(chan struct{}),
	}
	go c.writePump()
	defer c.close()

	user, err := c.handshake()
	if err != nil {
		c.fail(err)
		return
	}
	if err := h.Attach(user, c); err != nil {
		c.fail(err)
		return
	}
	defer h.Detach(user, c)

	c.readPump(func(frame []byte) { h.Receive(user, codec, frame) })
}

// wsConn is a websocket peer. Reads happen on the handler goroutine, writes
// on writePump.
type wsConn struct {
	conn   *websocket.Conn
	codec  protocol.Codec
	logger *log.Logger
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *wsConn) Deliver(t string, payload any) bool {
	b, err := c.codec.Encode(t, payload)
	if err != nil {
		c.logger.Error("encode failed", "type", t, "err", err)
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.done) })
}

// fail reports err to the client and closes the connection.
func (c *wsConn) fail(err error) {
	c.Deliver(protocol.MsgError, ErrorFor(err))
	c.close()
}

func (c *wsConn) handshake() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(config.HandshakeTimeout))
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	env, err := c.codec.Decode(frame)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadMessage, err)
	}
	if env.T != protocol.MsgHello {
		return "", fmt.Errorf("%w: expected hello, got %q", errBadMessage, env.T)
	}
	hello, err := decode[protocol.Hello](c.codec, env)
	if err != nil {
		return "", err
	}
	if hello.V != protocol.Version {
		return "", fmt.Errorf("%w: %w %d", errBadMessage, errVersion, hello.V)
	}
	return hello.Name, nil
}

func (c *wsConn) readPump(handle func([]byte)) {
	c.conn.SetReadLimit(config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		handle(frame)
	}
}

func (c *wsConn) messageType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (c *wsConn) write(b []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
	return c.conn.WriteMessage(c.messageType(), b)
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case b := <-c.send:
			if err := c.write(b); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			// Flush what was queued before closing, error replies included.
		flush:
			for {
				select {
				case b := <-c.send:
					if err := c.write(b); err != nil {
						return
					}
				default:
					break flush
				}
			}
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(config.WriteWait))
			return
		}
	}
}
