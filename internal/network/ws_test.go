package network

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomz197/arcade/internal/protocol"
)

type wsClient struct {
	conn  *websocket.Conn
	codec protocol.Codec
}

func dial(t *testing.T, srv *httptest.Server, codec protocol.Codec) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?codec=" + codec.Name()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{conn: conn, codec: codec}
}

func (c *wsClient) send(t *testing.T, typ string, payload any) {
	t.Helper()
	frame, err := c.codec.Encode(typ, payload)
	if err != nil {
		t.Fatal(err)
	}
	mt := websocket.TextMessage
	if c.codec.Binary() {
		mt = websocket.BinaryMessage
	}
	if err := c.conn.WriteMessage(mt, frame); err != nil {
		t.Fatal(err)
	}
}

// next reads until a message of type typ arrives.
func (c *wsClient) next(t *testing.T, typ string) protocol.Envelope {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		env, err := c.codec.Decode(frame)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.T == typ {
			return env
		}
	}
}

func (c *wsClient) hello(t *testing.T, name string) protocol.Welcome {
	t.Helper()
	c.send(t, protocol.MsgHello, protocol.Hello{V: protocol.Version, Name: name})
	w, err := protocol.DecodePayload[protocol.Welcome](c.codec, c.next(t, protocol.MsgWelcome))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func startWS(t *testing.T) (*testEnv, *httptest.Server) {
	t.Helper()
	e := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(e.hub.ServeWS))
	t.Cleanup(srv.Close)
	return e, srv
}

func TestWebsocketHandshake(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSONCodec{}, protocol.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			e, srv := startWS(t)
			c := dial(t, srv, codec)
			w := c.hello(t, "ann")
			if w.User != "ann" || w.TickHz <= 0 {
				t.Fatalf("welcome = %+v", w)
			}
			if !e.hub.Online("ann") {
				t.Fatal("ann not registered")
			}
		})
	}
}

func TestWebsocketRejectsBadHandshake(t *testing.T) {
	cases := []struct {
		name    string
		typ     string
		payload any
		code    string
	}{
		{"not hello", protocol.MsgQueueJoin, protocol.QueueRequest{Game: "pong"}, protocol.CodeBadMessage},
		{"old version", protocol.MsgHello, protocol.Hello{V: 0, Name: "ann"}, protocol.CodeBadMessage},
		{"bad name", protocol.MsgHello, protocol.Hello{V: protocol.Version, Name: ""}, protocol.CodeBadMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, srv := startWS(t)
			c := dial(t, srv, protocol.JSONCodec{})
			c.send(t, tc.typ, tc.payload)
			perr, err := protocol.DecodePayload[protocol.Error](c.codec, c.next(t, protocol.MsgError))
			if err != nil {
				t.Fatal(err)
			}
			if perr.Code != tc.code {
				t.Fatalf("code = %s (%s)", perr.Code, perr.Message)
			}
			if _, _, err := c.conn.ReadMessage(); err == nil {
				t.Fatal("connection left open")
			}
		})
	}
}

func TestWebsocketNameTaken(t *testing.T) {
	_, srv := startWS(t)
	dial(t, srv, protocol.JSONCodec{}).hello(t, "ann")

	c := dial(t, srv, protocol.JSONCodec{})
	c.send(t, protocol.MsgHello, protocol.Hello{V: protocol.Version, Name: "ann"})
	perr, _ := protocol.DecodePayload[protocol.Error](c.codec, c.next(t, protocol.MsgError))
	if perr.Code != protocol.CodeBusy {
		t.Fatalf("code = %s", perr.Code)
	}
}

func TestWebsocketMatchmakingMixedCodecs(t *testing.T) {
	e, srv := startWS(t)
	ann := dial(t, srv, protocol.MsgpackCodec{})
	bob := dial(t, srv, protocol.JSONCodec{})
	ann.hello(t, "ann")
	bob.hello(t, "bob")

	ann.send(t, protocol.MsgQueueJoin, protocol.QueueRequest{Game: "runner"})
	bob.send(t, protocol.MsgQueueJoin, protocol.QueueRequest{Game: "runner"})
	deadline := time.Now().Add(2 * time.Second)
	for e.lobby.Stats().Queued < 2 {
		if time.Now().After(deadline) {
			t.Fatal("queue joins never arrived")
		}
		time.Sleep(time.Millisecond)
	}
	e.lobby.Scan()

	for _, c := range []*wsClient{ann, bob} {
		ev, err := protocol.DecodePayload[protocol.Event](c.codec, c.next(t, protocol.MsgEvent))
		if err != nil {
			t.Fatal(err)
		}
		if ev.Type != protocol.EventMatchFound || ev.Players != [2]string{"ann", "bob"} || ev.Game != "runner" {
			t.Fatalf("%s got %+v", c.codec.Name(), ev)
		}
	}
}

func TestWebsocketCloseDetaches(t *testing.T) {
	e, srv := startWS(t)
	c := dial(t, srv, protocol.JSONCodec{})
	c.hello(t, "ann")
	c.send(t, protocol.MsgQueueJoin, protocol.QueueRequest{Game: "pong"})
	c.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for e.hub.Online("ann") || e.lobby.Stats().Queued != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed connection still attached")
		}
		time.Sleep(time.Millisecond)
	}
}
