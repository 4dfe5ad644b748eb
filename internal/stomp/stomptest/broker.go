// Package stomptest provides an in-process STOMP broker over WebSocket for tests.
package stomptest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/belatro/internal/stomp"
)

type subscription struct {
	ws *websocket.Conn
	id string
}

// Broker accepts STOMP sessions, records what clients send and lets tests
// publish MESSAGE frames to subscribed destinations.
type Broker struct {
	Server *httptest.Server

	// Reject, when set before a client connects, answers CONNECT with an ERROR frame.
	Reject string

	mu         sync.Mutex
	connects   []stomp.Frame
	sent       []stomp.Frame
	subs       map[string]subscription
	conns      map[*websocket.Conn]struct{}
	heartbeats int
	seq        int
}

func NewBroker() *Broker {
	b := &Broker{
		subs:  make(map[string]subscription),
		conns: make(map[*websocket.Conn]struct{}),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

// URL is the ws:// address of the broker.
func (b *Broker) URL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/ws/websocket"
}

func (b *Broker) Close() {
	b.DropAll()
	b.Server.Close()
}

func (b *Broker) Connects() []stomp.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]stomp.Frame(nil), b.connects...)
}

func (b *Broker) Sent() []stomp.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]stomp.Frame(nil), b.sent...)
}

// SentTo returns the bodies sent to destination, in order.
func (b *Broker) SentTo(destination string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, f := range b.sent {
		if f.Get("destination") == destination {
			out = append(out, string(f.Body))
		}
	}
	return out
}

func (b *Broker) Subscribed(destination string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[destination]
	return ok
}

func (b *Broker) Heartbeats() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heartbeats
}

// Publish delivers body to the current subscriber of destination.
func (b *Broker) Publish(ctx context.Context, destination string, body []byte) error {
	b.mu.Lock()
	sub, ok := b.subs[destination]
	b.seq++
	seq := b.seq
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("no subscriber for %s", destination)
	}
	f := stomp.NewFrame(stomp.CmdMessage, body,
		"subscription", sub.id,
		"destination", destination,
		"message-id", fmt.Sprintf("m-%d", seq),
	)
	return sub.ws.Write(ctx, websocket.MessageText, f.Encode())
}

// DropAll aborts every open connection without a close handshake.
func (b *Broker) DropAll() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for ws := range b.conns {
		conns = append(conns, ws)
	}
	b.mu.Unlock()
	for _, ws := range conns {
		ws.CloseNow()
	}
}

func (b *Broker) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: stomp.Subprotocols})
	if err != nil {
		return
	}
	defer ws.CloseNow()

	b.mu.Lock()
	b.conns[ws] = struct{}{}
	b.mu.Unlock()
	defer b.forget(ws)

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if len(bytes.Trim(data, "\r\n")) == 0 {
			b.mu.Lock()
			b.heartbeats++
			b.mu.Unlock()
			continue
		}
		frames, err := stomp.ParseFrames(data)
		if err != nil {
			return
		}
		for _, f := range frames {
			if !b.handle(ctx, ws, f) {
				return
			}
		}
	}
}

func (b *Broker) handle(ctx context.Context, ws *websocket.Conn, f stomp.Frame) bool {
	switch f.Command {
	case stomp.CmdConnect:
		b.mu.Lock()
		b.connects = append(b.connects, f)
		reject := b.Reject
		b.mu.Unlock()
		if reject != "" {
			ws.Write(ctx, websocket.MessageText, stomp.NewFrame(stomp.CmdError, nil, "message", reject).Encode())
			ws.Close(websocket.StatusPolicyViolation, reject)
			return false
		}
		reply := stomp.NewFrame(stomp.CmdConnected, nil, "version", "1.2", "heart-beat", "0,0", "server", "stomptest")
		return ws.Write(ctx, websocket.MessageText, reply.Encode()) == nil
	case stomp.CmdSubscribe:
		b.mu.Lock()
		b.subs[f.Get("destination")] = subscription{ws: ws, id: f.Get("id")}
		b.mu.Unlock()
	case stomp.CmdSend:
		b.mu.Lock()
		b.sent = append(b.sent, f)
		b.mu.Unlock()
	case stomp.CmdDisconnect:
		if id := f.Get("receipt"); id != "" {
			ws.Write(ctx, websocket.MessageText, stomp.NewFrame(stomp.CmdReceipt, nil, "receipt-id", id).Encode())
		}
	}
	return true
}

func (b *Broker) forget(ws *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, ws)
	for dest, sub := range b.subs {
		if sub.ws == ws {
			delete(b.subs, dest)
		}
	}
}
