// internal/stomp/conn.go
package stomp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by operations on a connection that has shut down.
var ErrClosed = errors.New("stomp connection closed")

// Subprotocols offered during the WebSocket handshake.
var Subprotocols = []string{"v12.stomp", "v11.stomp"}

// ServerError is an ERROR frame received from the broker.
type ServerError struct {
	Message string
	Body    string
}

func (e *ServerError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("stomp server error: %s: %s", e.Message, e.Body)
	}
	return "stomp server error: " + e.Message
}

// Options configures Dial.
type Options struct {
	// URL is the WebSocket endpoint (ws, wss, http or https scheme).
	URL string
	// Header is added to the CONNECT frame.
	Header map[string]string
	// HTTPHeader is sent with the WebSocket upgrade request.
	HTTPHeader http.Header
	// HeartBeat is advertised in both directions; zero disables heart-beating.
	HeartBeat time.Duration
	// WriteTimeout bounds every frame write. Defaults to 10s.
	WriteTimeout time.Duration
	// ReadLimit caps inbound WebSocket messages. Defaults to 1 MiB.
	ReadLimit int64
	Logger    *logrus.Logger
}

// Conn is a STOMP session over a single WebSocket.
type Conn struct {
	ws      *websocket.Conn
	log     *logrus.Entry
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu       sync.Mutex
	subs     map[string]func(Frame)
	receipts map[string]chan struct{}

	Version string
	Server  string

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial opens the WebSocket, performs the CONNECT handshake and starts the
// read loop. It returns a *ServerError when the broker refuses the session.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid stomp url %q: %w", opts.URL, err)
	}

	ws, _, err := websocket.Dial(ctx, opts.URL, &websocket.DialOptions{
		HTTPHeader:   opts.HTTPHeader,
		Subprotocols: Subprotocols,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", u.Host, err)
	}
	ws.SetReadLimit(opts.ReadLimit)

	connCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:       ws,
		log:      opts.Logger.WithField("endpoint", u.Host),
		timeout:  opts.WriteTimeout,
		ctx:      connCtx,
		cancel:   cancel,
		subs:     make(map[string]func(Frame)),
		receipts: make(map[string]chan struct{}),
		done:     make(chan struct{}),
	}

	hb := strconv.FormatInt(opts.HeartBeat.Milliseconds(), 10)
	connect := NewFrame(CmdConnect, nil,
		"accept-version", "1.2,1.1",
		"host", u.Hostname(),
		"heart-beat", hb+","+hb,
	)
	for k, v := range opts.Header {
		connect.Header[k] = v
	}
	if err := c.write(ctx, connect.Encode()); err != nil {
		ws.CloseNow()
		cancel()
		return nil, fmt.Errorf("failed to send CONNECT: %w", err)
	}

	reply, err := c.awaitConnected(ctx)
	if err != nil {
		ws.CloseNow()
		cancel()
		return nil, err
	}
	c.Version = reply.Get("version")
	c.Server = reply.Get("server")
	c.log.WithFields(logrus.Fields{
		"version": c.Version,
		"server":  c.Server,
	}).Debug("STOMP session established")

	go c.readLoop()
	return c, nil
}

func (c *Conn) awaitConnected(ctx context.Context) (Frame, error) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return Frame{}, fmt.Errorf("failed waiting for CONNECTED: %w", err)
		}
		frames, err := ParseFrames(data)
		if err != nil {
			return Frame{}, err
		}
		if len(frames) == 0 {
			continue
		}
		f := frames[0]
		switch f.Command {
		case CmdConnected:
			return f, nil
		case CmdError:
			return Frame{}, &ServerError{Message: f.Get("message"), Body: string(f.Body)}
		default:
			return Frame{}, fmt.Errorf("%w: expected CONNECTED, got %s", ErrMalformedFrame, f.Command)
		}
	}
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			c.shutdown(fmt.Errorf("stomp read failed: %w", err))
			return
		}
		frames, err := ParseFrames(data)
		if err != nil {
			c.log.Warnf("dropping unparseable message: %v", err)
		}
		for _, f := range frames {
			if !c.dispatch(f) {
				return
			}
		}
	}
}

// dispatch routes one inbound frame. It returns false once the connection is dead.
func (c *Conn) dispatch(f Frame) bool {
	switch f.Command {
	case CmdMessage:
		c.mu.Lock()
		fn := c.subs[f.Get("subscription")]
		c.mu.Unlock()
		if fn == nil {
			c.log.Debugf("message for unknown subscription %q on %s", f.Get("subscription"), f.Get("destination"))
			return true
		}
		fn(f)
	case CmdReceipt:
		c.mu.Lock()
		ch, ok := c.receipts[f.Get("receipt-id")]
		delete(c.receipts, f.Get("receipt-id"))
		c.mu.Unlock()
		if ok {
			close(ch)
		}
	case CmdError:
		c.shutdown(&ServerError{Message: f.Get("message"), Body: string(f.Body)})
		return false
	default:
		c.log.Debugf("ignoring %s frame", f.Command)
	}
	return true
}

// Subscribe registers fn for MESSAGE frames on destination. fn runs on the
// read loop and must not block.
func (c *Conn) Subscribe(ctx context.Context, destination string, fn func(Frame)) (string, error) {
	id := uuid.NewString()
	c.mu.Lock()
	c.subs[id] = fn
	c.mu.Unlock()

	f := NewFrame(CmdSubscribe, nil, "id", id, "destination", destination, "ack", "auto")
	if err := c.write(ctx, f.Encode()); err != nil {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		return "", fmt.Errorf("failed to subscribe to %s: %w", destination, err)
	}
	return id, nil
}

// Send publishes a JSON body to destination.
func (c *Conn) Send(ctx context.Context, destination string, body []byte) error {
	f := NewFrame(CmdSend, body,
		"destination", destination,
		"content-type", "application/json;charset=UTF-8",
	)
	if err := c.write(ctx, f.Encode()); err != nil {
		return fmt.Errorf("failed to send to %s: %w", destination, err)
	}
	return nil
}

// Heartbeat writes a single EOL heart-beat.
func (c *Conn) Heartbeat(ctx context.Context) error {
	return c.write(ctx, []byte{'\n'})
}

// Disconnect sends DISCONNECT, waits for its receipt until ctx expires and
// closes the socket. It is safe to call more than once.
func (c *Conn) Disconnect(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	id := uuid.NewString()
	ch := make(chan struct{})
	c.mu.Lock()
	c.receipts[id] = ch
	c.mu.Unlock()

	var err error
	if werr := c.write(ctx, NewFrame(CmdDisconnect, nil, "receipt", id).Encode()); werr != nil {
		err = werr
	} else {
		select {
		case <-ch:
		case <-c.done:
		case <-ctx.Done():
			err = fmt.Errorf("no receipt for DISCONNECT: %w", ctx.Err())
		}
	}

	first := false
	c.closeOnce.Do(func() {
		c.err = ErrClosed
		close(c.done)
		first = true
	})
	if first {
		c.ws.Close(websocket.StatusNormalClosure, "disconnect")
		c.cancel()
	}
	return err
}

// Done is closed when the connection has shut down for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection shut down. It is nil while the connection is alive.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		c.cancel()
		c.ws.CloseNow()
		c.log.WithError(err).Debug("STOMP connection closed")
	})
}

func (c *Conn) write(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}
