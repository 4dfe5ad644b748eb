// internal/realtime/client.go
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingCredentials = errors.New("match id, token and player name are required")
	ErrNotConnected       = errors.New("not connected")
	ErrNoCardSelected     = errors.New("no card selected")
	ErrClosed             = errors.New("match client closed")
)

// cancelBody is what the server publishes on the public topic when a match is aborted.
const cancelBody = "DISCONNECT"

const RankedStatusQueue = "/user/queue/ranked/status"

func PublicTopic(matchID string) string  { return "/topic/games/" + matchID }
func PrivateQueue(matchID string) string { return "/user/queue/games/" + matchID }
func RematchTopic(matchID string) string { return "/topic/games/" + matchID + "/rematch" }

// ActionDestination is where a client action for a match is sent.
func ActionDestination(matchID, action string) string {
	return "/app/games/" + matchID + "/" + action
}

// Config holds what a MatchClient needs to connect and stay connected.
type Config struct {
	Credentials
	Backoff           Backoff
	HeartbeatInterval time.Duration
	// WriteTimeout bounds every send, heartbeat and graceful disconnect.
	WriteTimeout time.Duration
}

func DefaultConfig(creds Credentials) Config {
	return Config{
		Credentials:       creds,
		Backoff:           DefaultBackoff(),
		HeartbeatInterval: 9 * time.Second,
		WriteTimeout:      5 * time.Second,
	}
}

// Update is delivered to the listener after every state or view change.
type Update struct {
	State ConnectionState
	View  View
	// Err is set for handshake and transport failures and for inbound
	// payloads that failed validation (see models.ParseError).
	Err error
	// Cancelled is set when the server aborted the match.
	Cancelled bool
	Rematch   *models.RematchEvent
}

// Journal receives realtime traffic for archiving.
type Journal interface {
	Record(ctx context.Context, ev models.MatchEvent) error
}

type Option func(*MatchClient)

func WithClock(clock Clock) Option {
	return func(c *MatchClient) { c.clock = clock }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *MatchClient) { c.logger = logger }
}

// WithListener sets the update callback. It runs on the client's event loop
// and must not call back into the client's blocking methods.
func WithListener(fn func(Update)) Option {
	return func(c *MatchClient) { c.listener = fn }
}

func WithJournal(j Journal) Option {
	return func(c *MatchClient) { c.journal = j }
}

type channel int

const (
	channelPublic channel = iota
	channelPrivate
	channelRematch
)

type (
	evStart     struct{}
	evHandshake struct {
		gen  uint64
		sess Session
		err  error
	}
	evTransportError struct {
		gen uint64
		err error
	}
	evRetryDue  struct{ gen uint64 }
	evHeartbeat struct{ gen uint64 }
	evMessage   struct {
		gen  uint64
		ch   channel
		body []byte
	}
	evAction struct {
		kind  string
		body  any
		reply chan error
	}
	evTeardown struct{}
)

// MatchClient keeps one player connected to one match's realtime channels.
// A single event loop owns the connection state; network work runs on helper
// goroutines that report back to it.
type MatchClient struct {
	cfg       Config
	connector Connector
	clock     Clock
	sched     *Scheduler
	logger    *logrus.Logger
	log       *logrus.Entry
	listener  func(Update)
	journal   Journal
	journalCh chan models.MatchEvent

	ctx      context.Context
	cancel   context.CancelFunc
	events   chan any
	stopping chan struct{}
	done     chan struct{}
	started  atomic.Bool

	// owned by the event loop
	state      ConnectionState
	gen        uint64
	attempt    int
	sess       Session
	dialCancel context.CancelFunc
	retry      *Task
	heartbeat  *Task
	projector  *Projector

	mu       sync.RWMutex
	snapshot Update
}

func NewMatchClient(cfg Config, connector Connector, opts ...Option) *MatchClient {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 9 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	c := &MatchClient{
		cfg:       cfg,
		connector: connector,
		clock:     clockwork.NewRealClock(),
		logger:    logrus.StandardLogger(),
		events:    make(chan any),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
		state:     StateIdle,
		projector: NewProjector(cfg.PlayerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sched = NewScheduler(c.clock)
	c.log = c.logger.WithFields(logrus.Fields{
		"match_id": cfg.MatchID,
		"player":   cfg.PlayerName,
	})
	c.snapshot = Update{State: StateIdle}
	return c
}

// Start begins connecting in the background. Cancelling ctx has the same
// effect as Close.
func (c *MatchClient) Start(ctx context.Context) error {
	if !c.cfg.complete() {
		c.log.Warn("realtime credentials incomplete, not connecting")
		return ErrMissingCredentials
	}
	if !c.started.CompareAndSwap(false, true) {
		select {
		case <-c.done:
			return ErrClosed
		default:
			return nil
		}
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	if c.journal != nil {
		c.journalCh = make(chan models.MatchEvent, 256)
		go c.journalLoop()
	}
	go c.run()
	go func() {
		select {
		case <-c.ctx.Done():
			c.post(evTeardown{})
		case <-c.done:
		}
	}()
	c.post(evStart{})
	return nil
}

// Close tears the client down and waits until no timer or socket is left.
func (c *MatchClient) Close() {
	if c.started.CompareAndSwap(false, true) {
		close(c.stopping)
		close(c.done)
		c.mu.Lock()
		c.snapshot.State = StateDisconnected
		c.mu.Unlock()
		return
	}
	c.post(evTeardown{})
	<-c.done
}

// Done is closed once the client has shut down, including after a server-side cancel.
func (c *MatchClient) Done() <-chan struct{} {
	return c.done
}

func (c *MatchClient) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.State
}

func (c *MatchClient) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.View
}

// post hands ev to the event loop. It fails once teardown has begun.
func (c *MatchClient) post(ev any) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.stopping:
		return false
	}
}

func (c *MatchClient) run() {
	defer close(c.done)
	for {
		if !c.handle(<-c.events) {
			return
		}
	}
}

func (c *MatchClient) handle(ev any) bool {
	switch ev := ev.(type) {
	case evStart:
		if c.transition(EventStart, Update{}) {
			c.dial()
		}
	case evHandshake:
		c.onHandshake(ev)
	case evTransportError:
		c.onTransportError(ev)
	case evRetryDue:
		if ev.gen != c.gen {
			return true
		}
		if c.transition(EventRetryDue, Update{}) {
			c.retry = nil
			c.dial()
		}
	case evHeartbeat:
		if ev.gen != c.gen || c.state != StateConnected {
			return true
		}
		ctx, cancel := c.opContext()
		if err := c.sess.Heartbeat(ctx); err != nil {
			c.log.WithError(err).Debug("heartbeat failed")
		}
		cancel()
	case evMessage:
		if ev.gen != c.gen {
			return true
		}
		return c.onMessage(ev)
	case evAction:
		if c.state != StateConnected || c.sess == nil {
			ev.reply <- ErrNotConnected
			return true
		}
		ev.reply <- c.send(ev.kind, ev.body)
	case evTeardown:
		c.teardown(false)
		return false
	}
	return true
}

// transition applies e and publishes the resulting update.
func (c *MatchClient) transition(e Event, u Update) bool {
	next, ok := Next(c.state, e)
	if !ok {
		c.log.Debugf("ignoring %s in state %s", e, c.state)
		return false
	}
	if next != c.state {
		c.log.WithField("state", next).Debugf("%s -> %s", c.state, next)
	}
	c.state = next
	c.publish(u)
	return true
}

func (c *MatchClient) publish(u Update) {
	u.State = c.state
	u.View = c.projector.View()

	c.mu.Lock()
	c.snapshot = Update{State: u.State, View: u.View}
	c.mu.Unlock()

	if c.listener != nil {
		c.listener(u)
	}
}

func (c *MatchClient) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
}

func (c *MatchClient) dial() {
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.dialCancel = cancel

	c.log.WithField("attempt", c.attempt).Info("connecting to match")
	go func() {
		sess, err := c.connector.Connect(ctx, c.cfg.Credentials)
		if !c.post(evHandshake{gen: gen, sess: sess, err: err}) && sess != nil {
			c.closeSession(sess)
		}
	}()
}

func (c *MatchClient) onHandshake(ev evHandshake) {
	if ev.gen != c.gen || c.state != StateConnecting {
		if ev.sess != nil {
			go c.closeSession(ev.sess)
		}
		return
	}
	err := ev.err
	if err == nil {
		if err = c.bind(ev.sess, ev.gen); err != nil {
			go c.closeSession(ev.sess)
		}
	}
	if err != nil {
		c.dialCancel()
		c.dialCancel = nil
		c.log.WithError(err).WithField("attempt", c.attempt).Warn("match handshake failed")
		// frames from a half-bound session are stale from here on
		c.gen++
		c.transition(EventHandshakeFailed, Update{Err: err})
		c.scheduleRetry()
		return
	}

	c.attempt = 0
	c.transition(EventHandshakeOK, Update{})
	c.log.Info("connected to match")

	gen := ev.gen
	c.heartbeat = c.sched.Every(c.cfg.HeartbeatInterval, func() {
		c.post(evHeartbeat{gen: gen})
	})
	sess := c.sess
	go func() {
		select {
		case <-sess.Done():
			c.post(evTransportError{gen: gen, err: sess.Err()})
		case <-c.stopping:
		}
	}()
}

// bind subscribes both match channels and the rematch topic, then asks the
// server for a fresh snapshot. The refresh is the first frame sent on every
// new session.
func (c *MatchClient) bind(sess Session, gen uint64) error {
	ctx, cancel := c.opContext()
	defer cancel()

	id := c.cfg.MatchID
	subs := []struct {
		dest string
		ch   channel
	}{
		{PublicTopic(id), channelPublic},
		{PrivateQueue(id), channelPrivate},
		{RematchTopic(id), channelRematch},
	}
	for _, s := range subs {
		ch := s.ch
		err := sess.Subscribe(ctx, s.dest, func(body []byte) {
			c.post(evMessage{gen: gen, ch: ch, body: body})
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", s.dest, err)
		}
	}

	c.sess = sess
	if err := c.send("refresh", nil); err != nil {
		c.sess = nil
		return fmt.Errorf("failed to request refresh: %w", err)
	}
	return nil
}

func (c *MatchClient) scheduleRetry() {
	delay := c.cfg.Backoff.Delay(c.attempt)
	c.attempt++
	gen := c.gen
	c.retry = c.sched.After(delay, func() {
		c.post(evRetryDue{gen: gen})
	})
	c.log.WithFields(logrus.Fields{
		"attempt": c.attempt,
		"delay":   delay,
	}).Info("reconnect scheduled")
	c.transition(EventRetryScheduled, Update{})
}

func (c *MatchClient) onTransportError(ev evTransportError) {
	if ev.gen != c.gen || c.state != StateConnected {
		return
	}
	c.heartbeat.Cancel()
	c.heartbeat = nil
	c.sess = nil
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	err := ev.err
	if err == nil {
		err = errors.New("connection lost")
	}
	c.log.WithError(err).Warn("match connection lost")
	c.gen++
	c.transition(EventTransportError, Update{Err: err})
	c.scheduleRetry()
}

func (c *MatchClient) onMessage(ev evMessage) bool {
	switch ev.ch {
	case channelPublic:
		if string(bytes.TrimSpace(ev.body)) == cancelBody {
			c.log.Info("match cancelled by server")
			c.teardown(true)
			return false
		}
		v, err := models.DecodePublicView(ev.body)
		if err != nil {
			c.log.WithError(err).Error("dropping malformed public view")
			c.publish(Update{Err: err})
			return true
		}
		c.projector.ApplyPublic(v)
		c.record(models.Inbound, "public", ev.body)
		c.publish(Update{})
	case channelPrivate:
		v, err := models.DecodePrivateView(ev.body)
		if err != nil {
			c.log.WithError(err).Error("dropping malformed private view")
			c.publish(Update{Err: err})
			return true
		}
		c.projector.ApplyPrivate(v)
		c.publish(Update{})
	case channelRematch:
		re, err := models.DecodeRematchEvent(ev.body)
		if err != nil {
			c.log.WithError(err).Error("dropping malformed rematch event")
			c.publish(Update{Err: err})
			return true
		}
		c.record(models.Inbound, "rematch", ev.body)
		c.publish(Update{Rematch: re})
	}
	return true
}

func (c *MatchClient) send(kind string, body any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal %s: %w", kind, err)
		}
	}
	ctx, cancel := c.opContext()
	defer cancel()
	if err := c.sess.Send(ctx, ActionDestination(c.cfg.MatchID, kind), data); err != nil {
		return err
	}
	c.record(models.Outbound, kind, data)
	return nil
}

func (c *MatchClient) teardown(cancelled bool) {
	close(c.stopping)
	c.retry.Cancel()
	c.heartbeat.Cancel()
	c.retry, c.heartbeat = nil, nil
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.sess != nil {
		c.closeSession(c.sess)
		c.sess = nil
	}
	c.gen++
	c.transition(EventTeardown, Update{Cancelled: cancelled})
	c.cancel()
	c.log.WithField("cancelled", cancelled).Info("match client closed")
}

func (c *MatchClient) closeSession(sess Session) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()
	if err := sess.Disconnect(ctx); err != nil {
		c.log.WithError(err).Debug("disconnect was not acknowledged")
	}
}

func (c *MatchClient) record(dir models.Direction, kind string, payload []byte) {
	if c.journalCh == nil {
		return
	}
	ev := models.MatchEvent{
		ID:        uuid.New(),
		MatchID:   c.cfg.MatchID,
		Player:    c.cfg.PlayerName,
		Direction: dir,
		Kind:      kind,
		Timestamp: c.clock.Now().UnixMilli(),
	}
	if len(payload) > 0 {
		ev.Payload = json.RawMessage(payload)
	}
	select {
	case c.journalCh <- ev:
	default:
		c.log.Warn("journal backlog full, dropping match event")
	}
}

func (c *MatchClient) journalLoop() {
	for {
		select {
		case ev := <-c.journalCh:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
			if err := c.journal.Record(ctx, ev); err != nil {
				c.log.WithError(err).Warn("failed to journal match event")
			}
			cancel()
		case <-c.done:
			return
		}
	}
}
