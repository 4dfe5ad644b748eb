// internal/realtime/fakes_test.go
package realtime

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/sirupsen/logrus"
)

type sentFrame struct {
	dest string
	body string
}

// fakeSession records what the client sends and lets tests push inbound frames.
type fakeSession struct {
	mu           sync.Mutex
	subs         map[string]func([]byte)
	sent         []sentFrame
	heartbeats   int
	disconnected bool
	refuseSend   bool

	done chan struct{}
	once sync.Once
	err  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{subs: make(map[string]func([]byte)), done: make(chan struct{})}
}

func (s *fakeSession) Subscribe(_ context.Context, dest string, fn func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[dest] = fn
	return nil
}

func (s *fakeSession) Send(_ context.Context, dest string, body []byte) error {
	select {
	case <-s.done:
		return errors.New("session closed")
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuseSend {
		return errors.New("send refused")
	}
	s.sent = append(s.sent, sentFrame{dest: dest, body: string(body)})
	return nil
}

func (s *fakeSession) Heartbeat(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	return nil
}

func (s *fakeSession) Disconnect(context.Context) error {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
	s.close(nil)
	return nil
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) close(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// fail simulates the transport dropping.
func (s *fakeSession) fail() {
	s.close(errors.New("connection reset by peer"))
}

func (s *fakeSession) subscribed(dest string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[dest]
	return ok
}

// push delivers body as if the server published it on dest.
func (s *fakeSession) push(dest, body string) {
	s.mu.Lock()
	fn := s.subs[dest]
	s.mu.Unlock()
	if fn != nil {
		fn([]byte(body))
	}
}

func (s *fakeSession) frames() []sentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentFrame(nil), s.sent...)
}

func (s *fakeSession) sentTo(dest string) []string {
	var out []string
	for _, f := range s.frames() {
		if f.dest == dest {
			out = append(out, f.body)
		}
	}
	return out
}

func (s *fakeSession) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

func (s *fakeSession) wasDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

// fakeConnector refuses the first failFirst attempts and then hands out
// fakeSessions. The first failSend sessions refuse every Send.
type fakeConnector struct {
	mu        sync.Mutex
	failFirst int
	failSend  int
	calls     int
	creds     []Credentials
	sessions  []*fakeSession
}

func (fc *fakeConnector) Connect(_ context.Context, creds Credentials) (Session, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.calls++
	fc.creds = append(fc.creds, creds)
	if fc.calls <= fc.failFirst {
		return nil, errors.New("dial refused")
	}
	s := newFakeSession()
	s.refuseSend = len(fc.sessions) < fc.failSend
	fc.sessions = append(fc.sessions, s)
	return s, nil
}

func (fc *fakeConnector) Calls() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.calls
}

func (fc *fakeConnector) session(i int) *fakeSession {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if i >= len(fc.sessions) {
		return nil
	}
	return fc.sessions[i]
}

func (fc *fakeConnector) sessionCount() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.sessions)
}

// collector gathers updates instead of rendering them.
type collector struct {
	mu      sync.Mutex
	updates []Update
}

func (c *collector) listen(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *collector) all() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Update(nil), c.updates...)
}

func (c *collector) last() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) == 0 {
		return Update{}
	}
	return c.updates[len(c.updates)-1]
}

func (c *collector) count(state ConnectionState) int {
	n := 0
	prev := ConnectionState("")
	for _, u := range c.all() {
		if u.State == state && prev != state {
			n++
		}
		prev = u.State
	}
	return n
}

type fakeJournal struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (j *fakeJournal) Record(_ context.Context, ev models.MatchEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *fakeJournal) kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, ev := range j.events {
		out = append(out, string(ev.Direction)+":"+ev.Kind)
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
