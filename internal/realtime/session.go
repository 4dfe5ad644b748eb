// internal/realtime/session.go
package realtime

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jason-s-yu/belatro/internal/middleware"
	"github.com/jason-s-yu/belatro/internal/stomp"
	"github.com/sirupsen/logrus"
)

// Credentials identify the player on the realtime endpoint.
type Credentials struct {
	MatchID    string
	Token      string
	PlayerName string
}

func (c Credentials) complete() bool {
	return c.MatchID != "" && c.Token != "" && c.PlayerName != ""
}

// Session is one established realtime connection.
type Session interface {
	Subscribe(ctx context.Context, destination string, fn func(body []byte)) error
	Send(ctx context.Context, destination string, body []byte) error
	Heartbeat(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// Done is closed when the session ends; Err then reports why.
	Done() <-chan struct{}
	Err() error
}

// Connector builds a fresh Session for every connection attempt.
type Connector interface {
	Connect(ctx context.Context, creds Credentials) (Session, error)
}

// StompConnector dials the backend's STOMP-over-WebSocket endpoint.
type StompConnector struct {
	URL       string
	HeartBeat time.Duration
	Logger    *logrus.Logger
}

func (sc StompConnector) Connect(ctx context.Context, creds Credentials) (Session, error) {
	u, err := url.Parse(sc.URL)
	if err != nil {
		return nil, err
	}
	if creds.PlayerName != "" {
		q := u.Query()
		q.Set("user", creds.PlayerName)
		u.RawQuery = q.Encode()
	}

	header := map[string]string{
		"Authorization": "Bearer " + creds.Token,
		"X-Player-Name": creds.PlayerName,
	}
	if creds.MatchID != "" {
		header["X-Match-ID"] = creds.MatchID
	}
	httpHeader := http.Header{}
	httpHeader.Set("Authorization", "Bearer "+creds.Token)

	conn, err := stomp.Dial(ctx, stomp.Options{
		URL:        u.String(),
		Header:     header,
		HTTPHeader: httpHeader,
		HeartBeat:  sc.HeartBeat,
		Logger:     sc.Logger,
	})
	if err != nil {
		return nil, err
	}

	logger := sc.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	middleware.LogSocketConnect(logger, u.Host+u.Path, conn.Version)
	go func() {
		<-conn.Done()
		middleware.LogSocketDisconnect(logger, u.Host+u.Path, conn.Err())
	}()
	return stompSession{conn}, nil
}

type stompSession struct {
	*stomp.Conn
}

func (s stompSession) Subscribe(ctx context.Context, destination string, fn func([]byte)) error {
	_, err := s.Conn.Subscribe(ctx, destination, func(f stomp.Frame) { fn(f.Body) })
	return err
}
