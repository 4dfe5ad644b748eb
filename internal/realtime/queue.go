// internal/realtime/queue.go
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueCancelled = errors.New("ranked queue cancelled")
	ErrQueueFailed    = errors.New("ranked queue reported an error")
)

// QueueAPI is the REST side of ranked matchmaking.
type QueueAPI interface {
	JoinRankedQueue(ctx context.Context) error
	LeaveRankedQueue(ctx context.Context) error
}

// QueueWatcher waits in the ranked queue until the server assigns a match.
type QueueWatcher struct {
	api       QueueAPI
	connector Connector
	creds     Credentials
	log       *logrus.Entry
}

func NewQueueWatcher(api QueueAPI, connector Connector, token, playerName string, logger *logrus.Logger) *QueueWatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QueueWatcher{
		api:       api,
		connector: connector,
		creds:     Credentials{Token: token, PlayerName: playerName},
		log:       logger.WithField("player", playerName),
	}
}

// Wait subscribes to queue status, joins the queue and blocks until a match
// is found, the server cancels, or ctx ends. On ctx end the queue is left.
// onStatus, when non-nil, sees every status frame.
func (w *QueueWatcher) Wait(ctx context.Context, onStatus func(models.QueueStatus)) (string, error) {
	sess, err := w.connector.Connect(ctx, w.creds)
	if err != nil {
		return "", fmt.Errorf("failed to connect for queue updates: %w", err)
	}
	done := make(chan struct{})
	defer func() {
		close(done)
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sess.Disconnect(dctx)
	}()

	statuses := make(chan *models.QueueStatus)
	err = sess.Subscribe(ctx, RankedStatusQueue, func(body []byte) {
		s, err := models.DecodeQueueStatus(body)
		if err != nil {
			w.log.WithError(err).Error("dropping malformed queue status")
			return
		}
		select {
		case statuses <- s:
		case <-done:
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to subscribe to queue status: %w", err)
	}

	if err := w.api.JoinRankedQueue(ctx); err != nil {
		return "", fmt.Errorf("failed to join ranked queue: %w", err)
	}
	w.log.Info("joined ranked queue")

	for {
		select {
		case s := <-statuses:
			if onStatus != nil {
				onStatus(*s)
			}
			switch s.State {
			case models.QueueMatchFound:
				w.log.WithField("match_id", s.MatchID).Info("ranked match found")
				return s.MatchID, nil
			case models.QueueCancelled:
				return "", ErrQueueCancelled
			case models.QueueError:
				return "", ErrQueueFailed
			}
		case <-sess.Done():
			w.leave()
			return "", fmt.Errorf("queue updates lost: %w", sess.Err())
		case <-ctx.Done():
			w.leave()
			return "", ctx.Err()
		}
	}
}

func (w *QueueWatcher) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.api.LeaveRankedQueue(ctx); err != nil {
		w.log.WithError(err).Warn("failed to leave ranked queue")
	}
}
