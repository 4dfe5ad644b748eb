// internal/historian/historian.go is the archive pipeline: it drains journaled
// match events from a queue and persists them in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/belatro/internal/database"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Source yields journaled events. Pop returns nil, nil when nothing arrived
// within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*models.MatchEvent, error)
}

// Sink persists a batch of events.
type Sink interface {
	Insert(ctx context.Context, events []models.MatchEvent) error
}

// PoolSink writes batches to Postgres.
type PoolSink struct {
	Pool *pgxpool.Pool
}

func (s PoolSink) Insert(ctx context.Context, events []models.MatchEvent) error {
	return database.InsertMatchEvents(ctx, s.Pool, events)
}

// Options tune batching. Zero values fall back to the defaults.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	// IdleAfter is how long a match may go without events before it is
	// reported as idle and no longer tracked.
	IdleAfter  time.Duration
	PopTimeout time.Duration
}

func (o *Options) defaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = 500 * time.Millisecond
	}
	if o.IdleAfter <= 0 {
		o.IdleAfter = 10 * time.Minute
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 3 * time.Second
	}
}

const flushTimeout = 5 * time.Second

// Service batches events from a Source into a Sink.
type Service struct {
	source Source
	sink   Sink
	opts   Options
	clock  clockwork.Clock
	log    *logrus.Logger

	batchMu      sync.Mutex
	batch        []models.MatchEvent
	lastActivity map[string]time.Time
}

func NewService(source Source, sink Sink, opts Options, clock clockwork.Clock, logger *logrus.Logger) *Service {
	opts.defaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source:       source,
		sink:         sink,
		opts:         opts,
		clock:        clock,
		log:          logger,
		batch:        make([]models.MatchEvent, 0, opts.BatchSize),
		lastActivity: make(map[string]time.Time),
	}
}

// Run drains the source until ctx ends, then flushes what is left. Popped
// events go straight into the batch, so nothing taken off the source is
// lost when ctx ends mid-flush.
func (s *Service) Run(ctx context.Context) {
	full := make(chan struct{}, 1)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ctx, full)
	}()

	ticker := s.clock.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	s.log.Info("belatro-historian service started.")
	for {
		select {
		case <-ctx.Done():
			<-readDone
			s.flush(ctx)
			s.log.Info("belatro-historian shutting down.")
			return
		case <-full:
			s.flush(ctx)
		case <-ticker.Chan():
			s.flush(ctx)
			s.sweepIdle()
		}
	}
}

func (s *Service) readLoop(ctx context.Context, full chan<- struct{}) {
	for ctx.Err() == nil {
		ev, err := s.source.Pop(ctx, s.opts.PopTimeout)
		if ev != nil && s.append(*ev) {
			select {
			case full <- struct{}{}:
			default:
			}
		}
		if err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("failed to pop match event")
			select {
			case <-s.clock.After(time.Second):
			case <-ctx.Done():
			}
		}
	}
}

// append adds ev to the batch and reports whether the batch is full.
func (s *Service) append(ev models.MatchEvent) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, ev)
	s.lastActivity[ev.MatchID] = s.clock.Now()
	return len(s.batch) >= s.opts.BatchSize
}

// Pending is the number of events waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// flush inserts the pending batch. The insert outlives cancellation of ctx
// so a shutdown does not abort a batch already taken from the queue.
func (s *Service) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batchCopy := make([]models.MatchEvent, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.Insert(ctx, batchCopy); err != nil {
		s.log.WithError(err).WithField("events", len(batchCopy)).Error("flushBatch failed")
		return
	}
	s.log.Debugf("Flushed %d match events.", len(batchCopy))
}

// sweepIdle forgets matches that have been quiet longer than IdleAfter and
// returns their ids.
func (s *Service) sweepIdle() []string {
	now := s.clock.Now()
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	var idle []string
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.opts.IdleAfter {
			idle = append(idle, id)
			delete(s.lastActivity, id)
			s.log.WithField("match_id", id).Info("match went idle")
		}
	}
	return idle
}
