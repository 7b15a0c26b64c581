package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/metrics"
)

type snapshotWriter interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) (bool, error)
}

// SyncerParams groups dependencies for the cart sync worker.
type SyncerParams struct {
	Writer      snapshotWriter
	Logger      *logger.Logger
	Metrics     *metrics.CartSyncMetrics
	QueueSize   int
	MaxRetries  uint64
	BaseBackoff time.Duration
	Now         func() time.Time
}

// Syncer is the single writer of cart snapshots to Postgres. Pending work is
// coalesced per user so only the newest version is written.
type Syncer struct {
	writer      snapshotWriter
	logg        *logger.Logger
	metrics     *metrics.CartSyncMetrics
	queueSize   int
	maxRetries  uint64
	baseBackoff time.Duration
	now         func() time.Time

	mu      sync.Mutex
	pending map[uuid.UUID]Snapshot
	order   []uuid.UUID
	health  map[uuid.UUID]*SyncHealth
	wake    chan struct{}

	writeMu sync.Mutex
}

func NewSyncer(params SyncerParams) (*Syncer, error) {
	if params.Writer == nil {
		return nil, errors.New("snapshot writer is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	backoff := params.BaseBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Syncer{
		writer:      params.Writer,
		logg:        logg,
		metrics:     params.Metrics,
		queueSize:   queueSize,
		maxRetries:  params.MaxRetries,
		baseBackoff: backoff,
		now:         now,
		pending:     map[uuid.UUID]Snapshot{},
		health:      map[uuid.UUID]*SyncHealth{},
		wake:        make(chan struct{}, 1),
	}, nil
}

// Enqueue schedules snap. An older or equal version than what is already
// pending for the same user is dropped.
func (s *Syncer) Enqueue(snap Snapshot) {
	s.mu.Lock()
	if current, ok := s.pending[snap.UserID]; ok {
		if current.Version >= snap.Version {
			s.mu.Unlock()
			return
		}
	} else {
		s.order = append(s.order, snap.UserID)
		if len(s.order) > s.queueSize {
			s.logg.Warn(context.Background(), fmt.Sprintf("cart sync backlog at %d users", len(s.order)))
		}
	}
	s.pending[snap.UserID] = snap
	h := s.healthLocked(snap.UserID)
	h.Pending = true
	h.LocalVersion = snap.Version
	s.metrics.SetPending(len(s.order))
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	for {
		for s.drainOne(ctx) {
			if ctx.Err() != nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
	}
}

// Flush writes everything pending before returning. Used on shutdown.
func (s *Syncer) Flush(ctx context.Context) error {
	for s.drainOne(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	s.writeMu.Lock()
	s.writeMu.Unlock()
	return ctx.Err()
}

// Health returns a copy of the sync state for userID.
func (s *Syncer) Health(userID uuid.UUID) SyncHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.health[userID]; ok {
		out := *h
		return out
	}
	return SyncHealth{Remote: true}
}

// Pending reports how many users have unsynced snapshots.
func (s *Syncer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Syncer) drainOne(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return false
	}
	userID := s.order[0]
	s.order = s.order[1:]
	snap := s.pending[userID]
	delete(s.pending, userID)
	s.metrics.SetPending(len(s.order))
	s.mu.Unlock()

	s.write(ctx, snap)
	return true
}

func (s *Syncer) write(ctx context.Context, snap Snapshot) {
	started := time.Now()
	attempts := 0
	applied := false

	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			s.metrics.IncRetry()
		}
		ok, err := s.writer.SaveSnapshot(ctx, snap)
		if err != nil {
			return retry.RetryableError(err)
		}
		applied = ok
		return nil
	})
	s.metrics.ObserveDuration(time.Since(started))

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.healthLocked(snap.UserID)
	_, h.Pending = s.pending[snap.UserID]
	h.Retries = attempts - 1

	switch {
	case err != nil && ctx.Err() != nil:
		// Interrupted by shutdown; hand it back to Flush unless superseded.
		if _, ok := s.pending[snap.UserID]; !ok {
			s.pending[snap.UserID] = snap
			s.order = append([]uuid.UUID{snap.UserID}, s.order...)
			s.metrics.SetPending(len(s.order))
		}
		h.Pending = true
	case err != nil:
		h.LastFailureAt = &now
		h.LastError = err.Error()
		s.metrics.IncWrite(metrics.SyncResultFailure)
		logCtx := s.logg.WithUserID(context.Background(), snap.UserID.String())
		s.logg.Error(s.logg.WithCartID(logCtx, snap.CartID.String()), fmt.Sprintf("cart sync failed for version %d", snap.Version), err)
	case !applied:
		h.StaleRejections++
		s.metrics.IncWrite(metrics.SyncResultStale)
	default:
		h.LastSuccessAt = &now
		h.LastError = ""
		if snap.Version > h.SyncedVersion {
			h.SyncedVersion = snap.Version
		}
		s.metrics.IncWrite(metrics.SyncResultSuccess)
	}
}

func (s *Syncer) healthLocked(userID uuid.UUID) *SyncHealth {
	h, ok := s.health[userID]
	if !ok {
		h = &SyncHealth{Remote: true}
		s.health[userID] = h
	}
	return h
}

// MarkSynced records a write done outside the worker (cart merge).
func (s *Syncer) MarkSynced(userID uuid.UUID, version int64) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.healthLocked(userID)
	h.LastSuccessAt = &now
	h.LastError = ""
	h.LocalVersion = version
	if version > h.SyncedVersion {
		h.SyncedVersion = version
	}
	if pending, ok := s.pending[userID]; ok && pending.Version <= version {
		delete(s.pending, userID)
		for i, id := range s.order {
			if id == userID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.metrics.SetPending(len(s.order))
	}
	_, h.Pending = s.pending[userID]
}
