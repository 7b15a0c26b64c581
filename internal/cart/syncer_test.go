package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu       sync.Mutex
	versions []int64
	stored   map[uuid.UUID]int64
	err      error
}

func (w *recordingWriter) SaveSnapshot(_ context.Context, snap Snapshot) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return false, w.err
	}
	w.versions = append(w.versions, snap.Version)
	if w.stored == nil {
		w.stored = map[uuid.UUID]int64{}
	}
	if w.stored[snap.UserID] >= snap.Version {
		return false, nil
	}
	w.stored[snap.UserID] = snap.Version
	return true, nil
}

func newTestSyncer(t *testing.T, w snapshotWriter) *Syncer {
	t.Helper()
	s, err := NewSyncer(SyncerParams{Writer: w, MaxRetries: 2, BaseBackoff: time.Millisecond, Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	return s
}

func TestSyncerCoalescesPerUser(t *testing.T) {
	w := &recordingWriter{}
	s := newTestSyncer(t, w)
	userID := uuid.New()

	s.Enqueue(Snapshot{UserID: userID, Version: 1})
	s.Enqueue(Snapshot{UserID: userID, Version: 3})
	s.Enqueue(Snapshot{UserID: userID, Version: 2})
	require.Equal(t, 1, s.Pending())

	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, []int64{3}, w.versions)

	h := s.Health(userID)
	require.False(t, h.Pending)
	require.Equal(t, int64(3), h.SyncedVersion)
	require.NotNil(t, h.LastSuccessAt)
}

func TestSyncerCountsStaleRejections(t *testing.T) {
	userID := uuid.New()
	w := &recordingWriter{stored: map[uuid.UUID]int64{userID: 5}}
	s := newTestSyncer(t, w)

	s.Enqueue(Snapshot{UserID: userID, Version: 3})
	require.NoError(t, s.Flush(context.Background()))

	h := s.Health(userID)
	require.Equal(t, 1, h.StaleRejections)
	require.Equal(t, int64(0), h.SyncedVersion)
	require.Equal(t, int64(5), w.stored[userID])
}

func TestSyncerRecordsFailureAfterRetries(t *testing.T) {
	w := &recordingWriter{err: errors.New("connection refused")}
	s := newTestSyncer(t, w)
	userID := uuid.New()

	s.Enqueue(Snapshot{UserID: userID, Version: 1})
	require.NoError(t, s.Flush(context.Background()))

	h := s.Health(userID)
	require.Equal(t, "connection refused", h.LastError)
	require.NotNil(t, h.LastFailureAt)
	require.Equal(t, 2, h.Retries)
	require.Equal(t, 0, s.Pending())
}

func TestSyncerRunDrainsUntilCancelled(t *testing.T) {
	w := &recordingWriter{}
	s := newTestSyncer(t, w)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	userID := uuid.New()
	s.Enqueue(Snapshot{UserID: userID, Version: 1})

	require.Eventually(t, func() bool {
		return s.Health(userID).SyncedVersion == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMarkSyncedDropsOlderPending(t *testing.T) {
	s := newTestSyncer(t, &recordingWriter{})
	userID := uuid.New()

	s.Enqueue(Snapshot{UserID: userID, Version: 2})
	s.MarkSynced(userID, 3)

	require.Equal(t, 0, s.Pending())
	h := s.Health(userID)
	require.False(t, h.Pending)
	require.Equal(t, int64(3), h.SyncedVersion)
}
