package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/soundmark/soundmark/internal/apperr"
	"github.com/soundmark/soundmark/internal/fingerprint"
	"github.com/stretchr/testify/require"
)

func waitForTerminal(t *testing.T, r *Runner, id uuid.UUID) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s, err := r.Status(id)
		require.NoError(t, err)
		if s.State != Pending {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return Status{}
}

func TestSubmitAndStatusLifecycle(t *testing.T) {
	r := &Runner{
		queue:    newJobQueue(),
		statuses: make(map[uuid.UUID]*Status),
	}
	r.wg.Add(1)
	go r.worker(0)
	defer r.Shutdown()

	id := r.submit(func() (any, error) { return "ok", nil })
	s := waitForTerminal(t, r, id)

	require.Equal(t, Success, s.State)
	require.Equal(t, "ok", s.Result)
	require.Nil(t, s.Err)
}

func TestSubmitFailurePropagatesError(t *testing.T) {
	r := &Runner{
		queue:    newJobQueue(),
		statuses: make(map[uuid.UUID]*Status),
	}
	r.wg.Add(1)
	go r.worker(0)
	defer r.Shutdown()

	wantErr := apperr.Newf(apperr.StorageError, "boom")
	id := r.submit(func() (any, error) { return nil, wantErr })
	s := waitForTerminal(t, r, id)

	require.Equal(t, Fail, s.State)
	require.True(t, errors.Is(s.Err, wantErr) || apperr.KindOf(s.Err) == apperr.StorageError)
}

func TestStatusUnknownJobIsNotFound(t *testing.T) {
	r := &Runner{statuses: make(map[uuid.UUID]*Status)}
	_, err := r.Status(uuid.New())
	require.True(t, apperr.Is(err, apperr.NotFound))
}

func TestJobQueuePushNeverBlocksUnderBurst(t *testing.T) {
	q := newJobQueue()
	done := make(chan struct{})
	go func() {
		// No worker drains this queue; every push must still return
		// immediately since the backing store grows instead of
		// blocking on a fixed channel capacity.
		for i := 0; i < 10000; i++ {
			q.push(job{id: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked under a burst of submissions")
	}
}

func TestJobQueueFIFOOrder(t *testing.T) {
	q := newJobQueue()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids = append(ids, id)
		q.push(job{id: id})
	}
	for _, want := range ids {
		j, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, want, j.id)
	}
}

func TestJobQueueCloseDrainsThenStops(t *testing.T) {
	q := newJobQueue()
	q.push(job{id: uuid.New()})
	q.push(job{id: uuid.New()})
	q.close()

	_, ok := q.pop()
	require.True(t, ok)
	_, ok = q.pop()
	require.True(t, ok)
	_, ok = q.pop()
	require.False(t, ok)
}

func TestSampleWithoutReplacementBoundsAndPreservesWhenSmall(t *testing.T) {
	small := make([]fingerprint.Landmark, 10)
	require.Len(t, sampleWithoutReplacement(small, 5000), 10)

	large := make([]fingerprint.Landmark, 6000)
	for i := range large {
		large[i].AnchorTime = i
	}
	sampled := sampleWithoutReplacement(large, maxQueryHashes)
	require.Len(t, sampled, maxQueryHashes)

	seen := make(map[int]bool, len(sampled))
	for _, lm := range sampled {
		require.False(t, seen[lm.AnchorTime], "sample must be without replacement")
		seen[lm.AnchorTime] = true
	}
}
