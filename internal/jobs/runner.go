// Package jobs runs a bounded worker pool that executes MATCH and
// INGEST jobs and tracks per-job status for a submission boundary to
// poll.
package jobs

import (
	"math/rand"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/soundmark/soundmark/internal/apperr"
	"github.com/soundmark/soundmark/internal/audio"
	"github.com/soundmark/soundmark/internal/fingerprint"
	"github.com/soundmark/soundmark/internal/index"
	"github.com/soundmark/soundmark/internal/logging"
	"go.uber.org/zap"
)

// State is a job's position in its lifecycle. It transitions at most
// once to a terminal state and is never mutated afterward.
type State string

const (
	Pending State = "PENDING"
	Success State = "SUCCESS"
	Fail    State = "FAIL"
)

// maxQueryHashes bounds the MATCH pipeline's sample size.
const maxQueryHashes = 5000

// Status is the record returned by a job-status lookup.
type Status struct {
	State  State
	Result any
	Err    error
}

type job struct {
	id   uuid.UUID
	task func() (any, error)
}

// jobQueue is an unbounded FIFO queue of jobs. Unlike a channel, push
// never blocks on capacity: submission must never stall the submitting
// goroutine behind a burst of work the pool hasn't drained yet.
type jobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []job
	closed bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *jobQueue) push(j job) {
	q.mu.Lock()
	q.items = append(q.items, j)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a job is available or the queue is closed, returning
// ok=false only once everything queued before close has drained.
func (q *jobQueue) pop() (j job, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return job{}, false
	}
	j, q.items = q.items[0], q.items[1:]
	return j, true
}

func (q *jobQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Runner is a fixed-size worker pool that executes submitted jobs.
type Runner struct {
	idx        *index.Index
	sampleRate int

	queue    *jobQueue
	statuses map[uuid.UUID]*Status
	mu       sync.RWMutex

	wg sync.WaitGroup
}

// NewRunner starts workers goroutines draining an unbounded job queue
// (default 4 if workers is non-positive).
func NewRunner(idx *index.Index, sampleRate, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	r := &Runner{
		idx:        idx,
		sampleRate: sampleRate,
		queue:      newJobQueue(),
		statuses:   make(map[uuid.UUID]*Status),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	for {
		j, ok := r.queue.pop()
		if !ok {
			return
		}
		result, err := j.task()
		r.mu.Lock()
		if err != nil {
			r.statuses[j.id] = &Status{State: Fail, Err: err}
		} else {
			r.statuses[j.id] = &Status{State: Success, Result: result}
		}
		r.mu.Unlock()
		if err != nil {
			logging.L().Warn("job failed", zap.Int("worker", id), zap.String("job_id", j.id.String()), zap.Error(err))
		}
	}
}

func (r *Runner) submit(task func() (any, error)) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.statuses[id] = &Status{State: Pending}
	r.mu.Unlock()
	r.queue.push(job{id: id, task: task})
	return id
}

// Shutdown closes the job queue and blocks until every in-flight worker
// has drained whatever was queued before close.
func (r *Runner) Shutdown() {
	r.queue.close()
	r.wg.Wait()
}

// Status looks up a job's current record, returning NotFound for an
// unknown id.
func (r *Runner) Status(id uuid.UUID) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[id]
	if !ok {
		return Status{}, apperr.Newf(apperr.NotFound, "job %s not found", id)
	}
	return *s, nil
}

// SubmitMatch enqueues a MATCH job against filePath.
func (r *Runner) SubmitMatch(filePath string) uuid.UUID {
	return r.submit(func() (any, error) { return r.runMatch(filePath) })
}

// SubmitIngest enqueues an INGEST job for audioPath under meta.
func (r *Runner) SubmitIngest(meta index.Metadata, audioPath string) uuid.UUID {
	return r.submit(func() (any, error) { return r.runIngest(meta, audioPath) })
}

func (r *Runner) runMatch(filePath string) (any, error) {
	defer os.Remove(filePath)

	samples, err := audio.Decode(filePath, r.sampleRate)
	if err != nil {
		return nil, err
	}
	if samples.MaxAbs() < 1e-3 {
		return nil, apperr.Newf(apperr.SilentInput, "decoded buffer is silent (max |y| < 1e-3)")
	}
	if len(samples.Data) < fingerprint.NFFT {
		return nil, apperr.Newf(apperr.DecodeError, "decoded %d samples, fewer than one %d-sample analysis window", len(samples.Data), fingerprint.NFFT)
	}

	spec := fingerprint.Compute(samples.Data, samples.SampleRate)
	peaks := fingerprint.Pick(spec)
	landmarks := fingerprint.Fingerprint(peaks)

	sampled := sampleWithoutReplacement(landmarks, maxQueryHashes)
	queryHashes := make([]index.QueryHash, len(sampled))
	for i, lm := range sampled {
		queryHashes[i] = index.QueryHash{Hash: lm.Hash, QueryOffset: int32(lm.AnchorTime)}
	}

	return r.idx.FindMatches(queryHashes)
}

func (r *Runner) runIngest(meta index.Metadata, audioPath string) (any, error) {
	defer os.Remove(audioPath)

	samples, err := audio.Decode(audioPath, r.sampleRate)
	if err != nil {
		return nil, err
	}
	if len(samples.Data) < fingerprint.NFFT {
		return nil, apperr.Newf(apperr.DecodeError, "decoded %d samples, fewer than one %d-sample analysis window", len(samples.Data), fingerprint.NFFT)
	}

	spec := fingerprint.Compute(samples.Data, samples.SampleRate)
	peaks := fingerprint.Pick(spec)
	landmarks := fingerprint.Fingerprint(peaks)

	songID, err := r.idx.InsertSong(meta)
	if err != nil {
		return nil, err
	}

	rows := make([]index.Fingerprint, len(landmarks))
	for i, lm := range landmarks {
		rows[i] = index.Fingerprint{Hash: lm.Hash, SongID: songID, TimeOffset: int32(lm.AnchorTime)}
	}
	if err := r.idx.BulkInsertFingerprints(rows, songID); err != nil {
		return nil, err
	}

	return songID, nil
}

// sampleWithoutReplacement returns up to n elements of in, chosen
// uniformly without replacement, or all of in if it has fewer than n
// elements.
func sampleWithoutReplacement(in []fingerprint.Landmark, n int) []fingerprint.Landmark {
	if len(in) <= n {
		return in
	}
	idxs := rand.Perm(len(in))[:n]
	out := make([]fingerprint.Landmark, n)
	for i, src := range idxs {
		out[i] = in[src]
	}
	return out
}
