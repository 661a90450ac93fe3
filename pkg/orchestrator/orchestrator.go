// Package orchestrator drives comparative analysis jobs: it validates
// requests against the loaded datasets, records jobs through a job.Store and
// computes them on a bounded pool of background workers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/dataset"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/metrics"
	"github.com/yumyai/cgcompare/pkg/model"
)

var (
	// ErrClosed is returned for submissions after Close.
	ErrClosed = errors.New("orchestrator is shut down")
	// ErrQueueFull is returned when queue_size jobs are already waiting for a worker.
	ErrQueueFull = errors.New("job queue is full")
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
	writeAttempts    = 3
)

type Options struct {
	Workers   int
	QueueSize int
	// Archive receives jobs on Store. Nil means stored jobs only live in the status store.
	Archive job.Store
	// TreeMethods are the accepted tree building methods; the first is the default.
	TreeMethods []string
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

type runFunc func(ctx context.Context) (*job.Result, error)

type task struct {
	job *job.Job
	run runFunc
}

type Orchestrator struct {
	datasets *dataset.Registry
	jobs     job.Store
	archive  job.Store
	builder  model.TreeBuilder
	metrics  *metrics.Metrics
	now      func() time.Time

	methods       map[string]struct{}
	defaultMethod string

	queue   chan *task
	slots   chan struct{} // one per accepted job not yet taken by a worker
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	pending sync.WaitGroup // enqueue goroutines not yet handed to the queue

	mu      sync.RWMutex
	closed  bool
	storeMu sync.Mutex
}

// New starts the worker pool. Call Close to stop it.
func New(datasets *dataset.Registry, jobs job.Store, builder model.TreeBuilder, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.TreeMethods) == 0 {
		opts.TreeMethods = []string{config.DefaultTreeMethod}
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		datasets: datasets,
		jobs:     jobs,
		archive:  opts.Archive,
		builder:  builder,
		metrics:  opts.Metrics,
		now:      opts.Now,
		methods:  make(map[string]struct{}, len(opts.TreeMethods)),
		queue:    make(chan *task, opts.QueueSize),
		slots:    make(chan struct{}, opts.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i, m := range opts.TreeMethods {
		if i == 0 {
			o.defaultMethod = m
		}
		o.methods[m] = struct{}{}
	}

	for i := 0; i < opts.Workers; i++ {
		o.workers.Add(1)
		go o.work()
	}
	logger.Info("Orchestrator started", zap.Int("workers", opts.Workers), zap.Int("queue_size", opts.QueueSize))
	return o
}

// Close stops accepting jobs and waits for queued and running jobs to finish.
// When ctx expires first, running jobs are cancelled (they end up Failed) and
// ctx.Err() is returned.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.pending.Wait()
		close(o.queue)
		o.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

func (o *Orchestrator) reserve() bool {
	select {
	case o.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) release() {
	<-o.slots
}

// schedule hands an accepted job to the pool without blocking the caller. The
// caller holds a slot, so the send to the queue never waits on a full channel.
func (o *Orchestrator) schedule(j *job.Job, run runFunc) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}

	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		o.enqueue(&task{job: j, run: run})
	}()
	return nil
}

func (o *Orchestrator) enqueue(t *task) {
	if err := t.job.Transition(job.StatusQueued, o.now()); err != nil {
		logger.Error("Cannot queue job", zap.String("job_id", t.job.ID), zap.Error(err))
		o.release()
		return
	}
	o.write(t.job)
	o.metrics.Queued(1)
	o.queue <- t
}

func (o *Orchestrator) work() {
	defer o.workers.Done()
	for t := range o.queue {
		o.release()
		o.metrics.Queued(-1)
		o.execute(t)
	}
}

// execute always ends with a write-back of a Succeeded or Failed record, also
// when the computation panics.
func (o *Orchestrator) execute(t *task) {
	j := t.job

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked",
				zap.String("job_id", j.ID), zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
			o.finish(j, nil, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := o.ctx.Err(); err != nil {
		o.finish(j, nil, err)
		return
	}

	if err := j.Transition(job.StatusRunning, o.now()); err != nil {
		logger.Error("Cannot start job", zap.String("job_id", j.ID), zap.Error(err))
		return
	}
	o.write(j)

	o.metrics.Running(1)
	defer o.metrics.Running(-1)
	result, err := t.run(o.ctx)

	o.finish(j, result, err)
}

func (o *Orchestrator) finish(j *job.Job, result *job.Result, runErr error) {
	now := o.now()

	var err error
	if runErr != nil {
		err = j.Fail(errorText(runErr), now)
	} else {
		err = j.Succeed(result, now)
	}
	if err != nil {
		logger.Error("Cannot finish job", zap.String("job_id", j.ID), zap.Error(err))
		return
	}

	o.write(j)
	o.metrics.Finished(string(j.Kind), string(j.Status), now.Sub(j.CreatedAt))

	if runErr != nil {
		logger.Warn("Job failed", zap.String("job_id", j.ID), zap.String("kind", string(j.Kind)), zap.String("error", j.Error))
		return
	}
	logger.Info("Job succeeded",
		zap.String("job_id", j.ID), zap.String("kind", string(j.Kind)), zap.Float64("seconds", j.Seconds))
}

// write persists a background state change. The orchestrator owns the job, so
// a failed write is retried a few times and then logged; it never aborts the job.
func (o *Orchestrator) write(j *job.Job) {
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err = o.jobs.Put(context.Background(), j); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	logger.Error("Failed to persist job",
		zap.String("job_id", j.ID), zap.String("status", string(j.Status)), zap.Error(err))
}

// errorText is what ends up in a Failed job's error field. Tree builder
// failures keep the tool's stderr verbatim.
func errorText(err error) string {
	var toolErr *model.ExternalToolError
	if errors.As(err, &toolErr) {
		return toolErr.Error()
	}
	return err.Error()
}
