package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/dgallion1/ocrsplit/internal/stats"
)

// Orchestrator queues submitted jobs and drains them with a single worker,
// so files are processed one at a time across all jobs.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	runner    *Runner
	log       *slog.Logger
	queueSize int

	optsMu sync.RWMutex
	opts   Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the queue. Call Start to begin processing.
func NewOrchestrator(runner *Runner, opts Options, queueSize int, ttl time.Duration, log *slog.Logger) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Orchestrator{
		jobs:      NewJobStore(ttl),
		queue:     make(chan *Job, queueSize),
		runner:    runner,
		log:       log,
		queueSize: queueSize,
		opts:      opts,
	}
}

// Start launches the worker goroutine and job store cleanup.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				o.process(workerCtx, job)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels in-flight work and waits for the worker to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.queueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// SetOptions replaces the options used for jobs started after the call.
func (o *Orchestrator) SetOptions(opts Options) {
	o.optsMu.Lock()
	defer o.optsMu.Unlock()
	o.opts = opts
}

func (o *Orchestrator) options() Options {
	o.optsMu.RLock()
	defer o.optsMu.RUnlock()
	return o.opts
}

// StageStats returns rolling stage latencies, or nil if not tracked.
func (o *Orchestrator) StageStats() map[string]stats.Snapshot {
	if o.runner.Stats == nil {
		return nil
	}
	return o.runner.Stats.Snapshot()
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With("job_id", job.ID)
	job.SetStatus(StatusRunning, "starting")
	log.Info("job started", "files", len(job.Files()))

	session := Session{
		Inputs:    job.Files(),
		OutputDir: job.OutputDir,
		Options:   o.options(),
		Progress: func(input string, r StageResult) {
			job.SetPhase(fmt.Sprintf("%s: %s", layout.BaseName(input), r.Stage))
			if !r.OK && !r.Skipped {
				job.AddError(fmt.Sprintf("%s: %s", layout.BaseName(input), r.Message))
			}
		},
	}

	for _, r := range o.runner.Run(ctx, session) {
		job.AddResult(r)
	}
	if err := ctx.Err(); err != nil {
		job.AddError(fmt.Sprintf("canceled: %v", err))
	}
	job.Finish()
	log.Info("job finished", "status", job.Snapshot().Status)
}
