// Package worker drains the job queue with bounded concurrency. Each
// consumer owns one job at a time: the blocking pop transfers ownership, the
// executor mutates the job, and the box is cleaned up no matter how the
// attempt ended.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rrronit/flash/internal/adapter/observability"
	"github.com/rrronit/flash/internal/domain"
)

const (
	// maxAttempts bounds executions per job; transient sandbox failures
	// are retried, terminal verdicts are not.
	maxAttempts = 3
	// queueErrorDelay throttles the consumer loop when the queue itself
	// is failing, so a dead Redis is not hammered.
	queueErrorDelay = time.Second
)

// Executor is the sandbox port the pool drives.
type Executor interface {
	Execute(ctx context.Context, job *domain.Job) (domain.Status, error)
	Cleanup(ctx context.Context, jobID uint64)
}

// Pool runs N long-running consumers against a queue.
type Pool struct {
	store       domain.JobStore
	exec        Executor
	queue       string
	concurrency int
	popTimeout  time.Duration
	retryDelay  time.Duration
}

// Option tweaks pool behaviour; used mainly by tests.
type Option func(*Pool)

// WithPopTimeout overrides the blocking-pop timeout (default 1s).
func WithPopTimeout(d time.Duration) Option {
	return func(p *Pool) { p.popTimeout = d }
}

// WithRetryDelay overrides the pause between execute attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pool) { p.retryDelay = d }
}

// New constructs a pool. A non-positive concurrency defaults to twice the
// CPU count, which keeps all cores busy while attempts block on the
// isolator child.
func New(store domain.JobStore, exec Executor, queue string, concurrency int, opts ...Option) *Pool {
	if concurrency <= 0 {
		concurrency = 2 * runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		store:       store,
		exec:        exec,
		queue:       queue,
		concurrency: concurrency,
		popTimeout:  time.Second,
		retryDelay:  time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run starts the consumers and blocks until ctx is cancelled and every
// consumer has drained its in-flight job.
func (p *Pool) Run(ctx context.Context) {
	slog.Info("worker pool starting", slog.Int("concurrency", p.concurrency), slog.String("queue", p.queue))
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.consume(ctx, id)
		}(i)
	}
	wg.Wait()
	slog.Info("worker pool stopped")
}

// consume is one consumer loop. The short pop timeout keeps cancellation
// responsive without busy-looping.
func (p *Pool) consume(ctx context.Context, id int) {
	log := slog.With(slog.Int("consumer", id), slog.String("queue", p.queue))
	for {
		if ctx.Err() != nil {
			return
		}
		job, ok, err := p.store.PopJob(ctx, p.queue, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("queue pop failed", slog.Any("error", err))
			sleepCtx(ctx, queueErrorDelay)
			continue
		}
		if !ok {
			continue
		}
		p.process(ctx, log, job)
	}
}

// process runs one job to a terminal state with bounded retries. The box is
// cleaned up between attempts and again after the final one, so neither a
// retried failure nor a crashed run leaks sandbox state.
func (p *Pool) process(ctx context.Context, log *slog.Logger, job domain.Job) {
	log = log.With(slog.Uint64("job_id", job.ID))
	observability.StartProcessingJob()
	defer observability.FinishProcessingJob()
	defer p.exec.Cleanup(ctx, job.ID)

	attempts := 0
	op := func() error {
		attempts++
		status, err := p.exec.Execute(ctx, &job)
		if err != nil {
			return err
		}
		observability.RecordVerdict(status)
		log.Info("job finished",
			slog.Int("status_id", status.ID()),
			slog.String("status", status.Description()),
			slog.Int("attempts", attempts))
		return nil
	}
	notify := func(err error, _ time.Duration) {
		observability.RetryJob()
		log.Warn("job execution failed, retrying", slog.Any("error", err), slog.Int("attempt", attempts))
		p.exec.Cleanup(ctx, job.ID)
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.retryDelay), maxAttempts-1),
		ctx,
	)
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("job abandoned on shutdown", slog.Any("error", err))
			return
		}
		// The record already carries Internal Error from the executor's
		// last attempt; nothing more to persist here.
		log.Error("job dropped after retries", slog.Any("error", err), slog.Int("attempts", attempts))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
