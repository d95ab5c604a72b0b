// Package usecase contains application services between the HTTP adapter
// and the store: submitting jobs into the queue and projecting stored
// records into the wire shape clients poll for.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rrronit/flash/internal/adapter/observability"
	"github.com/rrronit/flash/internal/domain"
)

// JobService owns the submit and check operations.
type JobService struct {
	Store domain.JobStore
	Queue string
}

// NewJobService constructs a JobService pushing onto the given queue.
func NewJobService(store domain.JobStore, queue string) JobService {
	return JobService{Store: store, Queue: queue}
}

// Submit assigns an id if the job has none, then atomically stores the
// record and enqueues it. The returned id is the token clients poll with.
func (s JobService) Submit(ctx context.Context, job domain.Job) (uint64, error) {
	if job.ID == 0 {
		job.ID = domain.NewID()
	}
	if job.Status == 0 {
		job.Status = domain.StatusQueued
	}
	if err := s.Store.CreateJob(ctx, job.Key(), s.Queue, job); err != nil {
		return 0, fmt.Errorf("op=usecase.Submit: %w", err)
	}
	observability.EnqueueJob()
	slog.Info("job submitted", slog.Uint64("job_id", job.ID), slog.String("language", job.Language.Name))
	return job.ID, nil
}

// Check reads a job record by id.
func (s JobService) Check(ctx context.Context, id uint64) (domain.Job, error) {
	job, ok, err := s.Store.GetJob(ctx, strconv.FormatUint(id, 10))
	if err != nil {
		return domain.Job{}, fmt.Errorf("op=usecase.Check: %w", err)
	}
	if !ok {
		return domain.Job{}, fmt.Errorf("op=usecase.Check: %w: job %d", domain.ErrNotFound, id)
	}
	return job, nil
}

// StatusView is the status object inside the check response.
type StatusView struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// JobView is the stable wire projection of a job record.
type JobView struct {
	Token         string     `json:"token"`
	StartedAt     *int64     `json:"started_at"`
	FinishedAt    *int64     `json:"finished_at"`
	Stdout        *string    `json:"stdout"`
	Stderr        *string    `json:"stderr"`
	CompileOutput *string    `json:"compile_output"`
	Time          *float64   `json:"time"`
	Memory        *uint64    `json:"memory"`
	Message       string     `json:"message,omitempty"`
	Status        StatusView `json:"status"`
}

// ViewOf projects a job into its check response.
func ViewOf(job domain.Job) JobView {
	return JobView{
		Token:         job.Key(),
		StartedAt:     job.StartedAt,
		FinishedAt:    job.FinishedAt,
		Stdout:        job.Output.Stdout,
		Stderr:        job.Output.Stderr,
		CompileOutput: job.Output.CompileOutput,
		Time:          job.Output.Time,
		Memory:        job.Output.Memory,
		Message:       job.Output.Message,
		Status: StatusView{
			ID:          job.Status.ID(),
			Description: job.Status.Description(),
		},
	}
}
