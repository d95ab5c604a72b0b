// Package domain holds the core entities of the execution pipeline: jobs,
// language presets, execution settings, and the status taxonomy. It stays
// free of transport and storage concerns; adapters depend on it, never the
// other way around.
package domain

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"time"
)

// Job is a single submission flowing through the pipeline. It is created by
// submit, mutated only by the executor that popped it off the queue, and read
// back by check. All timestamps are seconds since epoch.
type Job struct {
	ID             uint64            `json:"id"`
	SourceCode     string            `json:"source_code"`
	Language       Language          `json:"language"`
	Stdin          string            `json:"stdin"`
	ExpectedOutput string            `json:"expected_output"`
	Settings       ExecutionSettings `json:"settings"`
	Status         Status            `json:"status"`
	CreatedAt      int64             `json:"created_at"`
	StartedAt      *int64            `json:"started_at,omitempty"`
	FinishedAt     *int64            `json:"finished_at,omitempty"`
	Output         JobOutput         `json:"output"`
}

// JobOutput collects everything the sandbox produced. ExitCode is set iff the
// isolator wrote a metadata file for the run.
type JobOutput struct {
	Stdout        *string  `json:"stdout,omitempty"`
	Stderr        *string  `json:"stderr,omitempty"`
	CompileOutput *string  `json:"compile_output,omitempty"`
	Time          *float64 `json:"time,omitempty"`
	Memory        *uint64  `json:"memory,omitempty"`
	ExitCode      *int     `json:"exit_code,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// ExecutionSettings are the per-job resource limits enforced by the isolator.
// Memory, stack, and file sizes are in KB; times are fractional seconds.
type ExecutionSettings struct {
	CPUTimeLimit  float64 `json:"cpu_time_limit"`
	WallTimeLimit float64 `json:"wall_time_limit"`
	MemoryLimit   uint64  `json:"memory_limit"`
	StackLimit    uint64  `json:"stack_limit"`
	MaxProcesses  uint32  `json:"max_processes"`
	MaxFileSize   uint64  `json:"max_file_size"`
	EnableNetwork bool    `json:"enable_network"`
}

// DefaultSettings returns the limits applied when a submission does not
// override them.
func DefaultSettings() ExecutionSettings {
	return ExecutionSettings{
		CPUTimeLimit:  2.0,
		WallTimeLimit: 5.0,
		MemoryLimit:   128000,
		StackLimit:    64000,
		MaxProcesses:  60,
		MaxFileSize:   4096,
		EnableNetwork: false,
	}
}

// NewJob constructs a queued job with a fresh id and default settings.
func NewJob(sourceCode string, lang Language) Job {
	return Job{
		ID:         NewID(),
		SourceCode: sourceCode,
		Language:   lang,
		Settings:   DefaultSettings(),
		Status:     StatusQueued,
		CreatedAt:  time.Now().Unix(),
	}
}

// NewID mints an opaque 64-bit identifier, unique with overwhelming
// probability. Ids are rendered as decimal strings on the wire and as store
// keys.
func NewID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived id rather than panicking in the submit path.
		return uint64(time.Now().UnixNano())
	}
	id := binary.BigEndian.Uint64(b[:])
	if id == 0 {
		id = 1
	}
	return id
}

// Key is the store key for this job.
func (j Job) Key() string { return strconv.FormatUint(j.ID, 10) }

// JobStore is the port implemented by the Redis-backed queue client. PopJob
// transfers ownership of a job to the caller: at most one consumer observes a
// given job after a successful pop.
type JobStore interface {
	// SetJob writes the job record under key, optionally with a TTL
	// (zero means no expiry).
	SetJob(ctx context.Context, key string, job Job, ttl time.Duration) error
	// GetJob reads the job record under key. The boolean is false iff the
	// key is absent.
	GetJob(ctx context.Context, key string) (Job, bool, error)
	// PopJob blocks up to timeout for the next job on queue. The boolean
	// is false on timeout.
	PopJob(ctx context.Context, queue string, timeout time.Duration) (Job, bool, error)
	// CreateJob atomically stores the record under key and pushes it onto
	// the tail of queue. Partial failure is not possible.
	CreateJob(ctx context.Context, key, queue string, job Job) error
}
