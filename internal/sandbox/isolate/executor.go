// Package isolate drives the external isolate(1) sandbox. Each job gets a
// numbered box (a cgroup-bounded chroot) that the executor initialises,
// populates, runs, and reads back. The isolate binary enforces every
// resource limit; this package only sequences the phases and interprets the
// metadata report it leaves behind.
package isolate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rrronit/flash/internal/adapter/observability"
	"github.com/rrronit/flash/internal/domain"
)

// BoxIDModulus folds 64-bit job ids into isolate's box id space. Collisions
// are possible but rare; the pre-init cleanup reclaims a colliding box.
const BoxIDModulus = 2147483647

// Compile-phase limits are design constants, deliberately not derived from
// job settings: a compiler gets 5s of cpu, 10s wall clock, a 12.8 MB stack
// and 1 MB of output regardless of what the submission asked for.
const (
	compileCPUSeconds = "5"
	compileStackKB    = "12800"
	compileFileKB     = "1024"
	runStackKB        = "128000"
	wallClockSeconds  = "10"

	sandboxPath = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
)

// BoxID derives the sandbox box number for a job id.
func BoxID(jobID uint64) uint64 { return jobID % BoxIDModulus }

// Config holds executor settings.
type Config struct {
	// IsolatePath is the isolate binary; resolved via PATH when bare.
	IsolatePath string
}

// Executor runs jobs through isolate and persists every outcome, terminal or
// transient, back to the store. Cleanup is the caller's responsibility so
// that a crashed attempt still gets its box reclaimed.
type Executor struct {
	isolate string
	store   domain.JobStore
}

// New constructs an Executor.
func New(cfg Config, store domain.JobStore) *Executor {
	bin := cfg.IsolatePath
	if bin == "" {
		bin = "isolate"
	}
	return &Executor{isolate: bin, store: store}
}

// Execute drives one job through the full sandbox sequence and returns its
// terminal status. A returned error marks a transient failure (the job
// record carries Internal Error) and tells the worker to retry; terminal
// verdicts, including compilation errors, return a nil error.
func (e *Executor) Execute(ctx context.Context, job *domain.Job) (domain.Status, error) {
	ctx, span := otel.Tracer("sandbox.isolate").Start(ctx, "ExecuteJob")
	defer span.End()

	boxID := BoxID(job.ID)
	box := strconv.FormatUint(boxID, 10)
	log := slog.With(slog.Uint64("job_id", job.ID), slog.Uint64("box_id", boxID), slog.String("language", job.Language.Name))

	job.Status = domain.StatusProcessing
	started := time.Now().Unix()
	job.StartedAt = &started
	if err := e.persist(ctx, job); err != nil {
		// Visibility only; the terminal persist below is the one that counts.
		log.Warn("failed to persist processing status", slog.Any("error", err))
	}

	// Reclaim the box up front: a crashed previous run or a colliding id
	// may have left state behind.
	e.cleanupBox(ctx, box)

	initStart := time.Now()
	out, err := exec.CommandContext(ctx, e.isolate, "--cg", "--init", "-b", box).Output()
	observability.ObserveSandboxPhase("init", time.Since(initStart))
	boxRoot := trimOutput(out)
	if err != nil || boxRoot == "" {
		return e.failTransient(ctx, job, log, "isolate init failed", err)
	}
	boxDir := filepath.Join(boxRoot, "box")

	srcPath := filepath.Join(boxDir, job.Language.SourceFile)
	stdinPath := filepath.Join(boxDir, "stdin")
	stdoutPath := filepath.Join(boxDir, "stdout")
	stderrPath := filepath.Join(boxDir, "stderr")
	metaPath := filepath.Join(boxDir, "metadata")
	compileOutPath := filepath.Join(boxDir, "compile_output")

	if err := os.WriteFile(srcPath, []byte(job.SourceCode), 0o644); err != nil {
		return e.failTransient(ctx, job, log, "writing source failed", err)
	}
	if err := os.WriteFile(stdinPath, []byte(job.Stdin), 0o644); err != nil {
		return e.failTransient(ctx, job, log, "writing stdin failed", err)
	}

	if job.Language.CompileCmd != "" {
		args := e.limitArgs(box, metaPath, job.Settings, compileCPUSeconds, compileStackKB, compileFileKB)
		args = append(args, "--run", "--", "/usr/bin/sh", "-c", job.Language.CompileCmd+" 2> /box/compile_output")
		compileStart := time.Now()
		err := exec.CommandContext(ctx, e.isolate, args...).Run()
		observability.ObserveSandboxPhase("compile", time.Since(compileStart))
		if err != nil {
			data, readErr := os.ReadFile(compileOutPath)
			if readErr != nil {
				log.Warn("compile output unreadable", slog.Any("error", readErr))
			}
			compileOut := string(data)
			job.Output.CompileOutput = &compileOut
			log.Info("compilation rejected")
			return e.finishTerminal(ctx, job, domain.StatusCompilationError)
		}
	}

	stdinFile, err := os.Open(stdinPath)
	if err != nil {
		return e.failTransient(ctx, job, log, "opening stdin failed", err)
	}
	defer func() { _ = stdinFile.Close() }()

	args := e.limitArgs(box, metaPath, job.Settings, formatSeconds(job.Settings.CPUTimeLimit), runStackKB, "")
	args = append(args, "--run", "--", "/usr/bin/sh", "-c", job.Language.RunCmd+" > /box/stdout 2> /box/stderr")
	runStart := time.Now()
	runCmd := exec.CommandContext(ctx, e.isolate, args...)
	runCmd.Stdin = stdinFile
	// A non-zero exit here is a program outcome (TO/SG/RE), not an executor
	// failure; the metadata file is the source of truth.
	if err := runCmd.Run(); err != nil {
		log.Debug("isolate run exited non-zero", slog.Any("error", err))
	}
	observability.ObserveSandboxPhase("run", time.Since(runStart))

	stdout := readFileOrEmpty(stdoutPath)
	stderr := readFileOrEmpty(stderrPath)
	job.Output.Stdout = &stdout
	job.Output.Stderr = &stderr

	metaRaw, err := os.ReadFile(metaPath)
	if err != nil {
		return e.failTransient(ctx, job, log, "metadata missing", err)
	}
	meta := parseMetadata(metaRaw)

	job.Output.Time = &meta.Time
	job.Output.Memory = &meta.Memory
	exitCode := meta.ExitCode
	job.Output.ExitCode = &exitCode
	job.Output.Message = meta.Message
	job.Status = Classify(meta.Status, meta.ExitCode, stdout, job.ExpectedOutput)

	log.Info("job classified",
		slog.Int("status_id", job.Status.ID()),
		slog.String("status", job.Status.Description()),
		slog.Float64("time", meta.Time),
		slog.Uint64("memory_kb", meta.Memory),
		slog.Int("exit_code", meta.ExitCode))
	return e.finishTerminal(ctx, job, job.Status)
}

// Cleanup tears down the job's box. Errors are logged and swallowed: cleanup
// must stay best-effort so a crashed run never wedges the worker, and a
// leaked box is reclaimed by the next pre-init cleanup of the same id.
func (e *Executor) Cleanup(ctx context.Context, jobID uint64) {
	e.cleanupBox(ctx, strconv.FormatUint(BoxID(jobID), 10))
}

func (e *Executor) cleanupBox(ctx context.Context, box string) {
	if err := exec.CommandContext(ctx, e.isolate, "--cg", "-b", box, "--cleanup").Run(); err != nil {
		slog.Warn("box cleanup failed", slog.String("box_id", box), slog.Any("error", err))
	}
}

// limitArgs builds the isolate flags shared by the compile and run phases.
// fileKB is empty when no file-size cap applies (the run phase).
func (e *Executor) limitArgs(box, metaPath string, s domain.ExecutionSettings, cpuSeconds, stackKB, fileKB string) []string {
	args := []string{
		"--cg",
		"-b", box,
		"-M", metaPath,
		fmt.Sprintf("--process=%d", s.MaxProcesses),
		"-t", cpuSeconds,
		"-x", "0",
		"-w", wallClockSeconds,
		"-k", stackKB,
	}
	if fileKB != "" {
		args = append(args, "-f", fileKB)
	}
	args = append(args,
		fmt.Sprintf("--cg-mem=%d", s.MemoryLimit),
		"-E", sandboxPath,
		"-E", "HOME=/tmp",
		"-d", "/etc:noexec",
	)
	if s.EnableNetwork {
		args = append(args, "--share-net")
	}
	return args
}

// failTransient records an Internal Error verdict and returns a non-nil
// error so the worker retries the attempt.
func (e *Executor) failTransient(ctx context.Context, job *domain.Job, log *slog.Logger, msg string, cause error) (domain.Status, error) {
	log.Error(msg, slog.Any("error", cause))
	job.Status = domain.StatusInternalError
	job.Output.Message = msg
	finished := time.Now().Unix()
	job.FinishedAt = &finished
	if err := e.persist(ctx, job); err != nil {
		log.Error("failed to persist internal error", slog.Any("error", err))
	}
	if cause != nil {
		return domain.StatusInternalError, fmt.Errorf("op=isolate.Execute: %s: %w: %v", msg, domain.ErrSandbox, cause)
	}
	return domain.StatusInternalError, fmt.Errorf("op=isolate.Execute: %s: %w", msg, domain.ErrSandbox)
}

func (e *Executor) finishTerminal(ctx context.Context, job *domain.Job, status domain.Status) (domain.Status, error) {
	job.Status = status
	if job.FinishedAt == nil {
		finished := time.Now().Unix()
		job.FinishedAt = &finished
	}
	if err := e.persist(ctx, job); err != nil {
		// The verdict exists only in memory; surface an error so the
		// worker retries and the record converges.
		return status, err
	}
	return status, nil
}

func (e *Executor) persist(ctx context.Context, job *domain.Job) error {
	return e.store.SetJob(ctx, job.Key(), *job, 0)
}

func trimOutput(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

func readFileOrEmpty(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// formatSeconds renders a fractional cpu limit without trailing zeros, the
// way isolate expects it on the command line.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
