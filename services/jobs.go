package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrJobNotFound: das auszuführende Programm existiert nicht.
	ErrJobNotFound = errors.New("job executable not found")
	// ErrJobTimeout: der Job hat das Zeitlimit überschritten und wurde beendet.
	ErrJobTimeout = errors.New("job timed out")
)

// Job ist ein Unterbefehl der eigenen Binary samt Argumenten.
type Job struct {
	Name string
	Args []string
}

// JobResult enthält die mitgeschnittene Ausgabe.
type JobResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Elapsed  time.Duration `json:"elapsed"`
}

// JobRunner startet Pässe außerhalb des Serverprozesses.
type JobRunner struct {
	Binary  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewJobRunner verwendet die laufende Binary, wenn binary leer ist.
func NewJobRunner(binary string, timeout time.Duration, logger *zap.Logger) (*JobRunner, error) {
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve own executable: %w", err)
		}
		binary = exe
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRunner{Binary: binary, Timeout: timeout, Logger: logger}, nil
}

// Run führt den Job aus und wartet auf sein Ende.
func (r *JobRunner) Run(ctx context.Context, job Job) (JobResult, error) {
	binary, err := exec.LookPath(r.Binary)
	if err != nil {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, r.Binary)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append([]string{job.Name}, job.Args...)
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Kindprozesse könnten die Pipes sonst nach dem Kill offen halten
	cmd.WaitDelay = 2 * time.Second

	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("job", job.Name))
	log.Info("Starting job", zap.Strings("args", job.Args))

	started := time.Now()
	err = cmd.Run()
	res := JobResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(started),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		log.Info("Job finished", zap.Duration("elapsed", res.Elapsed))
		return res, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		log.Error("Job timed out", zap.Duration("timeout", r.Timeout))
		return res, ErrJobTimeout
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return res, fmt.Errorf("%w: %v", ErrJobNotFound, err)
	default:
		log.Error("Job failed", zap.Int("exit_code", res.ExitCode), zap.Error(err))
		return res, fmt.Errorf("job %s: %w", job.Name, err)
	}
}
