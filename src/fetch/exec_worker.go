package fetch

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"watershed-sync/src/helpers"
)

// -----------------------------------------------------------------------------
// ExecWorker runs the fetch worker as a child process. The request goes in
// on stdin, diagnostics come back on stderr and the payload on stdout. One
// ExecWorker handles exactly one request and is discarded afterwards.
// -----------------------------------------------------------------------------

type ExecWorker struct {
	binaryPath string
	args       []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// -----------------------------------------------------------------------------

func NewExecWorker(binaryPath string, args ...string) *ExecWorker {
	return &ExecWorker{
		binaryPath: binaryPath,
		args:       args,
	}
}

// -----------------------------------------------------------------------------

// Start wires up the three pipes and launches the process. Cancelling the
// context kills the process.
func (w *ExecWorker) Start(ctx context.Context) error {
	if w.cmd != nil {
		return helpers.NewConfigurationError("fetch worker already started", nil)
	}

	cmd := exec.CommandContext(ctx, w.binaryPath, w.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return helpers.NewConfigurationError("cannot open worker input pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return helpers.NewConfigurationError("cannot open worker output pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return helpers.NewConfigurationError("cannot open worker diagnostics pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return helpers.NewProviderError(fmt.Sprintf("cannot launch fetch worker %s", w.binaryPath), err)
	}

	w.cmd = cmd
	w.stdin = stdin
	w.stdout = stdout
	w.stderr = stderr
	return nil
}

// -----------------------------------------------------------------------------

// WriteRequest hands the serialized request to the worker and closes its
// input, which is the worker's signal to begin.
func (w *ExecWorker) WriteRequest(payload []byte) error {
	if _, err := w.stdin.Write(payload); err != nil {
		return helpers.NewProviderError("cannot write request to fetch worker", err)
	}
	if err := w.stdin.Close(); err != nil {
		return helpers.NewProviderError("cannot close fetch worker input", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (w *ExecWorker) Diagnostics() io.Reader {
	return w.stderr
}

// -----------------------------------------------------------------------------

func (w *ExecWorker) Output() io.Reader {
	return w.stdout
}

// -----------------------------------------------------------------------------

func (w *ExecWorker) Wait() error {
	return w.cmd.Wait()
}

// -----------------------------------------------------------------------------

// Terminate kills the process outright. Wait still has to be called to
// release its resources.
func (w *ExecWorker) Terminate() error {
	if w.cmd == nil || w.cmd.Process == nil {
		return nil
	}
	return w.cmd.Process.Kill()
}
