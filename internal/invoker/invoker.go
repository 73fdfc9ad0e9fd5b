// Package invoker runs one backend process per call.
//
// Each call owns its process, pipes and buffers; nothing is shared between
// concurrent calls. The prompt is written to stdin (or placed on the command
// line, depending on the backend's input mode), stdout and stderr are drained
// concurrently, and the process is always reaped before Invoke returns.
//
// When the deadline passes, the process group receives SIGTERM, then SIGKILL
// after the grace period, and Invoke returns a timeout error.
package invoker

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/logging"
)

// DefaultGracePeriod is the time between SIGTERM and SIGKILL on timeout.
const DefaultGracePeriod = 5 * time.Second

// drainTimeout bounds how long output pipes may stay open after the
// process exits (a detached grandchild can hold them).
const drainTimeout = 2 * time.Second

// stderrTailBytes is how much of stderr is kept on failure.
const stderrTailBytes = 2048

// Input is one invocation request.
type Input struct {
	Prompt string
	// Timeout is the deadline for the whole call. Zero means none.
	Timeout time.Duration
	Access  backend.Access
	Model   string
}

// Output is a successful invocation.
type Output struct {
	// Text is the cleaned response.
	Text     string
	Stderr   string
	Duration time.Duration
}

// Invoker runs a backend once.
type Invoker interface {
	Invoke(ctx context.Context, spec backend.Spec, in Input) (*Output, error)
}

// Func adapts a function to the Invoker interface.
type Func func(ctx context.Context, spec backend.Spec, in Input) (*Output, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, spec backend.Spec, in Input) (*Output, error) {
	return f(ctx, spec, in)
}

// Process is the subprocess-backed Invoker. It is safe for concurrent use.
type Process struct {
	grace  time.Duration
	logger *logging.Logger
}

// Option configures a Process.
type Option func(*Process)

// WithGracePeriod sets the SIGTERM to SIGKILL delay.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Process) { p.grace = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Process) { p.logger = l }
}

// New creates a Process invoker.
func New(opts ...Option) *Process {
	p := &Process{grace: DefaultGracePeriod, logger: logging.NopLogger()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Invoke spawns spec's command, feeds it in.Prompt and waits for it to exit.
//
// Errors are *errors.InvokeError wrapping ErrBackendUnavailable,
// ErrInvocationFailed, ErrCanceled or a *errors.TimeoutError.
func (p *Process) Invoke(ctx context.Context, spec backend.Spec, in Input) (*Output, error) {
	log := p.logger.With("backend", spec.ID)
	args, stdinData := spec.Argv(backend.Request{Prompt: in.Prompt, Access: in.Access, Model: in.Model})

	if err := ctx.Err(); err != nil {
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrCanceled)
	}

	cmd := exec.Command(spec.Command, args...)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).WithMessage(err.Error())
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).WithMessage(err.Error())
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).WithMessage(err.Error())
	}
	defer outR.Close()
	defer errR.Close()
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	err = cmd.Start()
	_ = outW.Close()
	_ = errW.Close()
	if err != nil {
		_ = stdin.Close()
		log.Warn("backend failed to start", "command", spec.Command, "error", err.Error())
		return nil, startError(spec.ID, err)
	}
	log.Debug("backend spawned", "pid", cmd.Process.Pid, "args", len(args))

	var stdout, stderr bytes.Buffer
	var readErr error
	var wg conc.WaitGroup
	wg.Go(func() {
		if _, err := io.Copy(&stdout, outR); err != nil && !isClosed(err) {
			readErr = err
		}
	})
	wg.Go(func() { _, _ = io.Copy(&stderr, errR) })
	wg.Go(func() {
		// The process may exit without reading stdin; a broken pipe is not a failure.
		_, _ = io.WriteString(stdin, stdinData)
		_ = stdin.Close()
	})

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var deadline <-chan time.Time
	if in.Timeout > 0 {
		timer := time.NewTimer(in.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var waitErr error
	var cause error
	select {
	case waitErr = <-waitCh:
	case <-deadline:
		log.Warn("backend timed out", "pid", cmd.Process.Pid, "timeout", in.Timeout.String())
		waitErr = p.stop(cmd, waitCh, log)
		cause = perrors.NewTimeoutError("invoking "+spec.ID, in.Timeout)
	case <-ctx.Done():
		log.Warn("backend canceled", "pid", cmd.Process.Pid)
		waitErr = p.stop(cmd, waitCh, log)
		cause = perrors.ErrCanceled
	}

	// The leader is reaped; anything it left running in its group goes too.
	if err := killGroup(cmd); err != nil {
		log.Debug("process group kill failed", "error", err.Error())
	}
	drain(&wg, outR, errR)
	elapsed := time.Since(start)

	tail := stderrTail(stderr.Bytes())
	if cause != nil {
		return nil, perrors.NewInvokeError(spec.ID, cause).WithStderr(tail)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if perrors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Debug("backend exited", "exit_code", exitCode, "duration_ms", elapsed.Milliseconds())
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).
			WithExitCode(exitCode).
			WithStderr(tail)
	}
	log.Debug("backend exited", "exit_code", 0, "duration_ms", elapsed.Milliseconds())

	if readErr != nil {
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).
			WithExitCode(0).
			WithMessage("reading output: " + readErr.Error())
	}
	if !utf8.Valid(stdout.Bytes()) {
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).
			WithExitCode(0).
			WithMessage("output is not valid UTF-8")
	}

	text := spec.Clean(stdout.String())
	if text == "" {
		return nil, perrors.NewInvokeError(spec.ID, perrors.ErrInvocationFailed).
			WithExitCode(0).
			WithMessage("empty response").
			WithStderr(tail)
	}

	return &Output{Text: text, Stderr: stderr.String(), Duration: elapsed}, nil
}

// stop terminates the process group and waits for the process to be reaped.
func (p *Process) stop(cmd *exec.Cmd, waitCh <-chan error, log *logging.Logger) error {
	if err := terminate(cmd); err != nil {
		log.Debug("terminate signal failed", "error", err.Error())
	}

	grace := time.NewTimer(p.grace)
	defer grace.Stop()

	select {
	case err := <-waitCh:
		return err
	case <-grace.C:
		log.Warn("backend ignored termination, killing", "pid", cmd.Process.Pid)
		if err := kill(cmd); err != nil {
			log.Debug("kill signal failed", "error", err.Error())
		}
		return <-waitCh
	}
}

// drain waits for the output readers, forcing EOF if the pipes are held open.
func drain(wg *conc.WaitGroup, pipes ...*os.File) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		for _, f := range pipes {
			_ = f.Close()
		}
		<-done
	}
}

func startError(id string, err error) error {
	if perrors.Is(err, exec.ErrNotFound) || perrors.Is(err, fs.ErrNotExist) || perrors.Is(err, fs.ErrPermission) {
		return perrors.NewInvokeError(id, perrors.ErrBackendUnavailable).WithMessage(err.Error())
	}
	return perrors.NewInvokeError(id, perrors.ErrInvocationFailed).WithMessage(err.Error())
}

func isClosed(err error) bool {
	return perrors.Is(err, os.ErrClosed) || perrors.Is(err, fs.ErrClosed)
}

func stderrTail(b []byte) string {
	if len(b) > stderrTailBytes {
		b = b[len(b)-stderrTailBytes:]
		// Skip a partial leading rune.
		for len(b) > 0 && !utf8.RuneStart(b[0]) {
			b = b[1:]
		}
	}
	return strings.TrimSpace(string(b))
}
