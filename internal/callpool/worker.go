package callpool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/mirovale/cairod/internal/protocol"
)

// maxReplyLine bounds a single executor reply line (call outputs can carry
// long calldata arrays).
const maxReplyLine = 1 << 20

// worker owns exactly one executor process end to end: it claims commands
// from the shared queue, forwards them over the child's stdin, and reports
// results and lifecycle events to the supervisor.
type worker struct {
	id        int
	builder   ProcessBuilder
	exitGrace time.Duration
	logger    *slog.Logger

	commands <-chan command
	status   chan<- statusEvent
	shutdown <-chan struct{}
}

// run drives the Spawning -> Running -> Exited lifecycle. It returns once
// the owned process has exited for any reason; the supervisor observes the
// return as a completion event.
func (w *worker) run(ctx context.Context) {
	cmd, stdin, stdout, err := w.launch(ctx)
	if err != nil {
		w.report(statusEvent{kind: eventFailed, workerID: w.id, err: err})
		return
	}

	pid := cmd.Process.Pid
	w.report(statusEvent{kind: eventLaunched, workerID: w.id, pid: pid})

	// procDone closes when the child exits, so an idle worker notices a
	// crash without a command in flight.
	procDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(procDone)
	}()

	out := bufio.NewScanner(stdout)
	out.Buffer(make([]byte, 64*1024), maxReplyLine)

	for {
		select {
		case <-w.shutdown:
			w.terminate(cmd, stdin, procDone)
			return

		case <-procDone:
			w.report(statusEvent{kind: eventFailed, workerID: w.id,
				err: fmt.Errorf("executor exited unexpectedly: %w", exitReason(waitErr))})
			return

		case c := <-w.commands:
			// Receiving from the shared channel is the exclusive claim:
			// no other worker can observe this command.
			started := time.Now()
			resp, execErr := w.execute(c, stdin, out)
			elapsed := time.Since(started)

			// The reply slot is fulfilled exactly once, here, in every
			// path. Callers see only their own command's outcome.
			c.reply <- outcome{resp: resp, err: execErr}

			if execErr != nil {
				// Crash mid-command or an unreadable reply: give up this
				// process and let the supervisor replace the worker.
				w.report(statusEvent{kind: eventFailed, workerID: w.id, err: execErr})
				w.terminate(cmd, stdin, procDone)
				return
			}
			w.report(statusEvent{kind: eventHandled, workerID: w.id,
				elapsed: elapsed, status: resp.Status})
		}
	}
}

// launch builds and starts the executor process, wiring stdin/stdout as
// the command channel and forwarding stderr to the log.
func (w *worker) launch(ctx context.Context) (*exec.Cmd, io.WriteCloser, io.ReadCloser, error) {
	cmd, err := w.builder.BuildCommand(ctx, w.id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build %s command: %w", w.builder.Name(), err)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	// Own process group so a stuck child can be killed as a unit.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start %s: %w", w.builder.Name(), err)
	}

	go w.forwardStderr(stderr)

	return cmd, stdin, stdout, nil
}

// execute sends one request and waits for the matching reply line. The
// executor is single-threaded, so there is never more than one command in
// flight on this process.
func (w *worker) execute(c command, stdin io.Writer, out *bufio.Scanner) (*protocol.Response, error) {
	if err := protocol.EncodeRequest(stdin, &c.req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if !out.Scan() {
		if err := out.Err(); err != nil {
			return nil, fmt.Errorf("read reply: %w", err)
		}
		return nil, errors.New("executor closed its output mid-command")
	}

	resp, err := protocol.DecodeResponse(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("malformed reply: %w", err)
	}
	return resp, nil
}

// terminate drives graceful shutdown of the owned process. Closing stdin
// tells the executor to exit; the grace period bounds how long a stuck
// process can stall pool teardown before the group is killed.
func (w *worker) terminate(cmd *exec.Cmd, stdin io.Closer, procDone <-chan struct{}) {
	stdin.Close()

	select {
	case <-procDone:
		return
	case <-time.After(w.exitGrace):
	}

	w.logger.Warn("executor_kill",
		"worker_id", w.id,
		"pid", cmd.Process.Pid,
		"grace", w.exitGrace.String(),
	)
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		cmd.Process.Kill()
	}
	<-procDone
}

// forwardStderr logs child stderr lines at debug level.
func (w *worker) forwardStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 16*1024), 64*1024)
	for sc.Scan() {
		w.logger.Debug("executor_stderr", "worker_id", w.id, "line", sc.Text())
	}
}

// report delivers a status event unless shutdown has been raised, at which
// point the supervisor is draining exits rather than the status channel.
func (w *worker) report(ev statusEvent) {
	select {
	case w.status <- ev:
	case <-w.shutdown:
	}
}

// exitReason normalizes a Wait error for the failure report.
func exitReason(err error) error {
	if err == nil {
		return errors.New("exit status 0")
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if st, ok := exitErr.Sys().(syscall.WaitStatus); ok && st.Signaled() {
			return fmt.Errorf("terminated by signal %s", st.Signal())
		}
	}
	return err
}
