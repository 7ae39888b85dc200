package callpool

import (
	"context"
	"errors"

	"github.com/mirovale/cairod/internal/protocol"
)

// ErrPoolUnavailable is returned by Handle.Call once the pool has been torn
// down, or when teardown completes while the call is still unclaimed.
var ErrPoolUnavailable = errors.New("callpool: pool unavailable")

// outcome is what a worker writes into a command's reply slot.
type outcome struct {
	resp *protocol.Response
	err  error
}

// command is one unit of work. It is created by the Handle, moved into the
// shared queue, and claimed by exactly one worker. The reply slot is
// buffered so the claiming worker fulfills it exactly once without
// blocking, even if the caller has already gone away.
type command struct {
	req   protocol.Request
	reply chan outcome
}

// Handle wraps the producer end of the command queue. It is cheap to copy
// and safe to share across callers; it owns no workers.
type Handle struct {
	commands chan<- command
	closed   <-chan struct{}
}

// Call submits a request and blocks until a worker has executed it, the
// pool has been fully torn down, or ctx is cancelled. A saturated pool
// shows up as Call blocking longer, never as an error; likewise a pool
// that transiently has zero live workers blocks callers until the
// emergency respawn claims their command.
func (h Handle) Call(ctx context.Context, req protocol.Request) (*protocol.Response, error) {
	c := command{req: req, reply: make(chan outcome, 1)}

	select {
	case h.commands <- c:
	case <-h.closed:
		return nil, ErrPoolUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-c.reply:
		return out.resp, out.err
	case <-h.closed:
		// closed fires only after every worker has exited, so a claimed
		// command's reply is already buffered by now.
		select {
		case out := <-c.reply:
			return out.resp, out.err
		default:
			return nil, ErrPoolUnavailable
		}
	case <-ctx.Done():
		// An already-claimed command still runs to completion on its
		// worker; the buffered reply slot absorbs the orphaned result.
		return nil, ctx.Err()
	}
}
