package callpool

import "time"

// eventKind discriminates worker status events.
type eventKind int

const (
	eventLaunched eventKind = iota
	eventHandled
	eventFailed
)

// statusEvent is reported by a worker task to the supervisor. Each event is
// produced once per occurrence and consumed once by the supervisor loop;
// nothing is persisted.
type statusEvent struct {
	kind     eventKind
	workerID int
	pid      int           // eventLaunched
	elapsed  time.Duration // eventHandled
	status   string        // eventHandled: protocol response status
	err      error         // eventFailed
}
