// ABOUTME: Semantic event types emitted by a single agent run
// ABOUTME: One terminal Completed/Errored event per run; abort closes the stream silently

package agent

import (
	"github.com/annotate-dev/pagebridge/internal/store"
)

// EventType discriminates the events produced while a run is streaming.
type EventType string

const (
	// EventSessionEstablished carries the agent session identifier,
	// emitted at most once per run.
	EventSessionEstablished EventType = "session_established"

	// EventTextDelta carries one increment of assistant text, in parse order.
	EventTextDelta EventType = "text_delta"

	// EventFileOperation carries a file operation inferred from a tool result.
	EventFileOperation EventType = "file_operation"

	// EventCompleted is the successful terminal event, carrying the final
	// content and the session identifier if one was seen.
	EventCompleted EventType = "completed"

	// EventErrored is the failing terminal event.
	EventErrored EventType = "errored"
)

// Event is one semantic event from a run. Exactly one of Completed or
// Errored terminates a non-aborted run, after which the event channel is
// closed. An aborted run closes the channel without a terminal event.
type Event struct {
	Type EventType

	// Text is set for EventTextDelta.
	Text string

	// SessionID is set for EventSessionEstablished and EventCompleted
	// (when an identifier was seen during the run).
	SessionID string

	// FullContent is set for EventCompleted.
	FullContent string

	// Operation is set for EventFileOperation.
	Operation *store.FileOperation

	// Err is set for EventErrored.
	Err error
}

// Handle is the session layer's view of a live run: its ordered event
// stream and an abort switch.
type Handle interface {
	// Events returns the run's event channel. Closed when the run ends.
	Events() <-chan Event

	// Abort signals process termination. Idempotent; calling it after
	// the run finished is a no-op.
	Abort()
}
