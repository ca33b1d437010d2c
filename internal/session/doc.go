// Package session owns the lifecycle of agent runs on behalf of
// conversations.
//
// A session binds one conversation to one live agent run. The Manager
// enforces the central invariant: at most one active session per
// conversation id. A chat request for a conversation that already has a
// live run is rejected with ErrSessionActive rather than queued.
//
// # Execution flow
//
// ExecuteChat is synchronous: it persists the user message, builds the
// prompt, starts the agent run and consumes its event stream until the
// run terminates. Streaming progress is delivered through Callbacks
// while ExecuteChat blocks; the return value is the run's terminal
// error, nil on success or silent abort.
//
// Ordering guarantees:
//
//   - the user message is durable before the first OnChunk fires
//   - the assistant message is durable before OnComplete fires
//   - a failed assistant-message write surfaces as ErrStorage and
//     suppresses OnComplete entirely
//
// # Abort
//
// Abort signals the conversation's live run, if any, and reports
// whether anything was actually aborted. Aborting is safe at any point,
// including while the process is still spawning: the reservation is
// registered before the process starts, and an abort that lands in that
// window terminates the run as soon as it is attached. An aborted run
// produces no terminal callback and persists no assistant message.
//
// # Prompt construction
//
// BuildPrompt assembles the agent prompt from the page URL, the
// selected element descriptions, file attachments and the user's
// free-text request, in that fixed order. Attachment files are inlined
// when their extension marks them as text; binary and unreadable files
// degrade to a one-line note instead of failing the chat.
package session
