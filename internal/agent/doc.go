// Package agent launches the external coding-agent CLI and turns its
// streamed output into semantic events.
//
// # Pipeline
//
// Each chat request becomes one run:
//
//  1. Launcher.Start spawns the agent process with the prompt and, for
//     resumed conversations, the stored session token. Stdin is closed;
//     stdout carries newline-delimited JSON records.
//  2. streamParser buffers raw chunks into complete lines, classifies
//     each record (system/init, assistant, user, result) and emits
//     Events. A malformed line is dropped with a warning; it never
//     fails the run.
//  3. Tool invocations announced in assistant records are held in a
//     pending map keyed by tool-use id. When the matching result record
//     arrives, classifyToolResult infers a read/edit/create/delete
//     FileOperation from the result shape, or from the recorded shell
//     command for Bash-based deletes.
//
// # Event Stream
//
// A run's Handle exposes an ordered event channel. Session
// establishment, text deltas and file operations arrive as the stream
// is parsed; exactly one Completed or Errored event terminates a
// non-aborted run. Abort sends SIGTERM once and closes the stream with
// no terminal event.
//
// # Errors
//
//   - ErrAgentNotFound: the executable is missing from PATH
//   - ExecError: non-zero exit after a run that was not aborted
//
// The partial-line buffer is capped; an agent that streams past the cap
// without a newline fails the run instead of growing without bound.
package agent
