// Package store provides file-backed persistence for conversations.
//
// # Layout
//
// Each conversation is one pretty-printed JSON document under the data
// directory, named by its id:
//
//	<data-dir>/<conversation-id>.json
//
// The document holds the conversation metadata plus its ordered message
// array (ConversationData). The directory is created on first use.
//
// # Data Models
//
//   - Conversation: id, session token, title, timestamps
//   - Message: append-only transcript entry (user or assistant)
//   - ElementInfo: opaque browser selection payload attached to user messages
//   - FileOperation: filesystem effect inferred from an agent tool result
//
// # Invariants
//
//   - Messages are append-only and immutable once persisted.
//   - The session token is assigned at most once per conversation.
//   - A conversation still titled DefaultTitle is renamed from the first
//     user message appended to it.
//
// # Concurrency
//
// FileStore serializes operations with a process-wide mutex and performs
// whole-file read-modify-write. There is no cross-process locking; the
// store is intended for a single local server process.
//
// # Error Handling
//
//   - ErrNotFound: conversation does not exist
//   - ErrDuplicateConversation: Create with an existing id
package store
