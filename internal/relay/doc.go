// Package relay is the real-time channel between browser clients and
// the session layer.
//
// Every frame on the wire is a JSON object {type, payload}. The server
// sends connected, chunk, complete, error and file_operation frames;
// the client sends chat and abort frames.
//
// # Connection addressing
//
// Each connection gets a fresh id on attach and is immediately told it
// via a connected frame. Streaming output for a chat is addressed to
// the connection that issued it; a connection that disappears mid-run
// simply stops receiving frames, the run itself is unaffected.
//
// # Frame handling
//
// Invalid frames earn an error frame with code INVALID_MESSAGE and the
// connection stays open. A chat frame runs asynchronously so the read
// loop keeps servicing abort frames while the agent streams. The
// client always receives a terminal complete or error frame for every
// chat, except after an abort, which ends the turn silently.
package relay
