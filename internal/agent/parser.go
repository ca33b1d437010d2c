// ABOUTME: Incremental parser for the agent's newline-delimited JSON output
// ABOUTME: Buffers partial lines, classifies records, and tracks pending tool uses

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/annotate-dev/pagebridge/internal/store"
)

// defaultMaxLineBytes caps the pending partial-line buffer. A run whose
// agent emits this much output without a newline is failed rather than
// allowed to grow without bound.
const defaultMaxLineBytes = 10 << 20

// streamRecord is the wire shape of one agent output line.
type streamRecord struct {
	Type          string         `json:"type"`
	Subtype       string         `json:"subtype"`
	SessionID     string         `json:"session_id"`
	Content       string         `json:"content"`
	Result        string         `json:"result"`
	Message       *recordMessage `json:"message"`
	ToolUseResult *toolUseResult `json:"tool_use_result"`
}

// recordMessage holds the nested message body of assistant and user records.
type recordMessage struct {
	Content contentList `json:"content"`
}

// contentList tolerates both the structured block array and the legacy
// flat string shape, normalizing the latter to a single text block.
type contentList []contentBlock

func (c *contentList) UnmarshalJSON(data []byte) error {
	var blocks []contentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		*c = blocks
		return nil
	}

	var flat string
	if err := json.Unmarshal(data, &flat); err == nil {
		*c = contentList{{Type: "text", Text: flat}}
		return nil
	}

	return fmt.Errorf("content is neither a block list nor a string")
}

// contentBlock is one entry of a structured content list.
type contentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id"`
}

// toolUseResult is the result payload echoed back for a tool invocation.
type toolUseResult struct {
	Type            string            `json:"type"`
	FilePath        string            `json:"filePath"`
	OldString       string            `json:"oldString"`
	NewString       string            `json:"newString"`
	StructuredPatch []store.PatchHunk `json:"structuredPatch"`
	File            *fileResult       `json:"file"`
}

// fileResult describes the file a read-style tool result refers to.
type fileResult struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

// streamParser turns raw output chunks into semantic events. It owns the
// partial-line buffer, the accumulated assistant text, and the pending
// tool-use map for one run. Not safe for concurrent use; a run feeds it
// from a single goroutine.
type streamParser struct {
	buffer       []byte
	maxLineBytes int

	content     strings.Builder
	finalResult *string

	sessionID   string
	sessionSeen bool

	pending map[string]pendingToolUse

	logger *slog.Logger
}

func newStreamParser(logger *slog.Logger) *streamParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &streamParser{
		maxLineBytes: defaultMaxLineBytes,
		pending:      make(map[string]pendingToolUse),
		logger:       logger,
	}
}

// Feed appends a raw chunk, processes every complete line, and retains
// the trailing partial line. Chunk boundaries carry no meaning: any
// split of the same bytes yields the same events.
func (p *streamParser) Feed(chunk []byte, emit func(Event)) error {
	p.buffer = append(p.buffer, chunk...)

	for {
		idx := bytes.IndexByte(p.buffer, '\n')
		if idx < 0 {
			break
		}
		line := p.buffer[:idx]
		p.buffer = p.buffer[idx+1:]
		p.processLine(line, emit)
	}

	if len(p.buffer) > p.maxLineBytes {
		return fmt.Errorf("agent output exceeded %d bytes without a newline", p.maxLineBytes)
	}
	return nil
}

// processLine parses and dispatches one complete line. A line that is
// not valid JSON is dropped with a warning; the stream continues.
func (p *streamParser) processLine(line []byte, emit func(Event)) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var rec streamRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		p.logger.Warn("dropping unparseable agent output line",
			"error", err,
			"preview", preview(line, 120),
		)
		return
	}

	switch rec.Type {
	case "system":
		p.handleSystem(&rec, emit)
	case "assistant":
		p.handleAssistant(&rec, emit)
	case "user":
		p.handleToolResult(&rec, emit)
	case "result":
		p.handleResult(&rec)
	default:
		p.logger.Debug("ignoring unknown agent record type", "type", rec.Type)
	}
}

// handleSystem emits the session-established event the first time an
// init record carries a session identifier.
func (p *streamParser) handleSystem(rec *streamRecord, emit func(Event)) {
	if rec.Subtype != "init" || rec.SessionID == "" || p.sessionSeen {
		return
	}
	p.sessionSeen = true
	p.sessionID = rec.SessionID
	p.logger.Info("agent session established", "agent_session_id", rec.SessionID)
	emit(Event{Type: EventSessionEstablished, SessionID: rec.SessionID})
}

// handleAssistant accumulates text blocks and registers tool uses.
// A flat content string on the record is treated as a single text block.
func (p *streamParser) handleAssistant(rec *streamRecord, emit func(Event)) {
	if rec.Message != nil {
		for _, block := range rec.Message.Content {
			switch {
			case block.Type == "text" && block.Text != "":
				p.content.WriteString(block.Text)
				emit(Event{Type: EventTextDelta, Text: block.Text})
			case block.Type == "tool_use" && block.ID != "" && block.Name != "":
				p.pending[block.ID] = pendingToolUse{Name: block.Name, Input: block.Input}
				p.logger.Debug("tracking tool use", "tool_use_id", block.ID, "tool", block.Name)
			}
		}
		return
	}

	if rec.Content != "" {
		p.content.WriteString(rec.Content)
		emit(Event{Type: EventTextDelta, Text: rec.Content})
	}
}

// handleToolResult correlates a user-type record with its pending tool
// use and emits a file operation when one can be inferred. The pending
// entry is removed whether or not anything matched.
func (p *streamParser) handleToolResult(rec *streamRecord, emit func(Event)) {
	toolUseID := ""
	if rec.Message != nil {
		for _, block := range rec.Message.Content {
			if block.ToolUseID != "" {
				toolUseID = block.ToolUseID
				break
			}
		}
	}

	var pending *pendingToolUse
	if toolUseID != "" {
		if pt, ok := p.pending[toolUseID]; ok {
			pending = &pt
		}
	}

	if op := classifyToolResult(rec.ToolUseResult, pending); op != nil {
		p.logger.Info("file operation detected",
			"type", op.Type,
			"file_path", op.FilePath,
			"tool", op.ToolName,
		)
		emit(Event{Type: EventFileOperation, Operation: op})
	}

	if toolUseID != "" {
		delete(p.pending, toolUseID)
	}
}

// handleResult records the authoritative final content. The terminal
// result record overrides whatever was accumulated incrementally.
func (p *streamParser) handleResult(rec *streamRecord) {
	switch {
	case rec.Result != "":
		final := rec.Result
		p.finalResult = &final
	case rec.Content != "":
		final := rec.Content
		p.finalResult = &final
	}
}

// FullContent returns the run's final text: the result record's string
// when one was seen, otherwise the accumulated deltas.
func (p *streamParser) FullContent() string {
	if p.finalResult != nil {
		return *p.finalResult
	}
	return p.content.String()
}

// SessionID returns the session identifier seen during the run, if any.
func (p *streamParser) SessionID() string {
	return p.sessionID
}

func preview(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
