// ABOUTME: Tests for the incremental stream parser
// ABOUTME: Covers chunking invariance, malformed lines, record dispatch, and buffer caps

package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotate-dev/pagebridge/internal/store"
)

// feedAll pushes the input through the parser in chunks of the given
// size and collects every emitted event.
func feedAll(t *testing.T, input string, chunkSize int) ([]Event, *streamParser) {
	t.Helper()
	p := newStreamParser(nil)

	var events []Event
	emit := func(ev Event) { events = append(events, ev) }

	data := []byte(input)
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		require.NoError(t, p.Feed(data[:n], emit))
		data = data[n:]
	}
	return events, p
}

const sampleStream = `{"type":"system","subtype":"init","session_id":"sess-abc"}
{"type":"assistant","message":{"content":[{"type":"text","text":"Looking at "}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"the header."},{"type":"tool_use","id":"tu-1","name":"Edit","input":{"file_path":"/src/a.css"}}]}}
{"type":"user","message":{"content":[{"tool_use_id":"tu-1","type":"tool_result"}]},"tool_use_result":{"filePath":"/src/a.css","oldString":"red","newString":"blue","structuredPatch":[{"oldStart":1,"oldLines":1,"newStart":1,"newLines":1,"lines":["-red","+blue"]}]}}
{"type":"result","result":"Changed the header color."}
`

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestParser_FullStream(t *testing.T) {
	events, p := feedAll(t, sampleStream, len(sampleStream))

	assert.Equal(t, []EventType{
		EventSessionEstablished,
		EventTextDelta,
		EventTextDelta,
		EventFileOperation,
	}, eventTypes(events))

	assert.Equal(t, "sess-abc", events[0].SessionID)
	assert.Equal(t, "Looking at ", events[1].Text)
	assert.Equal(t, "the header.", events[2].Text)

	op := events[3].Operation
	require.NotNil(t, op)
	assert.Equal(t, store.FileOpEdit, op.Type)
	assert.Equal(t, "/src/a.css", op.FilePath)

	// The result record overrides the accumulated deltas.
	assert.Equal(t, "Changed the header color.", p.FullContent())
	assert.Equal(t, "sess-abc", p.SessionID())
}

func TestParser_ChunkingInvariance(t *testing.T) {
	reference, _ := feedAll(t, sampleStream, len(sampleStream))

	for _, size := range []int{1, 2, 3, 7, 16, 61, 256} {
		t.Run(fmt.Sprintf("chunk-%d", size), func(t *testing.T) {
			events, _ := feedAll(t, sampleStream, size)
			assert.Equal(t, reference, events, "chunk size %d changed the event stream", size)
		})
	}
}

func TestParser_MalformedLineDoesNotSuppressNeighbors(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"text","text":"before"}]}}
{garbage not json
{"type":"assistant","message":{"content":[{"type":"text","text":"after"}]}}
`
	events, p := feedAll(t, input, 10)

	require.Len(t, events, 2)
	assert.Equal(t, "before", events[0].Text)
	assert.Equal(t, "after", events[1].Text)
	assert.Equal(t, "beforeafter", p.FullContent())
}

func TestParser_SessionEstablishedOnlyOnce(t *testing.T) {
	input := `{"type":"system","subtype":"init","session_id":"sess-1"}
{"type":"system","subtype":"init","session_id":"sess-2"}
`
	events, p := feedAll(t, input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, "sess-1", events[0].SessionID)
	assert.Equal(t, "sess-1", p.SessionID())
}

func TestParser_FlatContentTreatedAsTextBlock(t *testing.T) {
	input := `{"type":"assistant","content":"legacy text"}` + "\n"
	events, p := feedAll(t, input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, EventTextDelta, events[0].Type)
	assert.Equal(t, "legacy text", events[0].Text)
	assert.Equal(t, "legacy text", p.FullContent())
}

func TestParser_FlatMessageContentString(t *testing.T) {
	// Some runtimes put the flat string inside message.content.
	input := `{"type":"assistant","message":{"content":"nested legacy"}}` + "\n"
	events, _ := feedAll(t, input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, "nested legacy", events[0].Text)
}

func TestParser_UncorrelatedResultIsHarmless(t *testing.T) {
	input := `{"type":"user","message":{"content":[{"tool_use_id":"never-seen","type":"tool_result"}]}}` + "\n"
	events, _ := feedAll(t, input, len(input))
	assert.Empty(t, events)
}

func TestParser_PendingEntryRemovedAfterResult(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"tu-9","name":"Bash","input":{"command":"ls"}}]}}
{"type":"user","message":{"content":[{"tool_use_id":"tu-9","type":"tool_result"}]}}
`
	_, p := feedAll(t, input, len(input))
	assert.Empty(t, p.pending)
}

func TestParser_ResultWithoutFinalStringKeepsAccumulated(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"text","text":"kept"}]}}
{"type":"result"}
`
	_, p := feedAll(t, input, len(input))
	assert.Equal(t, "kept", p.FullContent())
}

func TestParser_EmptyAndBlankLinesIgnored(t *testing.T) {
	input := "\n\n  \n" + `{"type":"assistant","content":"x"}` + "\n\n"
	events, _ := feedAll(t, input, 4)
	require.Len(t, events, 1)
}

func TestParser_PartialLineBufferCap(t *testing.T) {
	p := newStreamParser(nil)
	p.maxLineBytes = 64

	err := p.Feed([]byte(strings.Repeat("x", 100)), func(Event) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a newline")
}

func TestParser_CapNotTriggeredByCompleteLines(t *testing.T) {
	p := newStreamParser(nil)
	p.maxLineBytes = 64

	line := `{"type":"assistant","content":"` + strings.Repeat("a", 20) + `"}` + "\n"
	require.NoError(t, p.Feed([]byte(line+line), func(Event) {}))
}
