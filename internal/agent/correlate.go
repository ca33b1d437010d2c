// ABOUTME: Classification of tool results into file operations
// ABOUTME: Pure shape- and command-text heuristics; the protocol never labels effects explicitly

package agent

import (
	"regexp"
	"strings"

	"github.com/annotate-dev/pagebridge/internal/store"
)

// pendingToolUse is a tool invocation awaiting its result, keyed by the
// tool-use id in the parser's pending map. Never persisted.
type pendingToolUse struct {
	Name  string
	Input map[string]any
}

// rmPattern matches a single rm invocation with optional -r/-f flags.
// Compound commands, pipes and wildcards are deliberately not modeled;
// they fall through to "no operation".
var rmPattern = regexp.MustCompile(`\brm\s+(?:-[rf]+\s+)?(.+)`)

// classifyToolResult infers a file operation from a tool result's shape
// and, for shell tools, from the recorded command text. Returns nil when
// nothing can be inferred. Resolution order, first match wins:
//
//  1. text-typed result with file info  -> read
//  2. file path plus non-empty patch    -> edit
//  3. create-typed result with path     -> create
//  4. Bash tool whose command is an rm  -> delete
//
// This is best-effort by nature: the agent protocol does not tag
// destructive filesystem effects.
func classifyToolResult(result *toolUseResult, pending *pendingToolUse) *store.FileOperation {
	if result != nil {
		if result.Type == "text" && result.File != nil && result.File.FilePath != "" {
			return &store.FileOperation{
				Type:     store.FileOpRead,
				FilePath: result.File.FilePath,
				ToolName: "Read",
			}
		}

		if result.FilePath != "" && len(result.StructuredPatch) > 0 {
			return &store.FileOperation{
				Type:      store.FileOpEdit,
				FilePath:  result.FilePath,
				ToolName:  "Edit",
				OldString: result.OldString,
				NewString: result.NewString,
				Patch:     result.StructuredPatch,
			}
		}

		if result.Type == "create" && result.FilePath != "" {
			return &store.FileOperation{
				Type:     store.FileOpCreate,
				FilePath: result.FilePath,
				ToolName: "Write",
			}
		}
	}

	if pending != nil && pending.Name == "Bash" {
		command, _ := pending.Input["command"].(string)
		if path := extractRemovedPath(command); path != "" {
			return &store.FileOperation{
				Type:     store.FileOpDelete,
				FilePath: path,
				ToolName: "Bash (rm)",
			}
		}
	}

	return nil
}

// extractRemovedPath pulls the path argument out of an rm command,
// stripping quotes. Returns "" when the command is not a recognizable rm.
func extractRemovedPath(command string) string {
	m := rmPattern.FindStringSubmatch(command)
	if m == nil {
		return ""
	}
	path := strings.TrimSpace(m[1])
	path = strings.ReplaceAll(path, `'`, "")
	path = strings.ReplaceAll(path, `"`, "")
	return path
}
