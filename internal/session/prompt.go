// ABOUTME: Assembles the agent prompt from page context, elements and attachments
// ABOUTME: Fixed section order; attachment content inlined for known text extensions

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/annotate-dev/pagebridge/internal/store"
)

// textExtensions lists file extensions whose content is inlined into
// the prompt verbatim. Anything else is summarized as binary.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".js": true, ".ts": true,
	".tsx": true, ".jsx": true, ".css": true, ".scss": true,
	".html": true, ".htm": true, ".xml": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".cfg": true,
	".py": true, ".rb": true, ".go": true, ".rs": true, ".java": true,
	".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".sh": true, ".bash": true, ".zsh": true, ".fish": true,
	".ps1": true, ".bat": true, ".cmd": true,
	".sql": true, ".graphql": true, ".vue": true, ".svelte": true, ".astro": true,
	".env": true, ".gitignore": true, ".dockerignore": true, ".editorconfig": true,
	".csv": true, ".log": true, ".conf": true, ".properties": true,
}

// fenceLangs maps extensions to markdown fence language tags.
var fenceLangs = map[string]string{
	"js": "javascript", "ts": "typescript", "tsx": "tsx", "jsx": "jsx",
	"py": "python", "rb": "ruby", "go": "go", "rs": "rust", "java": "java",
	"c": "c", "cpp": "cpp", "h": "c", "hpp": "cpp",
	"css": "css", "scss": "scss", "html": "html", "htm": "html",
	"xml": "xml", "json": "json", "yaml": "yaml", "yml": "yaml",
	"md": "markdown", "sh": "bash", "bash": "bash", "sql": "sql",
}

// BuildPrompt assembles the single prompt string sent to the agent.
// Sections appear in fixed order: page URL, selected elements, attached
// files, user request. Empty sections are omitted entirely.
func BuildPrompt(message string, elements []store.ElementInfo, attachments []string, pageURL string) string {
	var b strings.Builder

	if pageURL != "" {
		fmt.Fprintf(&b, "## Page URL\n\n%s\n\n", pageURL)
	}

	if len(elements) > 0 {
		b.WriteString("## Selected Elements\n\n")
		for _, elem := range elements {
			writeElement(&b, elem)
		}
	}

	if len(attachments) > 0 {
		b.WriteString("## Attached Files\n\n")
		for _, path := range attachments {
			writeAttachment(&b, path)
		}
	}

	fmt.Fprintf(&b, "## User Request\n\n%s", message)

	return b.String()
}

func writeElement(b *strings.Builder, elem store.ElementInfo) {
	idPart := ""
	if elem.IDAttr != "" {
		idPart = "#" + elem.IDAttr
	}
	classPart := ""
	if elem.ClassName != "" {
		classPart = "." + strings.Join(strings.Fields(elem.ClassName), ".")
	}
	fmt.Fprintf(b, "### Element: %s%s%s\n\n", elem.TagName, idPart, classPart)
	fmt.Fprintf(b, "- Selector: `%s`\n", elem.Selector)
	fmt.Fprintf(b, "- XPath: `%s`\n", elem.XPath)
	if elem.Comment != "" {
		fmt.Fprintf(b, "- Comment: %s\n", elem.Comment)
	}
	fmt.Fprintf(b, "\n**HTML:**\n```html\n%s\n```\n\n", elem.OuterHTML)

	computed := elem.ComputedStyles
	if computed == nil {
		computed = map[string]string{}
	}
	styles, err := json.MarshalIndent(computed, "", "  ")
	if err != nil {
		styles = []byte("{}")
	}
	fmt.Fprintf(b, "**Computed styles:**\n```json\n%s\n```\n\n", styles)
}

func writeAttachment(b *strings.Builder, path string) {
	fmt.Fprintf(b, "### File: %s\n\n", filepath.Base(path))
	fmt.Fprintf(b, "- Path: `%s`\n", path)

	info, err := os.Stat(path)
	switch {
	case err != nil:
		fmt.Fprintf(b, "- Error: file not found: %s\n\n", path)
	case info.IsDir():
		fmt.Fprintf(b, "- Error: path is a directory: %s\n\n", path)
	case isTextFile(path):
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(b, "- Error: reading file: %v\n\n", err)
			return
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		fmt.Fprintf(b, "\n**Content:**\n```%s\n%s\n```\n\n", fenceLangs[ext], content)
	default:
		fmt.Fprintf(b, "\n*binary file (%d bytes)*\n\n", info.Size())
	}
}

func isTextFile(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}
