// ABOUTME: Tests for prompt assembly
// ABOUTME: Covers section ordering, element formatting and attachment inlining

package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotate-dev/pagebridge/internal/store"
)

func TestBuildPromptMessageOnly(t *testing.T) {
	prompt := BuildPrompt("just the question", nil, nil, "")
	assert.Equal(t, "## User Request\n\njust the question", prompt)
}

func TestBuildPromptSectionOrder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("some notes"), 0o644))

	elem := store.ElementInfo{
		TagName:   "div",
		Selector:  "#main > div",
		XPath:     "/html/body/div",
		OuterHTML: "<div>content</div>",
	}

	prompt := BuildPrompt("make it blue", []store.ElementInfo{elem}, []string{file}, "https://example.com/page")

	urlIdx := strings.Index(prompt, "## Page URL")
	elemIdx := strings.Index(prompt, "## Selected Elements")
	filesIdx := strings.Index(prompt, "## Attached Files")
	reqIdx := strings.Index(prompt, "## User Request")

	require.NotEqual(t, -1, urlIdx)
	require.NotEqual(t, -1, elemIdx)
	require.NotEqual(t, -1, filesIdx)
	require.NotEqual(t, -1, reqIdx)
	assert.Less(t, urlIdx, elemIdx)
	assert.Less(t, elemIdx, filesIdx)
	assert.Less(t, filesIdx, reqIdx)

	assert.Contains(t, prompt, "https://example.com/page")
	assert.True(t, strings.HasSuffix(prompt, "make it blue"))
}

func TestBuildPromptElementFormatting(t *testing.T) {
	elem := store.ElementInfo{
		TagName:   "button",
		IDAttr:    "submit",
		ClassName: "btn btn-primary",
		Selector:  "#submit",
		XPath:     "//button[@id='submit']",
		Comment:   "this one",
		OuterHTML: "<button id=\"submit\">Go</button>",
		ComputedStyles: map[string]string{
			"color": "rgb(255, 255, 255)",
		},
	}

	prompt := BuildPrompt("resize it", []store.ElementInfo{elem}, nil, "")

	assert.Contains(t, prompt, "### Element: button#submit.btn.btn-primary")
	assert.Contains(t, prompt, "- Selector: `#submit`")
	assert.Contains(t, prompt, "- XPath: `//button[@id='submit']`")
	assert.Contains(t, prompt, "- Comment: this one")
	assert.Contains(t, prompt, "```html\n<button id=\"submit\">Go</button>\n```")
	assert.Contains(t, prompt, "\"color\": \"rgb(255, 255, 255)\"")
}

func TestBuildPromptElementWithoutOptionalFields(t *testing.T) {
	elem := store.ElementInfo{
		TagName:   "span",
		Selector:  "span.x",
		XPath:     "//span",
		OuterHTML: "<span></span>",
	}

	prompt := BuildPrompt("hi", []store.ElementInfo{elem}, nil, "")

	assert.Contains(t, prompt, "### Element: span\n")
	assert.NotContains(t, prompt, "- Comment:")
}

func TestBuildPromptTextAttachment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main"), 0o644))

	prompt := BuildPrompt("review this", nil, []string{file}, "")

	assert.Contains(t, prompt, "### File: main.go")
	assert.Contains(t, prompt, "- Path: `"+file+"`")
	assert.Contains(t, prompt, "```go\npackage main\n```")
}

func TestBuildPromptBinaryAttachment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(file, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	prompt := BuildPrompt("look", nil, []string{file}, "")

	assert.Contains(t, prompt, "*binary file (4 bytes)*")
	assert.NotContains(t, prompt, "```\n\x89")
}

func TestBuildPromptMissingAttachment(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.txt")

	prompt := BuildPrompt("look", nil, []string{missing}, "")

	assert.Contains(t, prompt, "- Error: file not found: "+missing)
	assert.Contains(t, prompt, "## User Request")
}

func TestBuildPromptDirectoryAttachment(t *testing.T) {
	dir := t.TempDir()

	prompt := BuildPrompt("look", nil, []string{dir}, "")

	assert.Contains(t, prompt, "- Error: path is a directory: "+dir)
}
