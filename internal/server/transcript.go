// ABOUTME: Renders a conversation transcript as a standalone HTML page
// ABOUTME: Assistant markdown converted with goldmark; user text escaped verbatim

package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/annotate-dev/pagebridge/internal/store"
)

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.message { margin: 1.5rem 0; padding: 1rem; border-radius: 8px; }
.user { background: #eef2ff; }
.assistant { background: #f5f5f5; }
.role { font-size: 0.8rem; font-weight: bold; text-transform: uppercase; color: #666; }
.ops { font-size: 0.85rem; color: #444; margin-top: 0.5rem; }
pre { overflow-x: auto; background: #1e1e1e; color: #ddd; padding: 0.75rem; border-radius: 6px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}
<div class="message {{.Role}}">
<div class="role">{{.Role}}</div>
{{.Body}}
{{if .Operations}}<div class="ops">{{.Operations}}</div>{{end}}
</div>
{{end}}
</body>
</html>
`))

type transcriptMessage struct {
	Role       string
	Body       template.HTML
	Operations string
}

func (a *api) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conv, err := a.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.storeError(w, err)
		return
	}

	messages := make([]transcriptMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		messages = append(messages, transcriptMessage{
			Role:       string(msg.Role),
			Body:       a.renderBody(msg),
			Operations: summarizeOperations(msg.FileOperations),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = transcriptTmpl.Execute(w, struct {
		Title    string
		Messages []transcriptMessage
	}{Title: conv.Title, Messages: messages})
	if err != nil {
		a.logger.Error("failed to render transcript", "conversation_id", conv.ID, "error", err)
	}
}

// renderBody converts assistant markdown to HTML. User messages are
// plain text, escaped and wrapped as-is.
func (a *api) renderBody(msg store.Message) template.HTML {
	if msg.Role != store.RoleAssistant {
		return template.HTML("<p>" + template.HTMLEscapeString(msg.Content) + "</p>")
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(msg.Content), &buf); err != nil {
		a.logger.Error("failed to convert markdown", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(msg.Content) + "</p>")
	}
	return template.HTML(buf.String())
}

func summarizeOperations(ops []store.FileOperation) string {
	if len(ops) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i, op := range ops {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s %s", op.Type, op.FilePath)
	}
	return buf.String()
}
