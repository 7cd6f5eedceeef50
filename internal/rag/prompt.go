package rag

import (
	"fmt"
	"strings"
	"text/template"
)

// Canned replies. Every path through Engine.Ask ends in one of these or in
// the generated answer.
const (
	NotReadyResponse        = "I'm sorry, the system is still initializing. Please try again in a moment."
	EmptyMessageResponse    = "I didn't receive your message. Please try again."
	NoContextResponse       = "I'm sorry, but I don't have enough information to answer your question about Model Context Protocol."
	GenerationErrorResponse = "I encountered an error while trying to answer your question. Please try again."
	ErrorResponse           = "I encountered an error while processing your request. Please try again."
)

const promptText = `You are an AI assistant specialized in the Model Context Protocol (MCP).
Use the following context from the MCP documentation to answer the user's question.
If you don't know the answer based on the context, say so honestly.

### Context:
{{.Context}}

### User Question:
{{.Question}}

### Response:
`

var promptTemplate = template.Must(template.New("rag").Parse(promptText))

// BuildContext renders results in ranked order as "From <file>:" blocks
// separated by blank lines.
func BuildContext(results []Result) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("From %s:\n%s", r.Record.File, r.Record.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// Prompt fills the instruction template with context and question.
func Prompt(context, question string) string {
	var b strings.Builder
	// The template has no fallible actions; Execute only fails on writer errors.
	_ = promptTemplate.Execute(&b, struct {
		Context  string
		Question string
	}{context, question})
	return b.String()
}
