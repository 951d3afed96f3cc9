package session

import (
	"strings"

	"github.com/deskwork/deskwork/internal/llm"
)

// Redaction strings written in place of sensitive transcript content.
const (
	redactedToolOutput = "Tool output omitted for privacy."
	redactedImage      = "Image data redacted."
	redactedParts      = "Structured content redacted."
)

// Sanitize returns a storage-safe copy of the transcript. Tool results,
// inline image data, and multi-part content are replaced with fixed
// redaction markers, and tool-call metadata is stripped. The input is
// left untouched; sanitization is one-way, so a reloaded session never
// recovers redacted content.
func Sanitize(history []llm.Message) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, msg := range history {
		clean := msg
		switch {
		case clean.Role == "tool":
			clean.Content = llm.TextContent(redactedToolOutput)
		case clean.Content != nil && clean.Content.Kind == llm.ContentText:
			if strings.Contains(clean.Content.Text, "data:image") {
				clean.Content = llm.TextContent(redactedImage)
			}
		case clean.Content != nil && clean.Content.Kind == llm.ContentParts:
			clean.Content = llm.TextContent(redactedParts)
		}
		clean.ToolCalls = nil
		clean.ToolCallID = ""
		out[i] = clean
	}
	return out
}
