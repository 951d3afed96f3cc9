// Package llm provides the chat-completion backend client.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContentKind discriminates the two content variants a message can
// carry on the wire: a plain string or an ordered list of typed parts.
type ContentKind int

const (
	// ContentText is plain string content.
	ContentText ContentKind = iota
	// ContentParts is structured multi-part content (text + image refs).
	ContentParts
)

// Content is a tagged union over the wire format's untagged one.
// Discrimination happens once, at the JSON boundary, so the rest of
// the code switches on Kind instead of shape-sniffing.
type Content struct {
	Kind  ContentKind
	Text  string
	Parts []Part
}

// Part is one element of structured content.
type Part struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references image data, typically a data: URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Text returns plain text content.
func TextContent(s string) *Content {
	return &Content{Kind: ContentText, Text: s}
}

// PartsContent returns structured multi-part content.
func PartsContent(parts ...Part) *Content {
	return &Content{Kind: ContentParts, Parts: parts}
}

// JoinedText flattens content to a single string: the text itself for
// plain content, or the text parts newline-joined for structured
// content (image parts contribute nothing).
func (c *Content) JoinedText() string {
	if c == nil {
		return ""
	}
	if c.Kind == ContentText {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// MarshalJSON writes the wire shape: a bare string for text content,
// an array of parts otherwise.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Kind == ContentParts {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON reads either wire shape and tags it.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var parts []Part
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("content parts: %w", err)
		}
		*c = Content{Kind: ContentParts, Parts: parts}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("content text: %w", err)
	}
	*c = Content{Kind: ContentText, Text: s}
	return nil
}

// Message is a chat message. A tool-role message carries the
// ToolCallID of the assistant tool call it answers.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    *Content   `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its raw argument payload.
// Arguments is a JSON object serialized as a string, per the wire
// contract; it is parsed downstream with best-effort coercion.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Args parses the argument payload. Malformed or empty payloads
// degrade to an empty map rather than failing, so the model never
// receives a hard failure for sloppy JSON.
func (f FunctionCall) Args() map[string]any {
	args := map[string]any{}
	if f.Arguments != "" {
		_ = json.Unmarshal([]byte(f.Arguments), &args)
	}
	return args
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model      string           `json:"model"`
	Messages   []Message        `json:"messages"`
	Tools      []map[string]any `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
}

// ChatResponse is the chat-completions response body. Only the first
// choice is consumed.
type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// First returns the first choice's message, or nil when the backend
// returned no choices.
func (r *ChatResponse) First() *Message {
	if r == nil || len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0].Message
}
