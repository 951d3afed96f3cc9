package llm

import (
	"encoding/json"
	"testing"
)

func TestContentMarshalText(t *testing.T) {
	msg := Message{Role: "user", Content: TextContent("hello")}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"role":"user","content":"hello"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestContentMarshalParts(t *testing.T) {
	msg := Message{Role: "user", Content: PartsContent(
		Part{Type: "text", Text: "see this"},
		Part{Type: "image_url", ImageURL: &ImageURL{URL: "data:image/png;base64,AA"}},
	)}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Parts serialize as an array, not a string.
	var decoded struct {
		Content []Part `json:"content"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal round trip: %v", err)
	}
	if len(decoded.Content) != 2 || decoded.Content[1].ImageURL.URL != "data:image/png;base64,AA" {
		t.Errorf("decoded content = %+v", decoded.Content)
	}
}

func TestContentUnmarshalDiscrimination(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"role":"assistant","content":"plain"}`), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Content.Kind != ContentText || msg.Content.Text != "plain" {
		t.Errorf("content = %+v", msg.Content)
	}

	if err := json.Unmarshal([]byte(`{"role":"user","content":[{"type":"text","text":"a"}]}`), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Content.Kind != ContentParts || len(msg.Content.Parts) != 1 {
		t.Errorf("content = %+v", msg.Content)
	}
}

func TestJoinedText(t *testing.T) {
	c := PartsContent(
		Part{Type: "text", Text: "first"},
		Part{Type: "image_url", ImageURL: &ImageURL{URL: "data:image/png;base64,AA"}},
		Part{Type: "text", Text: "second"},
	)
	if got := c.JoinedText(); got != "first\nsecond" {
		t.Errorf("JoinedText = %q", got)
	}

	var nilContent *Content
	if got := nilContent.JoinedText(); got != "" {
		t.Errorf("nil JoinedText = %q", got)
	}
}

func TestFunctionCallArgs(t *testing.T) {
	f := FunctionCall{Name: "list_dir", Arguments: `{"path":"docs"}`}
	args := f.Args()
	if args["path"] != "docs" {
		t.Errorf("args = %v", args)
	}

	// Malformed payloads degrade to an empty map.
	f = FunctionCall{Name: "list_dir", Arguments: `{broken`}
	if args := f.Args(); len(args) != 0 {
		t.Errorf("malformed args = %v", args)
	}
	f = FunctionCall{Name: "list_dir"}
	if args := f.Args(); args == nil {
		t.Error("empty arguments yielded nil map")
	}
}
