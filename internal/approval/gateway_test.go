package approval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deskwork/deskwork/internal/config"
)

func TestReasonReadOnlyMode(t *testing.T) {
	settings := config.Settings{ReadOnly: true}

	reason := Reason(settings, "write_file", map[string]any{"path": "a.txt"}, "")
	if reason != "Read-only mode is enabled" {
		t.Errorf("reason = %q, want read-only message", reason)
	}

	// Non-sensitive tools stay auto-cleared even in read-only mode.
	if reason := Reason(settings, "list_dir", map[string]any{"path": "."}, ""); reason != "" {
		t.Errorf("list_dir in read-only mode flagged: %q", reason)
	}
}

func TestReasonCommandAllowlist(t *testing.T) {
	settings := config.Settings{}

	if reason := Reason(settings, "execute_command", map[string]any{"command": "echo"}, ""); reason != "" {
		t.Errorf("echo flagged: %q", reason)
	}
	if reason := Reason(settings, "execute_command", map[string]any{"command": "ECHO"}, ""); reason != "" {
		t.Errorf("case-insensitive match failed: %q", reason)
	}
	if reason := Reason(settings, "execute_command", map[string]any{"command": "rm"}, ""); reason == "" {
		t.Error("rm not flagged")
	}
	if reason := Reason(settings, "execute_command", map[string]any{}, ""); reason == "" {
		t.Error("missing command not flagged")
	}
}

func TestReasonOpenApp(t *testing.T) {
	settings := config.Settings{}

	reason := Reason(settings, "open_app", map[string]any{"path": "https://example.com"}, "")
	if reason != "External URL requires approval" {
		t.Errorf("http url reason = %q", reason)
	}
	reason = Reason(settings, "open_app", map[string]any{"path": "HTTP://example.com"}, "")
	if reason != "External URL requires approval" {
		t.Errorf("uppercase scheme reason = %q", reason)
	}

	// A local target falls through to the generic sensitive-set rule.
	reason = Reason(settings, "open_app", map[string]any{"path": "notes.txt"}, "")
	if reason != "Sensitive action requires explicit approval" {
		t.Errorf("local target reason = %q", reason)
	}
}

func TestReasonSensitiveFallback(t *testing.T) {
	settings := config.Settings{}

	for _, tool := range []string{"keyboard_type", "mouse_click", "create_docx", "search_web"} {
		if reason := Reason(settings, tool, map[string]any{}, ""); reason != "Sensitive action requires explicit approval" {
			t.Errorf("%s reason = %q", tool, reason)
		}
	}
	for _, tool := range []string{"list_dir", "fetch_url", "get_system_stats", "wait"} {
		if reason := Reason(settings, tool, map[string]any{}, ""); reason != "" {
			t.Errorf("%s flagged: %q", tool, reason)
		}
	}
}

func TestPathOutOfScope(t *testing.T) {
	base := t.TempDir()
	inside := filepath.Join(base, "file.txt")
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	outside := t.TempDir()

	if PathOutOfScope(base, inside) {
		t.Error("path inside workspace reported out of scope")
	}
	if !PathOutOfScope(base, outside) {
		t.Error("path outside workspace not reported")
	}
	if PathOutOfScope("", outside) {
		t.Error("empty working dir should disable scope checks")
	}

	// A target that does not exist cannot be canonicalized; scope is
	// not enforced for it.
	if PathOutOfScope(base, filepath.Join(outside, "does-not-exist.txt")) {
		t.Error("nonexistent path should fall back to in-scope")
	}
}

func TestReasonPathScope(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	settings := config.Settings{}
	reason := Reason(settings, "read_file", map[string]any{"path": target}, base)
	if reason != "Path is outside the active workspace" {
		t.Errorf("out-of-scope read reason = %q", reason)
	}

	// read_file inside the workspace is not in the sensitive set and
	// clears automatically.
	inside := filepath.Join(base, "ok.txt")
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if reason := Reason(settings, "read_file", map[string]any{"path": inside}, base); reason != "" {
		t.Errorf("in-scope read flagged: %q", reason)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize("execute_command", map[string]any{
		"command": "echo",
		"args":    []any{"hello", "world"},
	})
	if got != "Would run: echo hello world" {
		t.Errorf("Summarize = %q", got)
	}

	got = Summarize("write_file", map[string]any{"path": "out.txt"})
	if got != "Would write to out.txt" {
		t.Errorf("Summarize = %q", got)
	}

	got = Summarize("keyboard_type", map[string]any{"text": "hi"})
	if got != "Would run keyboard_type" {
		t.Errorf("Summarize = %q", got)
	}
}
