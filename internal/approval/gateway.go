// Package approval implements the safety gateway that classifies
// proposed tool invocations and queues the sensitive ones for explicit
// user approval.
package approval

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deskwork/deskwork/internal/config"
)

// sensitiveTools is the fixed set of tools that require explicit
// approval unless a narrower rule already cleared or flagged them.
var sensitiveTools = map[string]bool{
	"execute_command":   true,
	"write_file":        true,
	"open_app":          true,
	"keyboard_type":     true,
	"keyboard_press":    true,
	"mouse_move":        true,
	"mouse_click":       true,
	"create_docx":       true,
	"create_slide_deck": true,
	"search_web":        true,
}

// safeCommands is the execute_command first-token allowlist.
var safeCommands = map[string]bool{
	"ls":   true,
	"dir":  true,
	"pwd":  true,
	"cat":  true,
	"type": true,
	"echo": true,
}

// IsSensitive reports whether a tool is in the fixed sensitive set.
func IsSensitive(tool string) bool {
	return sensitiveTools[tool]
}

// PathOutOfScope reports whether target canonicalizes to a location
// outside workingDir. When either side fails to canonicalize (for
// example a path that does not exist yet), scope is NOT enforced and
// false is returned. This permissive fallback is deliberate: changing
// it changes which actions require approval.
func PathOutOfScope(workingDir, target string) bool {
	if workingDir == "" {
		return false
	}
	baseCanon, err := canonicalize(workingDir)
	if err != nil {
		return false
	}
	targetCanon, err := canonicalize(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseCanon, targetCanon)
	if err != nil {
		return false
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	// EvalSymlinks fails for paths that do not exist, which is what
	// keeps the fallback permissive.
	return filepath.EvalSymlinks(abs)
}

// Reason classifies a proposed tool call. A non-empty return value is
// the human-readable reason the call needs approval; an empty return
// means the call is auto-cleared. Rules are evaluated in order, first
// match wins.
func Reason(settings config.Settings, tool string, args map[string]any, workingDir string) string {
	if settings.ReadOnly && IsSensitive(tool) {
		return "Read-only mode is enabled"
	}

	switch tool {
	case "write_file", "read_file":
		path, _ := args["path"].(string)
		if PathOutOfScope(workingDir, path) {
			return "Path is outside the active workspace"
		}
	case "execute_command":
		cmd, _ := args["command"].(string)
		cmd = strings.ToLower(cmd)
		if !safeCommands[cmd] {
			return fmt.Sprintf("Command %q is not in the allowlist", cmd)
		}
	case "open_app":
		path, _ := args["path"].(string)
		if strings.HasPrefix(strings.ToLower(path), "http") {
			return "External URL requires approval"
		}
		if PathOutOfScope(workingDir, path) {
			return "Application path is outside the active workspace"
		}
	}

	if IsSensitive(tool) {
		return "Sensitive action requires explicit approval"
	}
	return ""
}

// Summarize renders the dry-run description shown to the user in an
// approval request.
func Summarize(tool string, args map[string]any) string {
	switch tool {
	case "execute_command":
		cmd, _ := args["command"].(string)
		var argv []string
		if list, ok := args["args"].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					argv = append(argv, s)
				}
			}
		}
		return strings.TrimSpace(fmt.Sprintf("Would run: %s %s", cmd, strings.Join(argv, " ")))
	case "write_file":
		path, _ := args["path"].(string)
		return fmt.Sprintf("Would write to %s", path)
	default:
		return fmt.Sprintf("Would run %s", tool)
	}
}
