package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Shell provides the execute_command capability. The approval gateway
// decides whether a command may run; Shell only runs it, bounded by a
// timeout and an output cap.
type Shell struct {
	defaultTimeout time.Duration
	maxOutputBytes int
}

// NewShell creates the shell capability with default limits.
func NewShell() *Shell {
	return &Shell{
		defaultTimeout: 30 * time.Second,
		maxOutputBytes: 100 * 1024,
	}
}

// Exec runs command with argv through the shell in workingDir and
// returns the combined output. A non-zero exit is reported in the
// output text, not as an error, so the model sees what the command
// printed.
func (s *Shell) Exec(ctx context.Context, command string, argv []string, workingDir string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	line := strings.TrimSpace(command + " " + strings.Join(argv, " "))
	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s", s.defaultTimeout)
	}

	out := truncateOutput(stdout.String(), s.maxOutputBytes)
	if errText := truncateOutput(stderr.String(), s.maxOutputBytes); errText != "" {
		out = strings.TrimSpace(out + "\n" + errText)
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Sprintf("%s\n(exit code %d)", out, exitErr.ExitCode()), nil
		}
		return "", fmt.Errorf("execute %s: %w", command, err)
	}
	if out == "" {
		out = "(no output)"
	}
	return out, nil
}

// truncateOutput truncates output to maxBytes, adding a note if truncated.
func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n\n[... output truncated ...]"
}
