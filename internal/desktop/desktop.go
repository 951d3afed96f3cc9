// Package desktop adapts OS-level automation helpers (input
// simulation, screen capture, application launch) behind a single
// controller. The implementations shell out to the platform's
// automation utilities; hosts without them get a descriptive error
// that flows back to the model as a tool failure.
package desktop

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Controller runs desktop automation commands.
type Controller struct {
	lookPath func(string) (string, error)
}

// New creates a desktop controller.
func New() *Controller {
	return &Controller{lookPath: exec.LookPath}
}

// run executes the first available helper from candidates.
func (c *Controller) run(ctx context.Context, candidates [][]string) (string, error) {
	for _, argv := range candidates {
		bin, err := c.lookPath(argv[0])
		if err != nil {
			continue
		}
		out, err := exec.CommandContext(ctx, bin, argv[1:]...).CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
		}
		return strings.TrimSpace(string(out)), nil
	}
	return "", fmt.Errorf("no automation helper found (need one of: %s)", candidateNames(candidates))
}

func candidateNames(candidates [][]string) string {
	names := make([]string, len(candidates))
	for i, argv := range candidates {
		names[i] = argv[0]
	}
	return strings.Join(names, ", ")
}

// OpenApp launches an application, file, or URL with the platform
// opener.
func (c *Controller) OpenApp(ctx context.Context, target string) error {
	var candidates [][]string
	switch runtime.GOOS {
	case "darwin":
		candidates = [][]string{{"open", target}}
	case "windows":
		candidates = [][]string{{"cmd", "/c", "start", "", target}}
	default:
		candidates = [][]string{{"xdg-open", target}}
	}
	_, err := c.run(ctx, candidates)
	return err
}

// KeyboardType simulates typing text.
func (c *Controller) KeyboardType(ctx context.Context, text string) error {
	_, err := c.run(ctx, [][]string{
		{"xdotool", "type", "--delay", "20", text},
		{"ydotool", "type", text},
	})
	return err
}

// KeyboardPress simulates a single key press (Enter, Tab, etc).
func (c *Controller) KeyboardPress(ctx context.Context, key string) error {
	_, err := c.run(ctx, [][]string{
		{"xdotool", "key", key},
		{"ydotool", "key", key},
	})
	return err
}

// MouseMove moves the cursor to screen coordinates.
func (c *Controller) MouseMove(ctx context.Context, x, y int) error {
	_, err := c.run(ctx, [][]string{
		{"xdotool", "mousemove", fmt.Sprint(x), fmt.Sprint(y)},
	})
	return err
}

// MouseClick clicks a mouse button ("left", "right", "middle").
func (c *Controller) MouseClick(ctx context.Context, button string) error {
	num := map[string]string{"left": "1", "middle": "2", "right": "3"}[button]
	if num == "" {
		num = "1"
	}
	_, err := c.run(ctx, [][]string{
		{"xdotool", "click", num},
	})
	return err
}

// Screenshot captures the screen and returns it as a base64 data URL
// suitable for an image-reference content part.
func (c *Controller) Screenshot(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp("", "deskwork-shot-*.png")
	if err != nil {
		return "", fmt.Errorf("screenshot temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	var candidates [][]string
	switch runtime.GOOS {
	case "darwin":
		candidates = [][]string{{"screencapture", "-x", path}}
	default:
		candidates = [][]string{
			{"scrot", "--overwrite", path},
			{"import", "-window", "root", path},
		}
	}
	if _, err := c.run(ctx, candidates); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read screenshot: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ActiveWindow returns the title of the focused window, or "Unknown"
// when it cannot be determined. Never an error: this feeds the system
// prompt, where a missing value is acceptable.
func (c *Controller) ActiveWindow(ctx context.Context) string {
	out, err := c.run(ctx, [][]string{
		{"xdotool", "getactivewindow", "getwindowname"},
	})
	if err != nil || out == "" {
		return "Unknown"
	}
	return out
}
