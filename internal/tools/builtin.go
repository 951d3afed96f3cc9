package tools

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/deskwork/deskwork/internal/desktop"
	"github.com/deskwork/deskwork/internal/docgen"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/fetch"
	"github.com/deskwork/deskwork/internal/llm"
)

// Builtins bundles the capability providers the builtin tools run on.
type Builtins struct {
	Files   *FileOps
	Shell   *Shell
	Desktop *desktop.Controller
	Fetcher *fetch.Fetcher
	Bus     *events.Bus
}

// maxWaitMillis caps the wait tool so a runaway plan cannot park the
// loop for minutes.
const maxWaitMillis = 30_000

// RegisterBuiltins registers the full tool catalog on reg.
func RegisterBuiltins(reg *Registry, b Builtins) {
	text := func(s string) (*llm.Content, error) { return llm.TextContent(s), nil }
	textf := func(format string, a ...any) (*llm.Content, error) {
		return llm.TextContent(fmt.Sprintf(format, a...)), nil
	}

	reg.Register(&Tool{
		Name:        "set_plan",
		Description: "Set or replace the ordered step plan shown to the user.",
		Parameters: objectSchema(map[string]any{
			"steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Ordered plan steps",
			},
		}, "steps"),
		Bookkeeping: true,
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			steps := StrList(args, "steps")
			b.Bus.Publish(events.KindPlan, map[string]any{"steps": steps, "current_step": 0})
			return textf("Plan set (%d steps).", len(steps))
		},
	})

	reg.Register(&Tool{
		Name:        "complete_step",
		Description: "Mark a plan step as completed.",
		Parameters: objectSchema(map[string]any{
			"index": integerProp("Zero-based index of the completed step"),
		}, "index"),
		Bookkeeping: true,
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			idx := Int(args, "index", 0)
			b.Bus.Publish(events.KindPlan, map[string]any{"current_step": idx + 1})
			return textf("Step %d complete.", idx)
		},
	})

	reg.Register(&Tool{
		Name:        "list_dir",
		Description: "List the contents of a directory.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Directory path, relative to the working directory"),
		}),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Listing %s", Str(args, "path", "."))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			out, err := b.Files.List(env.WorkingDir, Str(args, "path", "."))
			if err != nil {
				return nil, err
			}
			return text(out)
		},
	})

	reg.Register(&Tool{
		Name:        "read_file",
		Description: "Read a text file's contents.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("File path, relative to the working directory"),
		}, "path"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Reading %s", Str(args, "path", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			out, err := b.Files.Read(env.WorkingDir, Str(args, "path", ""))
			if err != nil {
				return nil, err
			}
			return text(out)
		},
	})

	reg.Register(&Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories as needed.",
		Parameters: objectSchema(map[string]any{
			"path":    stringProp("File path, relative to the working directory"),
			"content": stringProp("Full file content to write"),
		}, "path", "content"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Writing %s", Str(args, "path", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			path := Str(args, "path", "")
			if err := b.Files.Write(env.WorkingDir, path, Str(args, "content", "")); err != nil {
				return nil, err
			}
			return textf("Wrote %s", path)
		},
	})

	reg.Register(&Tool{
		Name:        "search_files",
		Description: "Search file contents for a string, case-insensitive.",
		Parameters: objectSchema(map[string]any{
			"query": stringProp("Text to search for"),
			"path":  stringProp("Directory to search under (default: working directory)"),
		}, "query"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Searching for %q", Str(args, "query", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			out, err := b.Files.Search(env.WorkingDir, Str(args, "query", ""), Str(args, "path", "."))
			if err != nil {
				return nil, err
			}
			return text(out)
		},
	})

	reg.Register(&Tool{
		Name:        "find_file_smart",
		Description: "Find files whose names loosely match a query.",
		Parameters: objectSchema(map[string]any{
			"query": stringProp("File name fragment to match"),
			"path":  stringProp("Directory to search under (default: working directory)"),
		}, "query"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Finding files like %q", Str(args, "query", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			out, err := b.Files.FindSmart(env.WorkingDir, Str(args, "query", ""), Str(args, "path", "."))
			if err != nil {
				return nil, err
			}
			return text(out)
		},
	})

	reg.Register(&Tool{
		Name:        "execute_command",
		Description: "Run a command with arguments in the working directory.",
		Parameters: objectSchema(map[string]any{
			"command": stringProp("Program to run"),
			"args": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Command arguments",
			},
		}, "command"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Running %s", Str(args, "command", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			out, err := b.Shell.Exec(ctx, Str(args, "command", ""), StrList(args, "args"), env.WorkingDir)
			if err != nil {
				return nil, err
			}
			return text(out)
		},
	})

	reg.Register(&Tool{
		Name:        "open_app",
		Description: "Open an application, file, or URL with the system opener.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Application name, file path, or URL"),
		}, "path"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Opening %s", Str(args, "path", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			path := Str(args, "path", "")
			if err := b.Desktop.OpenApp(ctx, path); err != nil {
				return nil, err
			}
			return textf("Opened %s", path)
		},
	})

	reg.Register(&Tool{
		Name:        "fetch_url",
		Description: "Fetch a web page and return its readable text.",
		Parameters: objectSchema(map[string]any{
			"url":           stringProp("URL to fetch"),
			"expected_hash": stringProp("Optional SHA-256 hex digest the raw body must match"),
		}, "url"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Fetching %s", Str(args, "url", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			out, err := b.Fetcher.Fetch(ctx, Str(args, "url", ""), Str(args, "expected_hash", ""))
			if err != nil {
				return nil, err
			}
			return text(out)
		},
	})

	reg.Register(&Tool{
		Name:        "search_web",
		Description: "Open a web search for a query in the user's browser.",
		Parameters: objectSchema(map[string]any{
			"query": stringProp("Search query"),
		}, "query"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Searching the web for %q", Str(args, "query", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			query := Str(args, "query", "")
			target := "https://duckduckgo.com/?q=" + url.QueryEscape(query)
			if err := b.Desktop.OpenApp(ctx, target); err != nil {
				return nil, err
			}
			return textf("Opened web search for %q", query)
		},
	})

	reg.Register(&Tool{
		Name:        "get_system_stats",
		Description: "Report host load and memory usage.",
		Parameters:  objectSchema(map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			return text(SystemStats())
		},
	})

	reg.Register(&Tool{
		Name:        "keyboard_type",
		Description: "Type text into the focused window.",
		Parameters: objectSchema(map[string]any{
			"text": stringProp("Text to type"),
		}, "text"),
		Progress: func(args map[string]any) string { return "Typing text" },
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			if err := b.Desktop.KeyboardType(ctx, Str(args, "text", "")); err != nil {
				return nil, err
			}
			return text("Typed text.")
		},
	})

	reg.Register(&Tool{
		Name:        "keyboard_press",
		Description: "Press a single key (Return, Tab, Escape, etc).",
		Parameters: objectSchema(map[string]any{
			"key": stringProp("Key name to press"),
		}, "key"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Pressing %s", Str(args, "key", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			key := Str(args, "key", "")
			if err := b.Desktop.KeyboardPress(ctx, key); err != nil {
				return nil, err
			}
			return textf("Pressed %s", key)
		},
	})

	reg.Register(&Tool{
		Name:        "mouse_move",
		Description: "Move the mouse cursor to screen coordinates.",
		Parameters: objectSchema(map[string]any{
			"x": integerProp("Horizontal screen coordinate"),
			"y": integerProp("Vertical screen coordinate"),
		}, "x", "y"),
		Progress: func(args map[string]any) string { return "Moving mouse" },
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			x, y := Int(args, "x", 0), Int(args, "y", 0)
			if err := b.Desktop.MouseMove(ctx, x, y); err != nil {
				return nil, err
			}
			return textf("Moved mouse to %d,%d", x, y)
		},
	})

	reg.Register(&Tool{
		Name:        "mouse_click",
		Description: "Click a mouse button (left, right, middle).",
		Parameters: objectSchema(map[string]any{
			"button": stringProp("Button to click (default left)"),
		}),
		Progress: func(args map[string]any) string { return "Clicking mouse" },
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			button := Str(args, "button", "left")
			if err := b.Desktop.MouseClick(ctx, button); err != nil {
				return nil, err
			}
			return textf("Clicked %s button", button)
		},
	})

	reg.Register(&Tool{
		Name:        "get_screenshot",
		Description: "Capture the screen and return it as an image.",
		Parameters:  objectSchema(map[string]any{}),
		Progress:    func(args map[string]any) string { return "Taking screenshot" },
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			dataURL, err := b.Desktop.Screenshot(ctx)
			if err != nil {
				return nil, err
			}
			return llm.PartsContent(
				llm.Part{Type: "text", Text: "Screenshot captured. Analyze this image to find coordinates."},
				llm.Part{Type: "image_url", ImageURL: &llm.ImageURL{URL: dataURL}},
			), nil
		},
	})

	reg.Register(&Tool{
		Name:        "wait",
		Description: "Pause before the next step, e.g. while an application starts.",
		Parameters: objectSchema(map[string]any{
			"milliseconds": integerProp("Milliseconds to wait (max 30000)"),
		}, "milliseconds"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Waiting %dms...", Int(args, "milliseconds", 0))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			ms := Int(args, "milliseconds", 0)
			if ms < 0 {
				ms = 0
			}
			if ms > maxWaitMillis {
				ms = maxWaitMillis
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(ms) * time.Millisecond):
			}
			return text("Wait complete")
		},
	})

	reg.Register(&Tool{
		Name:        "create_docx",
		Description: "Create a Word document from markdown-style text.",
		Parameters: objectSchema(map[string]any{
			"filename": stringProp("Output path for the .docx file"),
			"content":  stringProp("Document text; # and ## lines become headings"),
		}, "filename", "content"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Creating document %s", Str(args, "filename", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			path := b.Files.resolve(env.WorkingDir, Str(args, "filename", ""))
			if err := docgen.Docx(Str(args, "content", ""), path); err != nil {
				return nil, err
			}
			return textf("Created %s", Str(args, "filename", ""))
		},
	})

	reg.Register(&Tool{
		Name:        "create_slide_deck",
		Description: "Create an HTML slide deck from markdown; slides separated by ---.",
		Parameters: objectSchema(map[string]any{
			"filename": stringProp("Output path for the .html file"),
			"content":  stringProp("Markdown content; --- lines separate slides"),
		}, "filename", "content"),
		Progress: func(args map[string]any) string {
			return fmt.Sprintf("Creating slide deck %s", Str(args, "filename", ""))
		},
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			path := b.Files.resolve(env.WorkingDir, Str(args, "filename", ""))
			if err := docgen.SlideDeck(Str(args, "content", ""), path); err != nil {
				return nil, err
			}
			return textf("Created %s", Str(args, "filename", ""))
		},
	})
}
