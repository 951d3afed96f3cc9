// Package tools defines the tool registry and the dispatcher that
// routes model-requested invocations to their capabilities.
package tools

import (
	"context"
	"fmt"

	"github.com/deskwork/deskwork/internal/llm"
)

// Env carries per-invocation context into a tool handler.
type Env struct {
	// WorkingDir is the session's working-directory scope. Relative
	// paths in tool arguments resolve against it.
	WorkingDir string
}

// HandlerFunc executes a tool with best-effort coerced arguments.
type HandlerFunc func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error)

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON-schema object advertised to the model.
	Parameters map[string]any
	// Progress renders the human-readable "running" message from the
	// tool's key argument(s). Nil falls back to a generic message.
	Progress func(args map[string]any) string
	// Bookkeeping tools (plan updates) skip activity, telemetry, and
	// audit decoration.
	Bookkeeping bool
	Handler     HandlerFunc
}

// Registry holds available tools.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty registry. Builtins are registered by
// the capability packages via RegisterBuiltins in builtin.go.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	if _, ok := r.tools[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Schemas returns the tool catalog in the shape the chat-completions
// API expects, in registration order.
func (r *Registry) Schemas() []map[string]any {
	result := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// progressMessage resolves the "running" notification text for a tool.
func progressMessage(t *Tool, args map[string]any) string {
	if t.Progress != nil {
		if msg := t.Progress(args); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Running %s...", t.Name)
}

// objectSchema builds a JSON-schema object from property definitions.
func objectSchema(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integerProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}
