package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deskwork/deskwork/internal/audit"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/llm"
)

// Dispatcher routes a tool name to its capability and decorates each
// invocation with activity events, telemetry, and one audit entry.
// It performs no retries: retry policy, where needed, belongs to the
// individual capability.
type Dispatcher struct {
	registry *Registry
	bus      *events.Bus
	ledger   *audit.Ledger
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher. bus and ledger may be nil in tests.
func NewDispatcher(registry *Registry, bus *events.Bus, ledger *audit.Ledger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, bus: bus, ledger: ledger, logger: logger}
}

// Registry returns the underlying tool registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes one tool call. An unknown name returns a literal
// "Unknown tool" success value rather than an error, so the model is
// never hard-failed merely for hallucinating a tool. id correlates the
// invocation's activity events.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, workingDir, id string) (*llm.Content, error) {
	tool := d.registry.Get(name)
	if tool == nil {
		d.logger.Debug("unknown tool requested", "tool", name)
		return llm.TextContent("Unknown tool"), nil
	}

	env := Env{WorkingDir: workingDir}

	if tool.Bookkeeping {
		return tool.Handler(ctx, args, env)
	}

	d.bus.Publish(events.KindActivity, map[string]any{
		"id":      id,
		"status":  "running",
		"message": progressMessage(tool, args),
	})

	start := time.Now()
	output, err := tool.Handler(ctx, args, env)
	duration := time.Since(start)

	status := "success"
	outcome := "Done"
	if err != nil {
		status = "error"
		outcome = "Failed"
	}

	d.bus.Publish(events.KindActivity, map[string]any{
		"id":      id,
		"status":  status,
		"message": fmt.Sprintf("%s -> %s", name, outcome),
	})
	d.bus.Publish(events.KindTelemetry, map[string]any{
		"tool":        name,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"kind":        "tool",
	})

	if d.ledger != nil {
		d.ledger.Append(name, status, serializeArgs(args), duration, workingDir)
	}

	d.logger.Info("tool dispatched",
		"tool", name,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)

	return output, err
}

// serializeArgs renders the raw argument payload for the audit action
// description.
func serializeArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
