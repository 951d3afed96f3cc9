package tools

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deskwork/deskwork/internal/audit"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/llm"
)

func testDispatcher(t *testing.T) (*Dispatcher, *Registry, *audit.Ledger) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ledger := audit.New(filepath.Join(t.TempDir(), "audit.jsonl"), logger)
	registry := NewRegistry()
	return NewDispatcher(registry, nil, ledger, logger), registry, ledger
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _, ledger := testDispatcher(t)

	out, err := d.Dispatch(context.Background(), "does_not_exist", nil, "", "id-1")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Text != "Unknown tool" {
		t.Errorf("output = %q", out.Text)
	}

	// Unknown tools never reach the ledger.
	entries, _ := ledger.Read(10)
	if len(entries) != 0 {
		t.Errorf("ledger has %d entries, want 0", len(entries))
	}
}

func TestDispatchAuditsExecution(t *testing.T) {
	d, registry, ledger := testDispatcher(t)
	registry.Register(&Tool{
		Name: "greet",
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			return llm.TextContent("hello"), nil
		},
	})

	out, err := d.Dispatch(context.Background(), "greet", map[string]any{"name": "sam"}, "/work", "id-1")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Text != "hello" {
		t.Errorf("output = %q", out.Text)
	}

	entries, err := ledger.Read(10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Tool != "greet" || e.Status != "success" || e.WorkingDir != "/work" {
		t.Errorf("entry = %+v", e)
	}
	if e.Action != `{"name":"sam"}` {
		t.Errorf("action = %q", e.Action)
	}
}

func TestDispatchAuditsFailure(t *testing.T) {
	d, registry, ledger := testDispatcher(t)
	boom := errors.New("boom")
	registry.Register(&Tool{
		Name: "explode",
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			return nil, boom
		},
	})

	if _, err := d.Dispatch(context.Background(), "explode", nil, "", "id-1"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	entries, _ := ledger.Read(10)
	if len(entries) != 1 || entries[0].Status != "error" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestDispatchBookkeepingSkipsAudit(t *testing.T) {
	d, registry, ledger := testDispatcher(t)
	registry.Register(&Tool{
		Name:        "set_plan",
		Bookkeeping: true,
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			return llm.TextContent("ok"), nil
		},
	})

	if _, err := d.Dispatch(context.Background(), "set_plan", nil, "", "id-1"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	entries, _ := ledger.Read(10)
	if len(entries) != 0 {
		t.Errorf("bookkeeping tool audited: %+v", entries)
	}
}

func TestDispatchPublishesActivity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	bus := events.New()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	registry := NewRegistry()
	registry.Register(&Tool{
		Name:     "slowpoke",
		Progress: func(args map[string]any) string { return "Working on it" },
		Handler: func(ctx context.Context, args map[string]any, env Env) (*llm.Content, error) {
			time.Sleep(time.Millisecond)
			return llm.TextContent("done"), nil
		},
	})
	d := NewDispatcher(registry, bus, nil, logger)

	if _, err := d.Dispatch(context.Background(), "slowpoke", nil, "", "id-9"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var kinds []string
	var first events.Event
	for i := 0; i < 3; i++ {
		select {
		case ev := <-sub:
			if i == 0 {
				first = ev
			}
			kinds = append(kinds, ev.Kind)
		default:
			t.Fatalf("only %d events published", i)
		}
	}

	if kinds[0] != events.KindActivity || kinds[1] != events.KindActivity || kinds[2] != events.KindTelemetry {
		t.Errorf("event kinds = %v", kinds)
	}
	if first.Data["status"] != "running" || first.Data["message"] != "Working on it" {
		t.Errorf("running event = %v", first.Data)
	}
}

func TestSchemasRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		registry.Register(&Tool{Name: name, Parameters: objectSchema(map[string]any{})})
	}

	schemas := registry.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("got %d schemas", len(schemas))
	}
	for i, want := range []string{"zeta", "alpha", "mid"} {
		fn := schemas[i]["function"].(map[string]any)
		if fn["name"] != want {
			t.Errorf("schemas[%d] = %v, want %s", i, fn["name"], want)
		}
	}
}
