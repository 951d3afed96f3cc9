// DeskWork is an autonomous desktop agent daemon.
//
// It drives an OpenAI-compatible model through a tool-calling loop,
// gates sensitive actions behind explicit user approval, and records
// every executed action in a hash-chained audit ledger. Configuration
// is loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	deskwork serve               Start the observer API server
//	deskwork chat <prompt>       Run a single prompt (for testing)
//	deskwork audit [limit]       Print recent audit ledger entries
//	deskwork audit -verify       Verify the audit ledger hash chain
//	deskwork sessions            List stored sessions
//	deskwork version             Print version and build information
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/deskwork/deskwork/internal/agent"
	"github.com/deskwork/deskwork/internal/approval"
	"github.com/deskwork/deskwork/internal/audit"
	"github.com/deskwork/deskwork/internal/buildinfo"
	"github.com/deskwork/deskwork/internal/config"
	"github.com/deskwork/deskwork/internal/desktop"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/fetch"
	"github.com/deskwork/deskwork/internal/session"
	"github.com/deskwork/deskwork/internal/tools"
	"github.com/deskwork/deskwork/internal/web"
)

// main constructs the OS-level environment (context, stdio, argv) and
// delegates immediately to [run], keeping os.Exit and os.Args out of
// the application logic so the lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the deskwork command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which interfere with parallel tests, and the argument surface here
// is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var workDir string
	var sessionID string
	var outputFmt string
	var verify bool
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-workdir" && i+1 < len(args):
			workDir = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-workdir="):
			workDir = strings.TrimPrefix(args[i], "-workdir=")
		case args[i] == "-session" && i+1 < len(args):
			sessionID = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-session="):
			sessionID = strings.TrimPrefix(args[i], "-session=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case args[i] == "-verify":
			verify = true
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "chat":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: deskwork chat <prompt>")
		}
		return runChat(ctx, stdout, configPath, workDir, sessionID, cmdArgs)
	case "audit":
		return runAudit(stdout, configPath, verify, cmdArgs)
	case "sessions":
		return runSessions(stdout, configPath, outputFmt)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// components holds everything a booted agent needs. Commands that only
// touch storage use the ledger and session store directly.
type components struct {
	cfg      *config.Config
	settings *config.SettingsStore
	bus      *events.Bus
	ledger   *audit.Ledger
	sessions *session.Store
	loop     *agent.Agent
	logger   *slog.Logger
}

// build wires the full component graph from configuration.
func build(stdout io.Writer, configPath string) (*components, error) {
	logger := newLogger(stdout, slog.LevelInfo)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded", "path", cfgPath, "model", cfg.Provider.Model)

	bus := events.New()
	settings := config.NewSettingsStore(cfg)
	ledger := audit.New(cfg.DataPath("audit.jsonl"), logger)

	sessions, err := session.NewStore(cfg.DataPath("sessions.db"), logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry, tools.Builtins{
		Files:   tools.NewFileOps(),
		Shell:   tools.NewShell(),
		Desktop: desktop.New(),
		Fetcher: fetch.New(),
		Bus:     bus,
	})
	dispatcher := tools.NewDispatcher(registry, bus, ledger, logger)

	loop := agent.New(agent.Deps{
		Settings:   settings,
		Dispatcher: dispatcher,
		Approvals:  approval.NewQueue(bus),
		Sessions:   sessions,
		Desktop:    desktop.New(),
		Bus:        bus,
		Logger:     logger,
	})

	return &components{
		cfg:      cfg,
		settings: settings,
		bus:      bus,
		ledger:   ledger,
		sessions: sessions,
		loop:     loop,
		logger:   logger,
	}, nil
}

// runServe starts the observer server and blocks until a signal or
// listener failure.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	c, err := build(stdout, configPath)
	if err != nil {
		return err
	}
	defer c.sessions.Close()

	c.logger.Info("starting DeskWork",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listen := fmt.Sprintf("%s:%d", c.cfg.Listen.Address, c.cfg.Listen.Port)
	srv := web.NewServer(listen, c.loop, c.ledger, c.sessions, c.settings, c.bus, c.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runChat processes a single prompt and prints the answer.
func runChat(ctx context.Context, stdout io.Writer, configPath, workDir, sessionID string, args []string) error {
	c, err := build(stdout, configPath)
	if err != nil {
		return err
	}
	defer c.sessions.Close()

	if workDir == "" {
		workDir = c.cfg.Workspace
	}

	answer, err := c.loop.Chat(ctx, strings.Join(args, " "), workDir, sessionID)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	fmt.Fprintln(stdout, answer)
	return nil
}

// runAudit prints recent ledger entries, or verifies the whole chain
// with -verify.
func runAudit(stdout io.Writer, configPath string, verify bool, args []string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ledger := audit.New(cfg.DataPath("audit.jsonl"), newLogger(stdout, slog.LevelWarn))

	if verify {
		broken, err := ledger.Verify()
		if err != nil {
			return fmt.Errorf("verify ledger: %w", err)
		}
		if broken >= 0 {
			return fmt.Errorf("audit chain broken at entry %d", broken)
		}
		fmt.Fprintln(stdout, "audit chain intact")
		return nil
	}

	limit := 0
	if len(args) > 0 {
		if limit, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid limit %q", args[0])
		}
	}
	entries, err := ledger.Read(limit)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s  %-20s %-7s %s\n",
			time.Unix(e.TS, 0).Format(time.RFC3339), e.Tool, e.Status, e.Action)
	}
	return nil
}

// runSessions lists stored sessions.
func runSessions(stdout io.Writer, configPath, outputFmt string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store, err := session.NewStore(cfg.DataPath("sessions.db"), newLogger(stdout, slog.LevelWarn))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	list, err := store.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	for _, m := range list {
		pin := " "
		if m.Pinned {
			pin = "*"
		}
		fmt.Fprintf(stdout, "%s %s  %-30s %s\n", pin, m.ID, m.Title, m.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "DeskWork - Autonomous Desktop Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: deskwork [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve            Start the observer API server")
	fmt.Fprintln(w, "  chat <prompt>    Run a single prompt (for testing)")
	fmt.Fprintln(w, "  audit [limit]    Print recent audit ledger entries")
	fmt.Fprintln(w, "  audit -verify    Verify the audit ledger hash chain")
	fmt.Fprintln(w, "  sessions         List stored sessions")
	fmt.Fprintln(w, "  version          Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -workdir <path>   Working directory scope for chat")
	fmt.Fprintln(w, "  -session <id>     Session to continue for chat")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
