// Package agent runs the conversation loop: it carries the transcript
// between the model backend and the tool dispatcher, routes sensitive
// tool calls through the approval gateway, and persists a sanitized
// copy of each session.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskwork/deskwork/internal/approval"
	"github.com/deskwork/deskwork/internal/config"
	"github.com/deskwork/deskwork/internal/desktop"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/llm"
	"github.com/deskwork/deskwork/internal/prompts"
	"github.com/deskwork/deskwork/internal/session"
	"github.com/deskwork/deskwork/internal/tools"
)

// maxRounds caps backend round trips per user prompt. A request that
// is still tool-calling after this many rounds is cut off with a
// notice rather than allowed to loop forever.
const maxRounds = 10

// Agent owns one conversation loop and its collaborators.
type Agent struct {
	settings   *config.SettingsStore
	dispatcher *tools.Dispatcher
	approvals  *approval.Queue
	sessions   *session.Store
	desktop    *desktop.Controller
	bus        *events.Bus
	logger     *slog.Logger

	// newClient builds a backend client from the settings snapshot
	// taken at the start of each Chat call. Swappable in tests.
	newClient func(config.Settings) llm.Client

	// mu guards the current-session cell. Chat calls without an
	// explicit session id continue whatever session is current.
	mu        sync.Mutex
	currentID string
}

// Deps bundles the collaborators an Agent needs.
type Deps struct {
	Settings   *config.SettingsStore
	Dispatcher *tools.Dispatcher
	Approvals  *approval.Queue
	Sessions   *session.Store
	Desktop    *desktop.Controller
	Bus        *events.Bus
	Logger     *slog.Logger
	NewClient  func(config.Settings) llm.Client
}

// New creates an agent. A nil NewClient selects the OpenAI-compatible
// client configured from the settings snapshot.
func New(d Deps) *Agent {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.NewClient == nil {
		d.NewClient = func(s config.Settings) llm.Client {
			return llm.NewOpenAIClient(s.BaseURL, s.APIKey, d.Logger)
		}
	}
	return &Agent{
		settings:   d.Settings,
		dispatcher: d.Dispatcher,
		approvals:  d.Approvals,
		sessions:   d.Sessions,
		desktop:    d.Desktop,
		bus:        d.Bus,
		logger:     d.Logger,
		newClient:  d.NewClient,
	}
}

// Chat handles one user prompt and returns the final answer text.
// "approve <id>" and "deny <id>" prompts are resolved against the
// approval queue without touching the backend.
func (a *Agent) Chat(ctx context.Context, prompt, workingDir, sessionID string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(prompt))
	if id, ok := strings.CutPrefix(trimmed, "approve "); ok {
		return a.resolveApproval(ctx, strings.TrimSpace(id), true), nil
	}
	if id, ok := strings.CutPrefix(trimmed, "deny "); ok {
		return a.resolveApproval(ctx, strings.TrimSpace(id), false), nil
	}

	// Settings are snapshotted once per prompt; a concurrent settings
	// change applies to the next prompt, not this one.
	settings := a.settings.Snapshot()
	if settings.APIKey == "" {
		return "Please set your API key in Settings.", nil
	}
	client := a.newClient(settings)

	sid, err := a.resolveSession(sessionID)
	if err != nil {
		return "", err
	}

	title, history := a.sessions.Load(sid)
	if len(history) == 0 {
		history = append(history, llm.Message{
			Role:    "system",
			Content: llm.TextContent(prompts.System(workingDir, a.desktop.ActiveWindow(ctx))),
		})
	}

	userText := prompt
	if workingDir != "" && workingDir != "." {
		userText = fmt.Sprintf("(Context: %s) %s", workingDir, prompt)
	}
	history = append(history, llm.Message{Role: "user", Content: llm.TextContent(userText)})

	schemas := a.dispatcher.Registry().Schemas()
	var finalResponse string
	exhausted := true

conversation:
	for round := 0; round < maxRounds; round++ {
		resp, err := a.chatRound(ctx, client, &llm.ChatRequest{
			Model:      settings.Model,
			Messages:   history,
			Tools:      schemas,
			ToolChoice: "auto",
		})
		if err != nil {
			// Retries are already spent inside the client; this is
			// terminal for the whole prompt and nothing is persisted.
			a.logger.Error("chat round failed", "round", round, "error", err)
			return prompts.OfflineFallback, nil
		}

		msg := resp.First()
		if msg == nil {
			return "", fmt.Errorf("backend returned no choices")
		}
		history = append(history, *msg)

		if len(msg.ToolCalls) == 0 {
			finalResponse = msg.Content.JoinedText()
			exhausted = false
			break
		}

		for _, call := range msg.ToolCalls {
			name := call.Function.Name
			args := call.Function.Args()

			if reason := approval.Reason(settings, name, args, workingDir); reason != "" {
				// A flagged call ends the batch: queued, never run, and
				// the approval instructions become the answer.
				finalResponse = a.approvals.Request(name, approval.Summarize(name, args), args, workingDir, reason)
				history = append(history, llm.Message{
					Role:    "assistant",
					Content: llm.TextContent(finalResponse),
				})
				exhausted = false
				break conversation
			}

			output, err := a.dispatcher.Dispatch(ctx, name, args, workingDir, uuid.NewString())
			if err != nil {
				output = llm.TextContent(fmt.Sprintf("Error: %v", err))
			}
			history = append(history, llm.Message{
				Role:       "tool",
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	if finalResponse == "" {
		if exhausted {
			finalResponse = prompts.RoundBudgetNotice
		} else {
			finalResponse = prompts.EmptyResponseFallback
		}
	}

	a.streamAnswer(finalResponse)

	if err := a.sessions.Save(sid, title, history); err != nil {
		a.logger.Warn("session save failed", "session", sid, "error", err)
	}
	return finalResponse, nil
}

// chatRound sends one backend request and publishes api telemetry.
func (a *Agent) chatRound(ctx context.Context, client llm.Client, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := client.Chat(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	a.bus.Publish(events.KindTelemetry, map[string]any{
		"tool":        "chat_completion",
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
		"kind":        "api",
	})
	return resp, err
}

// resolveSession returns the session id this prompt belongs to,
// updating the current-session cell. With no explicit id and no
// current session, a fresh session is created.
func (a *Agent) resolveSession(sessionID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if sessionID != "" {
		a.currentID = sessionID
		return sessionID, nil
	}
	if a.currentID != "" {
		return a.currentID, nil
	}
	meta, err := a.sessions.Create("New Session")
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	a.currentID = meta.ID
	return meta.ID, nil
}

// resolveApproval consumes a pending approval. Approving runs the
// stored call through the normal dispatch path; denying just drops it.
func (a *Agent) resolveApproval(ctx context.Context, id string, approved bool) string {
	pending, ok := a.approvals.Pop(id)
	if !ok {
		return fmt.Sprintf("No pending approval for id '%s'", id)
	}

	if !approved {
		a.approvals.Resolved(id, "denied")
		return fmt.Sprintf("Denied request %s", id)
	}

	output, err := a.dispatcher.Dispatch(ctx, pending.Tool, pending.Args, pending.WorkingDir, pending.ID)
	a.approvals.Resolved(id, "approved")
	if err != nil {
		return fmt.Sprintf("Failed %s: %v", pending.Action, err)
	}
	if output != nil && output.Kind == llm.ContentParts {
		return fmt.Sprintf("Approved %s: (structured output)", pending.Action)
	}
	return fmt.Sprintf("Approved %s: %s", pending.Action, output.JoinedText())
}

// streamAnswer replays the final answer as whitespace-split tokens on
// the event bus, then a done marker.
func (a *Agent) streamAnswer(answer string) {
	if answer == "" {
		return
	}
	sep := ""
	for _, token := range strings.Fields(answer) {
		a.bus.Publish(events.KindChatStream, map[string]any{
			"token": sep + token,
			"done":  false,
		})
		sep = " "
	}
	a.bus.Publish(events.KindChatStream, map[string]any{"done": true})
}
