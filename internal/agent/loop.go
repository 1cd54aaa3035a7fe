// Package agent implements the core agent loop: bounded iterative tool
// use driven by model decisions, with conversation persistence and
// usage accounting.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lunahq/luna/internal/llm"
	"github.com/lunahq/luna/internal/memory"
	"github.com/lunahq/luna/internal/parser"
	"github.com/lunahq/luna/internal/prompts"
	"github.com/lunahq/luna/internal/tools"
	"github.com/lunahq/luna/internal/usage"
)

// Request is one user turn handed to the loop.
type Request struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id,omitempty"`
	Title          string `json:"title,omitempty"`
}

// Response is the loop's reply for a turn.
type Response struct {
	Output         string `json:"output"`
	ConversationID string `json:"conversation_id"`
}

// scratchpadEntry records one tool invocation and its observation
// within the current turn.
type scratchpadEntry struct {
	tool        string
	args        map[string]any
	observation string
}

// Options configures a Loop.
type Options struct {
	MaxIterations int
	// HistoryWindow is the number of recent messages included in the
	// prompt. Zero or negative means the full history.
	HistoryWindow int
	StrictParsing bool
	SystemPrompt  string
}

// Loop runs agent turns. All collaborators are required except the
// tracker, which may be nil to disable usage accounting.
type Loop struct {
	logger        *slog.Logger
	store         *memory.SQLiteStore
	llm           llm.Client
	registry      *tools.Registry
	tracker       *usage.Tracker
	sessions      *SessionStore
	maxIterations int
	historyWindow int
	strict        bool
	systemPrompt  string
}

// NewLoop creates an agent loop.
func NewLoop(logger *slog.Logger, store *memory.SQLiteStore, client llm.Client, registry *tools.Registry, tracker *usage.Tracker, opts Options) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}
	return &Loop{
		logger:        logger,
		store:         store,
		llm:           client,
		registry:      registry,
		tracker:       tracker,
		sessions:      NewSessionStore(),
		maxIterations: opts.MaxIterations,
		historyWindow: opts.HistoryWindow,
		strict:        opts.StrictParsing,
		systemPrompt:  opts.SystemPrompt,
	}
}

// Run executes one turn: persist the user message, iterate on model
// decisions until a final answer or the iteration ceiling, persist the
// assistant message, and record usage. Turns on the same conversation
// are serialized; different conversations run concurrently.
func (l *Loop) Run(ctx context.Context, req *Request) (*Response, error) {
	convID := req.ConversationID
	if convID == "" {
		convID = uuid.New().String()
	}

	unlock := l.sessions.Lock(convID)
	defer unlock()

	l.logger.Info("agent turn started", "conversation", convID)

	// History is loaded before the new user message lands so the turn
	// input is not duplicated in the context.
	history, err := l.store.Window(convID, l.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg := &memory.Message{Role: "user", Content: req.Input}
	if err := l.store.Append(convID, userMsg, req.UserID, req.Title); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	system := prompts.System(l.systemPrompt, l.registry.List())

	var scratchpad []scratchpadEntry
	var totalUsage llm.Usage
	var lastObservation string

	for iter := 0; iter < l.maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		messages := l.assemble(system, history, req.Input, scratchpad)

		l.logger.Debug("calling model", "iteration", iter, "messages", len(messages))
		result, err := l.llm.Generate(ctx, messages)
		if err != nil {
			l.logger.Error("model call failed", "error", err, "iteration", iter)
			return nil, fmt.Errorf("generate: %w", err)
		}
		accumulate(&totalUsage, result.Usage)

		decision, err := l.parse(result.Text)
		if err != nil {
			return nil, err
		}

		if decision.Answer != nil {
			return l.finish(convID, req, decision.Answer.Text, scratchpad, totalUsage)
		}

		inv := decision.Invocation
		observation := l.invoke(ctx, inv)
		lastObservation = observation
		scratchpad = append(scratchpad, scratchpadEntry{
			tool:        inv.Name,
			args:        inv.Arguments,
			observation: observation,
		})

		l.logger.Info("tool invoked",
			"conversation", convID,
			"tool", inv.Name,
			"iteration", iter,
		)
	}

	// Iteration ceiling: answer with what we have rather than failing
	// the turn.
	l.logger.Warn("iteration ceiling reached", "conversation", convID, "iterations", l.maxIterations)
	output := prompts.IncompleteRunNotice
	if lastObservation != "" {
		output = fmt.Sprintf("%s\n\n%s", prompts.IncompleteRunNotice, lastObservation)
	}
	return l.finish(convID, req, output, scratchpad, totalUsage)
}

// parse applies the configured parsing mode to model output.
func (l *Loop) parse(text string) (parser.Decision, error) {
	if l.strict {
		d, err := parser.ParseStrict(text)
		if err != nil {
			l.logger.Error("strict parse rejected model output", "error", err)
			return parser.Decision{}, err
		}
		return d, nil
	}
	return parser.Parse(text), nil
}

// invoke runs a tool and folds failures into the observation text so
// the model can react to them.
func (l *Loop) invoke(ctx context.Context, inv *parser.ToolInvocation) string {
	if l.registry.Get(inv.Name) == nil {
		return fmt.Sprintf("Error: tool %q is not available. Available tools: %v", inv.Name, l.registry.Names())
	}
	out, err := l.registry.Execute(ctx, inv.Name, inv.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

// assemble builds the model context: system prompt, windowed history,
// the turn input, then the scratchpad of this turn's tool activity.
func (l *Loop) assemble(system string, history []memory.Message, input string, scratchpad []scratchpadEntry) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+len(scratchpad)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})

	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	messages = append(messages, llm.Message{Role: "user", Content: input})

	for _, e := range scratchpad {
		messages = append(messages, llm.Message{Role: "assistant", Content: renderScratchpad(e)})
	}
	return messages
}

// renderScratchpad formats one tool exchange as an assistant message.
func renderScratchpad(e scratchpadEntry) string {
	args, err := json.Marshal(e.args)
	if err != nil {
		args = []byte("{}")
	}
	return fmt.Sprintf("I will use the %s tool with input: %s\n\nTool response: %s", e.tool, args, e.observation)
}

// finish persists the assistant message with its tool-call summary and
// usage, then returns the turn response.
func (l *Loop) finish(convID string, req *Request, output string, scratchpad []scratchpadEntry, u llm.Usage) (*Response, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	toolCalls := make([]memory.ToolCallRecord, 0, len(scratchpad))
	for _, e := range scratchpad {
		toolCalls = append(toolCalls, memory.ToolCallRecord{Name: e.tool, Arguments: e.args})
	}

	msg := &memory.Message{
		ExternalID: runID.String(),
		Role:       "assistant",
		Content:    output,
		ToolCalls:  toolCalls,
	}

	if l.tracker != nil {
		if err := l.tracker.RecordRun(convID, runID.String(), msg, u); err != nil {
			return nil, fmt.Errorf("record usage: %w", err)
		}
	} else if err := l.store.Append(convID, msg, req.UserID, req.Title); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	l.logger.Info("agent turn completed",
		"conversation", convID,
		"tool_calls", len(toolCalls),
		"total_tokens", u.TotalTokens,
	)

	return &Response{Output: output, ConversationID: convID}, nil
}

func accumulate(total *llm.Usage, u llm.Usage) {
	total.InputTokens += u.InputTokens
	total.OutputTokens += u.OutputTokens
	total.TotalTokens += u.TotalTokens
	total.CacheReadTokens += u.CacheReadTokens
	total.CacheCreationTokens += u.CacheCreationTokens
}
