package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/logging"
	"github.com/calbot/calbot/internal/tools"
)

// Defaults for agent behavior.
const (
	// DefaultModelName is used when no model name is configured.
	DefaultModelName = "gpt-4"

	// DefaultTemperature keeps answers consistent and factual.
	DefaultTemperature = 0.1

	// DefaultMaxToolIterations bounds the tool-calling loop per turn.
	DefaultMaxToolIterations = 3

	// DefaultMaxHistory bounds the conversation window in messages.
	DefaultMaxHistory = 20
)

// Agent drives the tool-calling conversation loop against a language model.
type Agent struct {
	llm      llms.Model
	registry *tools.Registry

	system            string
	model             string
	temperature       float64
	maxToolIterations int
	maxHistory        int

	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt overrides the built-in scheduling system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.system = prompt
		}
	}
}

// WithModelName sets the model requested from the backend.
func WithModelName(model string) Option {
	return func(a *Agent) {
		if model != "" {
			a.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(a *Agent) {
		if temperature >= 0 {
			a.temperature = temperature
		}
	}
}

// WithMaxToolIterations bounds the tool-calling loop per turn.
func WithMaxToolIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolIterations = n
		}
	}
}

// WithMaxHistory bounds the retained conversation window in messages.
func WithMaxHistory(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxHistory = n
		}
	}
}

// WithMetrics attaches metrics recording.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(a *Agent) { a.metrics = metrics }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an agent for the given model handle and tool registry.
func New(llm llms.Model, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		llm:               llm,
		registry:          registry,
		system:            systemPrompt,
		model:             DefaultModelName,
		temperature:       DefaultTemperature,
		maxToolIterations: DefaultMaxToolIterations,
		maxHistory:        DefaultMaxHistory,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ToolCall records one dispatched tool call within a turn.
type ToolCall struct {
	Tool      string        `json:"tool"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result"`
	IsError   bool          `json:"is_error"`
	Duration  time.Duration `json:"duration"`
}

// Turn is the outcome of one user turn: the reply text, the updated
// conversation history, and the trace of every tool call made.
type Turn struct {
	Reply     string
	History   []llms.MessageContent
	ToolCalls []ToolCall
}

// HandleTurn processes one user message against the conversation history.
// The history argument is not mutated; the returned Turn carries the
// updated copy. On error the caller should keep its existing history.
func (a *Agent) HandleTurn(ctx context.Context, history []llms.MessageContent, userMessage string) (*Turn, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("user message cannot be empty")
	}

	start := time.Now()

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, a.system))
	messages = append(messages, trimHistory(history, a.maxHistory)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))

	opts := []llms.CallOption{
		llms.WithModel(a.model),
		llms.WithTemperature(a.temperature),
	}
	if llmTools := a.registry.LLMTools(); len(llmTools) > 0 {
		opts = append(opts, llms.WithTools(llmTools))
	}

	turn := &Turn{}
	iterations := 0

	for {
		choice, err := a.generate(ctx, messages, opts)
		if err != nil {
			if a.metrics != nil {
				a.metrics.RecordAgentTurn(ctx, instrumentation.StatusError, iterations)
			}
			return nil, err
		}

		toolCalls := modelToolCalls(choice)
		if len(toolCalls) == 0 {
			turn.Reply = choice.Content
			break
		}

		if iterations >= a.maxToolIterations {
			a.logger.Warn("Tool iteration limit reached",
				slog.Int("iterations", iterations),
				logging.Model(a.model))
			turn.Reply = iterationLimitReply
			break
		}
		iterations++

		// Record the assistant's tool request, then feed each result
		// back as a tool message before asking the model again.
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, call := range toolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		messages = append(messages, assistant)

		for _, call := range toolCalls {
			record := a.dispatch(ctx, call)
			turn.ToolCalls = append(turn.ToolCalls, record)

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       record.Tool,
					Content:    record.Result,
				}},
			})
		}
	}

	turn.History = a.updatedHistory(history, userMessage, turn.Reply)

	if a.metrics != nil {
		a.metrics.RecordAgentTurn(ctx, instrumentation.StatusSuccess, iterations)
	}
	a.logger.Debug("Conversation turn completed",
		slog.Int("tool_calls", len(turn.ToolCalls)),
		slog.Int("history_length", len(turn.History)),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	return turn, nil
}

// generate asks the model for the next decision, retrying exactly once
// on failure before giving up on the turn.
func (a *Agent) generate(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (*llms.ContentChoice, error) {
	choice, err := a.generateOnce(ctx, messages, opts)
	if err == nil {
		return choice, nil
	}

	a.logger.Warn("Model request failed, retrying",
		logging.Model(a.model),
		logging.Err(err))
	if a.metrics != nil {
		a.metrics.RecordModelRetry(ctx, a.model)
	}

	choice, retryErr := a.generateOnce(ctx, messages, opts)
	if retryErr != nil {
		return nil, fmt.Errorf("model request failed after retry: %w", retryErr)
	}
	return choice, nil
}

func (a *Agent) generateOnce(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (*llms.ContentChoice, error) {
	start := time.Now()
	resp, err := a.llm.GenerateContent(ctx, messages, opts...)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil || resp == nil || len(resp.Choices) == 0 {
		status = instrumentation.StatusError
	}
	if a.metrics != nil {
		a.metrics.RecordModelRequest(ctx, a.model, status)
		a.metrics.RecordRemoteOperation(ctx, instrumentation.ServiceOpenAI, instrumentation.OperationChat, status, duration)
	}

	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0], nil
}

// dispatch runs one tool call through the registry and records its trace.
func (a *Agent) dispatch(ctx context.Context, call llms.ToolCall) ToolCall {
	name := ""
	args := ""
	if call.FunctionCall != nil {
		name = call.FunctionCall.Name
		args = call.FunctionCall.Arguments
	}

	logger := logging.WithTool(a.logger, name)
	logger.Debug("Dispatching tool call")

	start := time.Now()
	result, isError := a.registry.Dispatch(ctx, name, args)
	duration := time.Since(start)

	if isError {
		logger.Warn("Tool call returned an error",
			logging.Status(logging.StatusError),
			slog.Duration(logging.KeyDuration, duration))
	} else {
		logger.Debug("Tool call completed",
			slog.Duration(logging.KeyDuration, duration))
	}

	return ToolCall{
		Tool:      name,
		Arguments: args,
		Result:    result,
		IsError:   isError,
		Duration:  duration,
	}
}

// modelToolCalls extracts the tool requests from a model choice. Some
// OpenAI-compatible backends still answer with the legacy single
// function_call shape, which is folded into the same list.
func modelToolCalls(choice *llms.ContentChoice) []llms.ToolCall {
	if len(choice.ToolCalls) > 0 {
		return choice.ToolCalls
	}
	if choice.FuncCall != nil {
		return []llms.ToolCall{{
			Type:         "function",
			FunctionCall: choice.FuncCall,
		}}
	}
	return nil
}

// updatedHistory appends the user message and final reply, then trims to
// the configured window. Tool plumbing is not persisted across turns.
func (a *Agent) updatedHistory(history []llms.MessageContent, userMessage, reply string) []llms.MessageContent {
	updated := make([]llms.MessageContent, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))
	updated = append(updated, llms.TextParts(llms.ChatMessageTypeAI, reply))
	return trimHistory(updated, a.maxHistory)
}

// trimHistory keeps the most recent messages within the window.
func trimHistory(history []llms.MessageContent, max int) []llms.MessageContent {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
