package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/tools"
)

// modelStep is one scripted model answer.
type modelStep struct {
	resp *llms.ContentResponse
	err  error
}

// fakeModel replays scripted answers and records every request it saw.
type fakeModel struct {
	steps []modelStep
	calls [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls = append(f.calls, messages)
	i := len(f.calls) - 1
	if i >= len(f.steps) {
		return nil, errors.New("fake model ran out of scripted steps")
	}
	step := f.steps[i]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:           id,
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
			}},
		}},
	}
}

// newEchoRegistry builds a registry with a single echo tool.
func newEchoRegistry(t *testing.T) *tools.Registry {
	t.Helper()

	reg := tools.NewRegistry()
	echoTool := mcp.NewTool("echo_tool",
		mcp.WithDescription("Echo the given text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to echo back"),
		),
	)
	err := reg.Register(echoTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		text, _ := args["text"].(string)
		if text == "fail" {
			return mcp.NewToolResultError("echo failed"), nil
		}
		return mcp.NewToolResultText("echo: " + text), nil
	})
	if err != nil {
		t.Fatalf("failed to register echo tool: %v", err)
	}
	return reg
}

func findToolResponse(messages []llms.MessageContent) (llms.ToolCallResponse, bool) {
	for _, msg := range messages {
		if msg.Role != llms.ChatMessageTypeTool {
			continue
		}
		for _, part := range msg.Parts {
			if resp, ok := part.(llms.ToolCallResponse); ok {
				return resp, true
			}
		}
	}
	return llms.ToolCallResponse{}, false
}

func messageText(msg llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestHandleTurn_PlainReply(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{resp: textResponse("Hello! How can I help with your schedule?")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Hi there")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if turn.Reply != "Hello! How can I help with your schedule?" {
		t.Errorf("Expected greeting reply, got %q", turn.Reply)
	}
	if len(turn.ToolCalls) != 0 {
		t.Errorf("Expected no tool calls, got %d", len(turn.ToolCalls))
	}
	if len(turn.History) != 2 {
		t.Fatalf("Expected 2 history messages, got %d", len(turn.History))
	}
	if turn.History[0].Role != llms.ChatMessageTypeHuman || messageText(turn.History[0]) != "Hi there" {
		t.Errorf("Expected user message first in history, got %+v", turn.History[0])
	}
	if turn.History[1].Role != llms.ChatMessageTypeAI {
		t.Errorf("Expected AI reply second in history, got role %s", turn.History[1].Role)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("Expected 1 model call, got %d", len(fake.calls))
	}
	sent := fake.calls[0]
	if sent[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("Expected system prompt first, got role %s", sent[0].Role)
	}
	if !strings.Contains(messageText(sent[0]), "scheduling assistant") {
		t.Errorf("Expected scheduling system prompt, got %q", messageText(sent[0]))
	}
	if last := sent[len(sent)-1]; last.Role != llms.ChatMessageTypeHuman {
		t.Errorf("Expected user message last, got role %s", last.Role)
	}
}

func TestHandleTurn_ToolCallLoop(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{resp: toolCallResponse("call-1", "echo_tool", `{"text": "hi"}`)},
		{resp: textResponse("The tool said: echo: hi")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Use the echo tool")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if turn.Reply != "The tool said: echo: hi" {
		t.Errorf("Expected final answer from second model call, got %q", turn.Reply)
	}
	if len(turn.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call in trace, got %d", len(turn.ToolCalls))
	}
	trace := turn.ToolCalls[0]
	if trace.Tool != "echo_tool" {
		t.Errorf("Expected echo_tool in trace, got %s", trace.Tool)
	}
	if trace.Result != "echo: hi" {
		t.Errorf("Expected echo result in trace, got %q", trace.Result)
	}
	if trace.IsError {
		t.Error("Expected successful tool call in trace")
	}

	if len(fake.calls) != 2 {
		t.Fatalf("Expected 2 model calls, got %d", len(fake.calls))
	}
	resp, ok := findToolResponse(fake.calls[1])
	if !ok {
		t.Fatal("Expected a tool response message in the second model call")
	}
	if resp.ToolCallID != "call-1" || resp.Name != "echo_tool" || resp.Content != "echo: hi" {
		t.Errorf("Unexpected tool response fed back to model: %+v", resp)
	}

	// Tool plumbing must not leak into the persisted history.
	if len(turn.History) != 2 {
		t.Errorf("Expected 2 history messages, got %d", len(turn.History))
	}
}

func TestHandleTurn_ToolErrorFedBack(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{resp: toolCallResponse("call-1", "echo_tool", `{"text": "fail"}`)},
		{resp: textResponse("That did not work, sorry.")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Echo the word fail")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if len(turn.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call in trace, got %d", len(turn.ToolCalls))
	}
	if !turn.ToolCalls[0].IsError {
		t.Error("Expected tool call marked as error in trace")
	}
	if turn.ToolCalls[0].Result != "echo failed" {
		t.Errorf("Expected tool error text in trace, got %q", turn.ToolCalls[0].Result)
	}

	resp, ok := findToolResponse(fake.calls[1])
	if !ok {
		t.Fatal("Expected a tool response message in the second model call")
	}
	if resp.Content != "echo failed" {
		t.Errorf("Expected error text fed back to model, got %q", resp.Content)
	}
	if turn.Reply != "That did not work, sorry." {
		t.Errorf("Expected model to answer after tool error, got %q", turn.Reply)
	}
}

func TestHandleTurn_UnknownToolRequested(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{resp: toolCallResponse("call-1", "bogus_tool", `{}`)},
		{resp: textResponse("I cannot do that.")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Call something weird")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if len(turn.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call in trace, got %d", len(turn.ToolCalls))
	}
	if !turn.ToolCalls[0].IsError {
		t.Error("Expected unknown tool marked as error")
	}
	if !strings.Contains(turn.ToolCalls[0].Result, "not available") {
		t.Errorf("Expected unavailable tool text, got %q", turn.ToolCalls[0].Result)
	}
}

func TestHandleTurn_IterationLimit(t *testing.T) {
	loop := modelStep{resp: toolCallResponse("call-n", "echo_tool", `{"text": "again"}`)}
	fake := &fakeModel{steps: []modelStep{loop, loop, loop, loop}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Keep echoing forever")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if turn.Reply != "Agent stopped due to iteration limit or time limit." {
		t.Errorf("Expected iteration limit reply, got %q", turn.Reply)
	}
	if len(turn.ToolCalls) != 3 {
		t.Errorf("Expected 3 executed tool calls, got %d", len(turn.ToolCalls))
	}
	if len(fake.calls) != 4 {
		t.Errorf("Expected 4 model calls, got %d", len(fake.calls))
	}
}

func TestHandleTurn_ModelRetrySucceeds(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{err: errors.New("rate limited")},
		{resp: textResponse("Recovered")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Hello")
	if err != nil {
		t.Fatalf("Expected retry to rescue the turn, got %v", err)
	}
	if turn.Reply != "Recovered" {
		t.Errorf("Expected reply from retried call, got %q", turn.Reply)
	}
	if len(fake.calls) != 2 {
		t.Errorf("Expected 2 model calls, got %d", len(fake.calls))
	}
}

func TestHandleTurn_ModelRetryFails(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{err: errors.New("rate limited")},
		{err: errors.New("still rate limited")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Hello")
	if err == nil {
		t.Fatal("Expected error after failed retry")
	}
	if turn != nil {
		t.Errorf("Expected nil turn on failure, got %+v", turn)
	}
	if !strings.Contains(err.Error(), "after retry") {
		t.Errorf("Expected retry failure in error, got %v", err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("Expected exactly 2 model calls, got %d", len(fake.calls))
	}
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	fake := &fakeModel{}
	a := New(fake, newEchoRegistry(t))

	if _, err := a.HandleTurn(context.Background(), nil, ""); err == nil {
		t.Error("Expected error for empty message")
	}
	if _, err := a.HandleTurn(context.Background(), nil, "   "); err == nil {
		t.Error("Expected error for whitespace-only message")
	}
	if len(fake.calls) != 0 {
		t.Errorf("Expected no model calls for empty input, got %d", len(fake.calls))
	}
}

func TestHandleTurn_HistoryTrimmed(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{resp: textResponse("Answer six")},
	}}
	a := New(fake, newEchoRegistry(t), WithMaxHistory(4))

	history := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "one"),
		llms.TextParts(llms.ChatMessageTypeAI, "two"),
		llms.TextParts(llms.ChatMessageTypeHuman, "three"),
		llms.TextParts(llms.ChatMessageTypeAI, "four"),
		llms.TextParts(llms.ChatMessageTypeHuman, "five"),
		llms.TextParts(llms.ChatMessageTypeAI, "six"),
	}

	turn, err := a.HandleTurn(context.Background(), history, "seven")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if len(turn.History) != 4 {
		t.Fatalf("Expected history trimmed to 4 messages, got %d", len(turn.History))
	}
	if messageText(turn.History[2]) != "seven" {
		t.Errorf("Expected trimmed history to end with the new exchange, got %q", messageText(turn.History[2]))
	}
	if messageText(turn.History[3]) != "Answer six" {
		t.Errorf("Expected reply last in history, got %q", messageText(turn.History[3]))
	}

	// The submitted window is system + trimmed history + new message.
	sent := fake.calls[0]
	if len(sent) != 6 {
		t.Errorf("Expected 6 submitted messages, got %d", len(sent))
	}
}

func TestHandleTurn_LegacyFunctionCall(t *testing.T) {
	fake := &fakeModel{steps: []modelStep{
		{resp: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{
				FuncCall: &llms.FunctionCall{Name: "echo_tool", Arguments: `{"text": "legacy"}`},
			}},
		}},
		{resp: textResponse("Done")},
	}}
	a := New(fake, newEchoRegistry(t))

	turn, err := a.HandleTurn(context.Background(), nil, "Echo legacy")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if len(turn.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call from legacy shape, got %d", len(turn.ToolCalls))
	}
	if turn.ToolCalls[0].Result != "echo: legacy" {
		t.Errorf("Expected legacy function call dispatched, got %q", turn.ToolCalls[0].Result)
	}
}

func TestHandleTurn_WithMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := instrumentation.NewMetrics(meter, false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	fake := &fakeModel{steps: []modelStep{
		{resp: toolCallResponse("call-1", "echo_tool", `{"text": "hi"}`)},
		{resp: textResponse("done")},
	}}
	a := New(fake, newEchoRegistry(t), WithMetrics(metrics))

	if _, err := a.HandleTurn(context.Background(), nil, "Hello"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
}
