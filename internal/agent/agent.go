package agent

import (
	"context"
	"encoding/json"
	"strings"

	"minisearch/internal/dispatch"
	"minisearch/internal/glm"
	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

// ChatClient is the slice of the GLM client the agent needs. Tests swap in
// a scripted implementation.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []glm.ChatMessage, tools []glm.ToolDeclaration) (glm.ChatMessage, error)
}

type Options struct {
	Client       ChatClient
	Dispatcher   *dispatch.Dispatcher
	MaxToolCalls int
	Logf         func(format string, args ...interface{})
}

// Agent runs one conversation turn at a time: question in, phrased answer
// out. Nothing persists between turns; every Run starts from a fresh
// message history.
type Agent struct {
	client       ChatClient
	dispatcher   *dispatch.Dispatcher
	maxToolCalls int
	tools        []glm.ToolDeclaration
	logf         func(format string, args ...interface{})
}

func New(opts Options) *Agent {
	maxToolCalls := opts.MaxToolCalls
	if maxToolCalls <= 0 {
		maxToolCalls = 5
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	defs := opts.Dispatcher.Definitions()
	tools := make([]glm.ToolDeclaration, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, glm.NewToolDeclaration(def.Name, def.Description, def.InputSchema))
	}

	return &Agent{
		client:       opts.Client,
		dispatcher:   opts.Dispatcher,
		maxToolCalls: maxToolCalls,
		tools:        tools,
		logf:         logf,
	}
}

// Dispatcher exposes the underlying dispatcher so callers can serve the
// same tool set over other transports.
func (a *Agent) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// TurnResult is a successful turn.
type TurnResult struct {
	Query     string   `json:"query"`
	Answer    string   `json:"answer"`
	Language  Language `json:"language"`
	ToolCalls int      `json:"tool_calls"`
}

// Run executes one turn. The model may interleave tool calls with its
// reasoning; each dispatched call counts against the per-turn budget, and
// the turn aborts with TOOL_LOOP_EXCEEDED when the model asks for more.
func (a *Agent) Run(ctx context.Context, query string) (TurnResult, error) {
	lang := Detect(query)
	messages := []glm.ChatMessage{
		{Role: glm.RoleSystem, Content: systemPrompt(lang)},
		{Role: glm.RoleUser, Content: query},
	}

	dispatched := 0
	for {
		reply, err := a.client.ChatCompletion(ctx, messages, a.tools)
		if err != nil {
			return TurnResult{}, err
		}

		if len(reply.ToolCalls) == 0 {
			return TurnResult{
				Query:     query,
				Answer:    strings.TrimSpace(reply.Content),
				Language:  lang,
				ToolCalls: dispatched,
			}, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			if dispatched >= a.maxToolCalls {
				a.logf("agent: tool budget exhausted after %d calls", dispatched)
				return TurnResult{}, model.ErrToolLoopExceeded
			}
			dispatched++

			content := a.executeToolCall(ctx, call)
			messages = append(messages, glm.ChatMessage{
				Role:       glm.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}
}

// executeToolCall runs one requested call and renders the outcome as the
// JSON the model reads back. Lookup failures are part of the conversation,
// not turn failures: the model is expected to recover or explain.
func (a *Agent) executeToolCall(ctx context.Context, call glm.ToolCall) string {
	op, ok := model.OpFromName(call.Function.Name)
	if !ok {
		a.logf("agent: model requested unknown tool %q", call.Function.Name)
		return errorPayload(protocol.ErrorCodeInvalidArgument, "unknown tool: "+call.Function.Name)
	}

	args := map[string]interface{}{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return errorPayload(protocol.ErrorCodeInvalidArgument, "tool arguments are not valid JSON")
		}
	}

	result, err := a.dispatcher.Dispatch(ctx, model.ToolCall{ID: call.ID, Op: op, Args: args})
	if err != nil {
		a.logf("agent: %s failed: %v", call.Function.Name, err)
		return errorPayload(model.CodeOf(err), err.Error())
	}

	a.logf("agent: %s", result.Summary)
	payload, err := json.Marshal(result.Structured)
	if err != nil {
		return errorPayload(protocol.ErrorCodeUnexpected, "tool result could not be encoded")
	}
	return string(payload)
}

func errorPayload(code, message string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
	return string(payload)
}

// Response is the wire shape of a turn, successful or not. It is what the
// web API returns and what the CLI prints in JSON mode.
type Response struct {
	OK       bool     `json:"ok"`
	Query    string   `json:"query"`
	Answer   string   `json:"answer,omitempty"`
	Language Language `json:"language"`
	Error    string   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// RunSafe never returns an error: every failure becomes a response with a
// stable code and a bilingual user-facing message.
func (a *Agent) RunSafe(ctx context.Context, query string) Response {
	lang := Detect(query)

	result, err := a.Run(ctx, query)
	if err != nil {
		code := model.CodeOf(err)
		a.logf("agent: turn failed: %s", code)
		return Response{
			OK:       false,
			Query:    query,
			Language: lang,
			Error:    code,
			Message:  errorMessage(code, lang),
		}
	}

	return Response{
		OK:       true,
		Query:    result.Query,
		Answer:   result.Answer,
		Language: result.Language,
	}
}
