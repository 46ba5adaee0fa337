package glm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

const (
	chatCompletionsPath = "/chat/completions"
	defaultTimeout      = 30 * time.Second

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one message of a chat-completions conversation. Assistant
// messages may carry tool calls; tool messages echo the call id they answer.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is the provider's representation of one requested function call.
// Arguments arrive as a JSON-encoded string, not an object.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDeclaration advertises one callable function to the model.
type ToolDeclaration struct {
	Type     string              `json:"type"`
	Function FunctionDeclaration `json:"function"`
}

type FunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// NewToolDeclaration wraps a function declaration in the provider envelope.
func NewToolDeclaration(name, description string, parameters map[string]interface{}) ToolDeclaration {
	return ToolDeclaration{
		Type: "function",
		Function: FunctionDeclaration{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []ChatMessage     `json:"messages"`
	Tools       []ToolDeclaration `json:"tools,omitempty"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Thinking    *thinkingOption   `json:"thinking,omitempty"`
}

type thinkingOption struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiErrorPayload `json:"error,omitempty"`
}

type apiErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Options configures a Client. Zero values fall back to working defaults
// except APIKey, which the caller must provide.
type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// Client talks to the GLM chat-completions API. Safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	httpClient  *http.Client
	budget      *requestBudget
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// the per-call context carries the real deadline; this is a
		// backstop against requests that outlive their context
		httpClient = &http.Client{Timeout: timeout + 15*time.Second}
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     timeout,
		httpClient:  httpClient,
		budget:      newRequestBudget(opts.RequestsPerMinute, time.Minute),
	}
}

// ChatCompletion sends the conversation and returns the assistant's reply.
// Dynamic thinking is disabled: the dictionary tools are cheap and the
// answer should come back fast.
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage, tools []ToolDeclaration) (ChatMessage, error) {
	if !c.budget.allow() {
		return ChatMessage{}, model.ErrRateLimited
	}

	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Thinking:    &thinkingOption{Type: "disabled"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("encoding chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return ChatMessage{}, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ChatMessage{}, model.Timeout("model call timed out", err)
		}
		return ChatMessage{}, &model.CodedError{
			Code:      protocol.ErrorCodeAPIError,
			Message:   "calling GLM API: " + err.Error(),
			Retryable: true,
			Cause:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ChatMessage{}, &model.CodedError{
			Code:      protocol.ErrorCodeAPIError,
			Message:   "reading GLM response: " + err.Error(),
			Retryable: true,
			Cause:     err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return ChatMessage{}, statusError(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ChatMessage{}, &model.CodedError{
			Code:    protocol.ErrorCodeAPIError,
			Message: "decoding GLM response: " + err.Error(),
			Cause:   err,
		}
	}
	if parsed.Error != nil {
		return ChatMessage{}, &model.CodedError{
			Code:    protocol.ErrorCodeAPIError,
			Message: fmt.Sprintf("GLM API error %s: %s", parsed.Error.Code, parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 {
		return ChatMessage{}, &model.CodedError{
			Code:    protocol.ErrorCodeAPIError,
			Message: "GLM response carried no choices",
		}
	}
	return parsed.Choices[0].Message, nil
}

func statusError(status int, raw []byte) *model.CodedError {
	message := strings.TrimSpace(string(raw))
	if len(message) > 300 {
		message = message[:300]
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &model.CodedError{
			Code:    protocol.ErrorCodeUnauthorized,
			Message: fmt.Sprintf("GLM rejected the API key (HTTP %d)", status),
		}
	case status == http.StatusTooManyRequests:
		return &model.CodedError{
			Code:      protocol.ErrorCodeRateLimited,
			Message:   "GLM rate limit hit",
			Retryable: true,
		}
	case status >= 500:
		return &model.CodedError{
			Code:      protocol.ErrorCodeAPIError,
			Message:   fmt.Sprintf("GLM server error (HTTP %d): %s", status, message),
			Retryable: true,
		}
	default:
		return &model.CodedError{
			Code:    protocol.ErrorCodeAPIError,
			Message: fmt.Sprintf("GLM request failed (HTTP %d): %s", status, message),
		}
	}
}
