package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"minisearch/internal/catalog"
	"minisearch/internal/dispatch"
	"minisearch/internal/glm"
	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

// scriptedClient replays a fixed sequence of replies and records what the
// agent sent.
type scriptedClient struct {
	replies []glm.ChatMessage
	errs    []error
	calls   int
	sent    [][]glm.ChatMessage
}

func (s *scriptedClient) ChatCompletion(_ context.Context, messages []glm.ChatMessage, _ []glm.ToolDeclaration) (glm.ChatMessage, error) {
	copied := make([]glm.ChatMessage, len(messages))
	copy(copied, messages)
	s.sent = append(s.sent, copied)

	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return glm.ChatMessage{}, s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	// keep asking for tools forever; used by the loop budget test
	return lookupReply("call_overflow", 31), nil
}

func lookupReply(id string, fieldID int) glm.ChatMessage {
	return glm.ChatMessage{
		Role: glm.RoleAssistant,
		ToolCalls: []glm.ToolCall{{
			ID:   id,
			Type: "function",
			Function: glm.FunctionCall{
				Name:      protocol.ToolNameLookupByID,
				Arguments: `{"field_id":` + jsonInt(fieldID) + `}`,
			},
		}},
	}
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func answerReply(content string) glm.ChatMessage {
	return glm.ChatMessage{Role: glm.RoleAssistant, Content: content}
}

func newTestAgent(t *testing.T, client ChatClient, maxToolCalls int) *Agent {
	t.Helper()
	cat, err := catalog.New(catalog.Snapshot{
		Fields: []model.FieldRecord{
			{ID: 31, Name: "Sex", Description: "Sex of the participant", Category: "Baseline characteristics", EncodingRef: 9},
			{ID: 21002, Name: "Weight", Description: "Weight measured at assessment", Category: "Body size measures"},
		},
		Encodings: map[int][]model.EncodingEntry{
			9: {{Code: "0", Label: "Female"}, {Code: "1", Label: "Male"}},
		},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return New(Options{
		Client:       client,
		Dispatcher:   dispatch.New(cat),
		MaxToolCalls: maxToolCalls,
	})
}

func TestRunDirectAnswer(t *testing.T) {
	client := &scriptedClient{replies: []glm.ChatMessage{answerReply("The UK Biobank is a cohort study.")}}
	a := newTestAgent(t, client, 5)

	result, err := a.Run(context.Background(), "What is the UK Biobank?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Answer != "The UK Biobank is a cohort study." {
		t.Fatalf("answer = %q", result.Answer)
	}
	if result.Language != LanguageEnglish || result.ToolCalls != 0 {
		t.Fatalf("result = %+v", result)
	}

	// the system prompt goes out with every request
	if len(client.sent) != 1 || client.sent[0][0].Role != glm.RoleSystem {
		t.Fatalf("system prompt missing from request")
	}
}

func TestRunDispatchesToolCall(t *testing.T) {
	client := &scriptedClient{replies: []glm.ChatMessage{
		lookupReply("call_1", 31),
		answerReply("Field 31 is Sex."),
	}}
	a := newTestAgent(t, client, 5)

	result, err := a.Run(context.Background(), "What is field 31?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Answer != "Field 31 is Sex." || result.ToolCalls != 1 {
		t.Fatalf("result = %+v", result)
	}

	// the second request must carry the assistant's tool call and the
	// tool result, in order
	second := client.sent[1]
	assistant := second[len(second)-2]
	toolMsg := second[len(second)-1]
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant message lost its tool calls")
	}
	if toolMsg.Role != glm.RoleTool || toolMsg.ToolCallID != "call_1" {
		t.Fatalf("tool message = %+v", toolMsg)
	}
	if !strings.Contains(toolMsg.Content, `"Sex"`) {
		t.Fatalf("tool result does not carry the record: %q", toolMsg.Content)
	}
}

func TestRunToolLoopExceeded(t *testing.T) {
	// the scripted client asks for one more lookup on every reply; with a
	// budget of 5 the sixth requested call aborts the turn
	client := &scriptedClient{}
	a := newTestAgent(t, client, 5)

	_, err := a.Run(context.Background(), "Tell me everything about everything")
	if !errors.Is(err, model.ErrToolLoopExceeded) {
		t.Fatalf("err = %v, want TOOL_LOOP_EXCEEDED", err)
	}
}

func TestRunFeedsLookupErrorsBackToModel(t *testing.T) {
	client := &scriptedClient{replies: []glm.ChatMessage{
		lookupReply("call_1", 999999),
		answerReply("That field does not exist."),
	}}
	a := newTestAgent(t, client, 5)

	result, err := a.Run(context.Background(), "What is field 999999?")
	if err != nil {
		t.Fatalf("NotFound must not fail the turn: %v", err)
	}
	if result.Answer != "That field does not exist." {
		t.Fatalf("answer = %q", result.Answer)
	}

	toolMsg := client.sent[1][len(client.sent[1])-1]
	if !strings.Contains(toolMsg.Content, protocol.ErrorCodeNotFound) {
		t.Fatalf("error payload missing code: %q", toolMsg.Content)
	}
}

func TestRunHandlesUnknownToolName(t *testing.T) {
	client := &scriptedClient{replies: []glm.ChatMessage{
		{
			Role: glm.RoleAssistant,
			ToolCalls: []glm.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: glm.FunctionCall{Name: "drop_tables", Arguments: `{}`},
			}},
		},
		answerReply("Let me try differently."),
	}}
	a := newTestAgent(t, client, 5)

	if _, err := a.Run(context.Background(), "q"); err != nil {
		t.Fatalf("unknown tool must not fail the turn: %v", err)
	}
	toolMsg := client.sent[1][len(client.sent[1])-1]
	if !strings.Contains(toolMsg.Content, protocol.ErrorCodeInvalidArgument) {
		t.Fatalf("payload = %q", toolMsg.Content)
	}
}

func TestRunSafeConvertsErrors(t *testing.T) {
	client := &scriptedClient{errs: []error{model.Timeout("model call timed out", context.DeadlineExceeded)}}
	a := newTestAgent(t, client, 5)

	resp := a.RunSafe(context.Background(), "What is field 31?")
	if resp.OK {
		t.Fatalf("expected failure response")
	}
	if resp.Error != protocol.ErrorCodeTimeout || resp.Message == "" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Language != LanguageEnglish {
		t.Fatalf("language = %q", resp.Language)
	}
}

func TestRunSafeBilingualApology(t *testing.T) {
	client := &scriptedClient{}
	a := newTestAgent(t, client, 1)

	resp := a.RunSafe(context.Background(), "请介绍一下字段 31 的所有相关信息")
	if resp.OK || resp.Error != protocol.ErrorCodeToolLoopExceeded {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Language != LanguageChinese {
		t.Fatalf("language = %q", resp.Language)
	}
	if resp.Message != errorMessagesZH[protocol.ErrorCodeToolLoopExceeded] {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		text string
		want Language
	}{
		{"What is field 31?", LanguageEnglish},
		{"字段31是什么？", LanguageChinese},
		{"BMI 体重指数 的字段", LanguageChinese},
		{"field 31 的 name", LanguageEnglish},
		{"", LanguageEnglish},
	}
	for _, tc := range cases {
		if got := Detect(tc.text); got != tc.want {
			t.Fatalf("Detect(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
