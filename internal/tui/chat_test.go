package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"minisearch/internal/agent"
)

type stubRunner struct {
	response agent.Response
}

func (s *stubRunner) RunSafe(context.Context, string) agent.Response {
	return s.response
}

func newTestModel(t *testing.T) chatModel {
	t.Helper()
	m := initialModel(context.Background(), Options{
		Agent:  &stubRunner{response: agent.Response{OK: true, Answer: "Field 31 is Sex."}},
		Model:  "glm-4.5-flash",
		DBPath: "test.db",
	})
	m.applyWindowSize(80, 24)
	return m
}

func TestAnswerAppendsToHistory(t *testing.T) {
	m := newTestModel(t)
	m.isLoading = true

	next, _ := m.Update(answerMsg{response: agent.Response{OK: true, Answer: "Field 31 is Sex."}})
	cm := next.(chatModel)

	if cm.isLoading {
		t.Fatalf("expected loading to stop after answer")
	}
	last := cm.messages[len(cm.messages)-1]
	if !strings.Contains(last, "Field 31 is Sex.") {
		t.Fatalf("expected answer in history, got %q", last)
	}
}

func TestFailedTurnRendersMessage(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(answerMsg{response: agent.Response{
		OK:      false,
		Error:   "TIMEOUT",
		Message: "The model took too long to answer. Please try again.",
	}})
	cm := next.(chatModel)

	last := cm.messages[len(cm.messages)-1]
	if !strings.Contains(last, "took too long") {
		t.Fatalf("expected error message in history, got %q", last)
	}
}

func TestClearRestoresBanner(t *testing.T) {
	m := newTestModel(t)
	m.messages = append(m.messages, "you> hello", "an answer")

	next, _ := m.Update(answerMsg{clear: true})
	cm := next.(chatModel)

	if len(cm.messages) != len(cm.banner) {
		t.Fatalf("expected history reset to banner, got %d messages", len(cm.messages))
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Fatalf("expected tea.Quit, got %T", msg)
	}
}

func TestSlashCommands(t *testing.T) {
	m := newTestModel(t)

	for input, check := range map[string]func(answerMsg) bool{
		"/quit":  func(a answerMsg) bool { return a.quit },
		"/exit":  func(a answerMsg) bool { return a.quit },
		"/clear": func(a answerMsg) bool { return a.clear },
		"/help":  func(a answerMsg) bool { return a.help },
	} {
		msg := m.processInputCmd(input)()
		a, ok := msg.(answerMsg)
		if !ok {
			t.Fatalf("%s: expected answerMsg, got %T", input, msg)
		}
		if !check(a) {
			t.Fatalf("%s: wrong flags in %+v", input, a)
		}
	}
}

func TestPlainInputRunsAgent(t *testing.T) {
	m := newTestModel(t)

	msg := m.processInputCmd("what is field 31?")()
	a, ok := msg.(answerMsg)
	if !ok {
		t.Fatalf("expected answerMsg, got %T", msg)
	}
	if !a.response.OK || a.response.Answer != "Field 31 is Sex." {
		t.Fatalf("unexpected response %+v", a.response)
	}
}
