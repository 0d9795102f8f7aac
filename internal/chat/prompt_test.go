package chat

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildPromptFirstTurn(t *testing.T) {
	got := BuildPrompt(nil, "Hi", "SYS", 10)

	want := "System Context: SYS\n---\nUser: Hi\nAssistant:"
	if got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
	if strings.Contains(got, "Previous conversation") {
		t.Fatalf("first-turn prompt must not contain a history block: %q", got)
	}
}

func TestBuildPromptFirstTurnWithoutSystemPrompt(t *testing.T) {
	got := BuildPrompt(nil, "Hi", "", 10)
	if want := "User: Hi\nAssistant:"; got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestBuildPromptWithHistory(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
	}
	got := BuildPrompt(history, "how are you", "SYS", 10)

	want := "Previous conversation:\n" +
		"User: hello\n" +
		"Assistant: hi there\n" +
		"\n---\n" +
		"User: how are you\n" +
		"Assistant:"
	if got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
	if strings.Contains(got, "System Context:") {
		t.Fatalf("system block repeated after first turn: %q", got)
	}
}

func TestBuildPromptTrimsToTrailingWindow(t *testing.T) {
	history := make([]Message, 0, 30)
	for i := 0; i < 15; i++ {
		history = append(history,
			Message{Role: RoleUser, Content: fmt.Sprintf("question-%d", i)},
			Message{Role: RoleAssistant, Content: fmt.Sprintf("answer-%d", i)},
		)
	}

	got := BuildPrompt(history, "next", "SYS", 10)

	// 30 messages, window of 10 turns: exactly the last 20 survive.
	if strings.Contains(got, "question-4\n") {
		t.Fatalf("prompt kept a message outside the window: %q", got)
	}
	if !strings.Contains(got, "question-5\n") {
		t.Fatalf("prompt dropped the oldest in-window message: %q", got)
	}
	if !strings.Contains(got, "answer-14\n") {
		t.Fatalf("prompt dropped the newest message: %q", got)
	}

	if again := BuildPrompt(history, "next", "SYS", 10); again != got {
		t.Fatalf("BuildPrompt is not deterministic")
	}
}
