package chat

import "strings"

// DefaultHistoryWindow is the number of trailing turns included in a prompt
// when no window is configured.
const DefaultHistoryWindow = 10

// BuildPrompt renders the transcript, the new user message, and an optional
// system prompt into the single string handed to the completion call.
//
// Only the read view is windowed; the stored transcript is never truncated
// here. The system block appears only on a conversation's first turn: once
// history exists the system prompt is not repeated, trading instruction
// persistence for prompt-token budget.
func BuildPrompt(history []Message, newMessage, systemPrompt string, maxTurns int) string {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryWindow
	}
	// Two messages per exchange, oldest dropped first.
	if window := maxTurns * 2; len(history) > window {
		history = history[len(history)-window:]
	}

	var b strings.Builder
	if len(history) == 0 {
		if systemPrompt != "" {
			b.WriteString("System Context: " + systemPrompt)
			b.WriteString("\n---\n")
		}
	} else {
		b.WriteString("Previous conversation:\n")
		for _, msg := range history {
			role := "Assistant"
			if msg.Role == RoleUser {
				role = "User"
			}
			b.WriteString(role + ": " + msg.Content + "\n")
		}
		b.WriteString("\n---\n")
	}

	b.WriteString("User: " + newMessage + "\n")
	b.WriteString("Assistant:")
	return b.String()
}
