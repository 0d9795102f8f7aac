package chat

// Roles used in stored messages and in the assembled prompt.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored chat message. The serialized form is exactly these
// two fields; transcripts written by earlier deployments must keep parsing.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one user message plus the assistant reply answering it. A turn is
// appended to history as a unit, user half first.
type Turn struct {
	User      string
	Assistant string
}

// Messages renders the turn in storage order.
func (t Turn) Messages() []Message {
	return []Message{
		{Role: RoleUser, Content: t.User},
		{Role: RoleAssistant, Content: t.Assistant},
	}
}
