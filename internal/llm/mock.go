package llm

import "context"

// Mock returns a canned reply without network access. Used in tests and when
// no API key is configured.
type Mock struct {
	Reply string
	Err   error
}

func (m *Mock) Complete(_ context.Context, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return "mock reply", nil
}
