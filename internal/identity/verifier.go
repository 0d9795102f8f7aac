// Package identity holds the port through which the service consumes an
// external identity provider. Token format and cryptography stay behind it;
// the rest of the system only ever sees the verified subject id.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidToken reports a token the verifier could not validate.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier validates an identity token and yields the verified subject id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// StaticVerifier maps known tokens to subject ids. Dev and test use only.
type StaticVerifier struct {
	subjects map[string]string
}

func NewStaticVerifier(subjects map[string]string) *StaticVerifier {
	if subjects == nil {
		subjects = map[string]string{}
	}
	return &StaticVerifier{subjects: subjects}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	subject, ok := v.subjects[token]
	if !ok || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

// ParseStaticTokens parses "token=subject" pairs separated by commas, the
// format used by the AUTH_STATIC_TOKENS environment variable.
func ParseStaticTokens(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, subject, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		token = strings.TrimSpace(token)
		subject = strings.TrimSpace(subject)
		if token == "" || subject == "" {
			continue
		}
		out[token] = subject
	}
	return out
}
