package users

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const usernameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var usernameStrip = regexp.MustCompile(`[^a-z0-9._-]`)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// sanitizeUsernameFragment lowercases the fragment and strips everything
// outside [a-z0-9._-], falling back to "user" when nothing survives.
func sanitizeUsernameFragment(v string) string {
	cleaned := usernameStrip.ReplaceAllString(strings.ToLower(v), "")
	if cleaned == "" {
		return "user"
	}
	return cleaned
}

func randomSuffix(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(usernameAlphabet))))
		if err != nil {
			return "", fmt.Errorf("random suffix: %w", err)
		}
		b.WriteByte(usernameAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// usernameChecker is the one lookup username generation needs, so a caller
// already holding its own lock can pass a lock-free view.
type usernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// generateUniqueUsername derives a username from the email local part and
// appends random suffixes until it no longer collides. After maxAttempts it
// forces a fully random name.
func generateUniqueUsername(ctx context.Context, lookup usernameChecker, email string) (string, error) {
	const maxAttempts = 10

	localPart, _, _ := strings.Cut(email, "@")
	base := sanitizeUsernameFragment(localPart)
	candidate := base

	for i := 0; i < maxAttempts; i++ {
		taken, err := lookup.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix, err := randomSuffix(4)
		if err != nil {
			return "", err
		}
		candidate = base + suffix
	}

	suffix, err := randomSuffix(8)
	if err != nil {
		return "", err
	}
	return "user" + suffix, nil
}
