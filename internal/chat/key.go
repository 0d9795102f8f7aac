package chat

import (
	"errors"
	"strings"
	"time"
)

// TrustClass is the caller category. It decides the session-key namespace and
// how long a transcript survives without activity.
type TrustClass int

const (
	// TrustAnonymous callers identify with a device-generated id.
	TrustAnonymous TrustClass = iota
	// TrustAuthenticated callers identify with a verified subject id.
	TrustAuthenticated
)

const (
	anonNamespace = "chat-anon"
	authNamespace = "chat-auth"

	// Single conversation per identity for now; the key format reserves the
	// slot so named conversations can be added without a data migration.
	conversationSlot = "main"
)

func (c TrustClass) namespace() string {
	if c == TrustAuthenticated {
		return authNamespace
	}
	return anonNamespace
}

// TTL is the transcript expiry applied on every append. Anonymous sessions
// have no durable identity to reclaim them, so they decay within a day;
// authenticated sessions persist for a month.
func (c TrustClass) TTL() time.Duration {
	if c == TrustAuthenticated {
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func (c TrustClass) String() string {
	if c == TrustAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// ErrInvalidIdentity rejects a missing or blank caller identity. An anonymous
// caller with no id must never fall back to a shared key, so this is checked
// before any store access.
var ErrInvalidIdentity = errors.New("missing caller identity")

// ErrEmptyMessage rejects a blank user message before any store or
// completion call.
var ErrEmptyMessage = errors.New("empty message")

// SessionKey binds a trust class and identity to one stored transcript. The
// class travels with the key so TTL policy never re-parses the key text.
type SessionKey struct {
	Class    TrustClass
	identity string
}

// DeriveKey maps a caller identity to its session key.
func DeriveKey(class TrustClass, identity string) (SessionKey, error) {
	if strings.TrimSpace(identity) == "" {
		return SessionKey{}, ErrInvalidIdentity
	}
	return SessionKey{Class: class, identity: identity}, nil
}

// String renders the stored key format: {namespace}:{identity}:{slot}.
// Existing deployments have data under these exact strings.
func (k SessionKey) String() string {
	return k.Class.namespace() + ":" + k.identity + ":" + conversationSlot
}
