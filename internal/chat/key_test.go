package chat

import (
	"errors"
	"testing"
	"time"
)

func TestDeriveKeyNamespacesByTrustClass(t *testing.T) {
	anon, err := DeriveKey(TrustAnonymous, "device-1")
	if err != nil {
		t.Fatalf("DeriveKey(anonymous) error = %v", err)
	}
	auth, err := DeriveKey(TrustAuthenticated, "device-1")
	if err != nil {
		t.Fatalf("DeriveKey(authenticated) error = %v", err)
	}

	if anon.String() == auth.String() {
		t.Fatalf("anonymous and authenticated keys collide: %q", anon.String())
	}
	if got, want := anon.String(), "chat-anon:device-1:main"; got != want {
		t.Fatalf("anonymous key = %q, want %q", got, want)
	}
	if got, want := auth.String(), "chat-auth:device-1:main"; got != want {
		t.Fatalf("authenticated key = %q, want %q", got, want)
	}
}

func TestDeriveKeyRejectsBlankIdentity(t *testing.T) {
	for _, identity := range []string{"", "   ", "\t\n"} {
		for _, class := range []TrustClass{TrustAnonymous, TrustAuthenticated} {
			_, err := DeriveKey(class, identity)
			if !errors.Is(err, ErrInvalidIdentity) {
				t.Fatalf("DeriveKey(%v, %q) error = %v, want ErrInvalidIdentity", class, identity, err)
			}
		}
	}
}

func TestTrustClassTTL(t *testing.T) {
	if got := TrustAnonymous.TTL(); got != 86400*time.Second {
		t.Fatalf("anonymous TTL = %v, want 24h", got)
	}
	if got := TrustAuthenticated.TTL(); got != 2592000*time.Second {
		t.Fatalf("authenticated TTL = %v, want 720h", got)
	}
}
