package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// User is a registered account in the relational store.
type User struct {
	UID           uuid.UUID `json:"uid"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	IsActive      bool      `json:"is_active"`
	IsVerified    bool      `json:"is_verified"`
	ProfilePicURL string    `json:"profile_pic_url,omitempty"`
	Bio           string    `json:"bio"`
	CreatedAt     time.Time `json:"created_at"`
}

// ErrEmailTaken reports a signup attempt for an already registered email.
var ErrEmailTaken = errors.New("email already registered")

// Store persists and looks up user accounts.
type Store interface {
	// Create registers a new account, generating a unique username from the
	// email local part and hashing the password.
	Create(ctx context.Context, fullName, email, password string) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Close() error
}
