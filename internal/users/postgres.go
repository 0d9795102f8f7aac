package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists user accounts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initUserSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initUserSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid UUID PRIMARY KEY,
			fullname TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			profile_pic_url TEXT NULL,
			bio TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users (username);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init user schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, fullName, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	taken, err := s.EmailExists(ctx, email)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, ErrEmailTaken
	}

	username, err := generateUniqueUsername(ctx, s, email)
	if err != nil {
		return User{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	user := User{
		UID:       uuid.New(),
		FullName:  fullName,
		Email:     email,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (uid, fullname, email, username, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.UID, user.FullName, user.Email, user.Username, hash, user.CreatedAt,
	)
	if err != nil {
		// A concurrent signup can still win the unique email race.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query email: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
		strings.ToLower(strings.TrimSpace(username)),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query username: %w", err)
	}
	return exists, nil
}

// Ping checks backend reachability, for readiness probes.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
