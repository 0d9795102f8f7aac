package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/laxmihoney/honeychat/internal/chat"
)

const defaultOpTimeout = 3 * time.Second

// RedisConfig carries connection settings for the Redis-backed store.
type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	OpTimeout time.Duration
}

// RedisStore keeps each transcript as a Redis list of JSON messages under its
// session key. The stored encoding matches existing deployments exactly, so
// previously written transcripts keep working.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisStore{client: client, timeout: timeout, logger: logger}, nil
}

// Append pushes the turn's two messages and refreshes the key's TTL in one
// pipeline, so an active conversation never decays mid-session.
func (s *RedisStore) Append(ctx context.Context, key chat.SessionKey, turn chat.Turn) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	k := key.String()
	pipe := s.client.TxPipeline()
	for _, msg := range turn.Messages() {
		buf, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		pipe.RPush(ctx, k, buf)
	}
	pipe.Expire(ctx, k, key.Class.TTL())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: append %s: %v", chat.ErrStoreUnavailable, k, err)
	}
	return nil
}

// ReadAll returns the full transcript in insertion order. Entries that no
// longer parse as messages are skipped, not fatal.
func (s *RedisStore) ReadAll(ctx context.Context, key chat.SessionKey) ([]chat.Message, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	k := key.String()
	raw, err := s.client.LRange(ctx, k, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", chat.ErrStoreUnavailable, k, err)
	}

	msgs := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var m chat.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			s.logger.Warn("skipping malformed history entry",
				slog.String("key", k),
				slog.String("error", err.Error()))
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Delete(ctx context.Context, key chat.SessionKey) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.client.Del(ctx, key.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: delete %s: %v", chat.ErrStoreUnavailable, key.String(), err)
	}
	return n, nil
}

// TTL reports the remaining expiry on a key. Missing keys and keys without
// expiry report zero.
func (s *RedisStore) TTL(ctx context.Context, key chat.SessionKey) (time.Duration, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	d, err := s.client.TTL(ctx, key.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: ttl %s: %v", chat.ErrStoreUnavailable, key.String(), err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Ping checks backend reachability, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// opCtx bounds every store call so a slow backend degrades instead of
// stalling a chat request.
func (s *RedisStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
