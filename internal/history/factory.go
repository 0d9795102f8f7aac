package history

import (
	"context"
	"log/slog"
	"strings"

	"github.com/laxmihoney/honeychat/internal/chat"
)

// New creates a Redis-backed store when an address is configured, otherwise
// in-memory.
func New(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (chat.HistoryStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return NewMemoryStore(), nil
	}
	return NewRedisStore(ctx, cfg, logger)
}
