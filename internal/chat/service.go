package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/laxmihoney/honeychat/internal/observability"
)

// ErrStoreUnavailable reports that the history backend could not serve an
// operation. Read paths degrade to empty results; append surfaces it so a
// caller is never told history was saved when it was not.
var ErrStoreUnavailable = errors.New("history store unavailable")

// CompletionError wraps a failure from the external completion call. No
// history is written when the completion fails.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return "completion failed: " + e.Err.Error()
}

func (e *CompletionError) Unwrap() error { return e.Err }

// HistoryStore is the ordered per-key transcript backend. Implementations
// own all persistence; the service never caches transcripts in-process.
type HistoryStore interface {
	// Append adds a turn's two messages to the end of the key's transcript
	// and refreshes the key's TTL from its trust class.
	Append(ctx context.Context, key SessionKey, turn Turn) error
	// ReadAll returns the full stored transcript in insertion order.
	ReadAll(ctx context.Context, key SessionKey) ([]Message, error)
	// Delete removes the transcript, reporting how many keys were removed.
	Delete(ctx context.Context, key SessionKey) (int64, error)
	Close() error
}

// Completer is the external text-in/text-out completion function.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Reply is the outcome of a successful generation. HistorySaved is false
// when the completion succeeded but the turn could not be persisted.
type Reply struct {
	Text         string
	Key          SessionKey
	HistorySaved bool
}

// Service orchestrates key derivation, prompt assembly, the completion call,
// and history persistence for the HTTP layer.
type Service struct {
	store   HistoryStore
	llm     Completer
	logger  *slog.Logger
	metrics *observability.Metrics
	window  int
}

// ServiceConfig carries the collaborators a Service needs. Store and
// Completer are required.
type ServiceConfig struct {
	Store         HistoryStore
	Completer     Completer
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	HistoryWindow int
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	return &Service{
		store:   cfg.Store,
		llm:     cfg.Completer,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		window:  cfg.HistoryWindow,
	}
}

// GenerateReply runs one chat exchange: derive the session key, assemble the
// prompt from stored history, call the completion function, and persist the
// new turn. The model output is returned verbatim.
//
// A failed completion leaves history untouched. A failed append after a
// successful completion does not invalidate the reply; it is logged, counted,
// and reported through Reply.HistorySaved.
func (s *Service) GenerateReply(ctx context.Context, class TrustClass, identity, message, systemPrompt string) (Reply, error) {
	key, err := DeriveKey(class, identity)
	if err != nil {
		s.countRequest(class, "invalid_identity")
		return Reply{}, err
	}
	if strings.TrimSpace(message) == "" {
		s.countRequest(class, "empty_message")
		return Reply{}, ErrEmptyMessage
	}

	prompt := BuildPrompt(s.history(ctx, key), message, systemPrompt, s.window)

	start := time.Now()
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.countRequest(class, "completion_failed")
		return Reply{}, &CompletionError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.ObserveCompletionLatency(time.Since(start))
	}

	reply := Reply{Text: text, Key: key, HistorySaved: true}
	if err := s.store.Append(ctx, key, Turn{User: message, Assistant: text}); err != nil {
		// The reply already exists; losing the turn must not fail the
		// request, but it must not be silent either.
		s.logger.Error("history append failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		if s.metrics != nil {
			s.metrics.HistoryAppendFailures.Inc()
		}
		reply.HistorySaved = false
	}

	s.countRequest(class, "ok")
	return reply, nil
}

// GetHistory returns the stored transcript for the caller. A store failure
// degrades to an empty transcript; only an invalid identity errors.
func (s *Service) GetHistory(ctx context.Context, class TrustClass, identity string) ([]Message, error) {
	key, err := DeriveKey(class, identity)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, key), nil
}

// ClearHistory removes the caller's transcript, reporting how many keys were
// deleted. A store failure degrades to zero, mirroring "nothing to delete";
// the failure itself is logged and counted.
func (s *Service) ClearHistory(ctx context.Context, class TrustClass, identity string) (int64, error) {
	key, err := DeriveKey(class, identity)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Delete(ctx, key)
	if err != nil {
		s.logger.Warn("history delete failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		s.countStoreError("delete")
		return 0, nil
	}
	return n, nil
}

// history reads the transcript, degrading to empty on store failure. A chat
// request must still get a reply when memory is down.
func (s *Service) history(ctx context.Context, key SessionKey) []Message {
	msgs, err := s.store.ReadAll(ctx, key)
	if err != nil {
		s.logger.Warn("history read failed, continuing without context",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		s.countStoreError("read")
		return nil
	}
	return msgs
}

func (s *Service) countRequest(class TrustClass, outcome string) {
	if s.metrics != nil {
		s.metrics.ChatRequests.WithLabelValues(class.String(), outcome).Inc()
	}
}

func (s *Service) countStoreError(op string) {
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}
