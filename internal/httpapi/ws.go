package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/laxmihoney/honeychat/internal/chat"
)

type wsClientMessage struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// HistorySaved is never omitted: a false value is the only way a caller
// learns the turn was not persisted.
type wsServerMessage struct {
	Reply        string `json:"reply,omitempty"`
	SessionKey   string `json:"session_key,omitempty"`
	HistorySaved bool   `json:"history_saved"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
}

// handleChatWS runs a persistent chat connection over the same conversation
// service as POST /v1/chat. Identity is fixed at connect time: a bearer token
// (or ?token=) selects the authenticated class, ?anonymous_id= the anonymous
// one. Browsers cannot set headers on websocket upgrades, hence the query
// fallback.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}

	var (
		class    chat.TrustClass
		callerID string
	)
	if token != "" {
		subject, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid_token", "authentication token rejected")
			return
		}
		class = chat.TrustAuthenticated
		callerID = subject
	} else {
		class = chat.TrustAnonymous
		callerID = strings.TrimSpace(r.URL.Query().Get("anonymous_id"))
		if callerID == "" {
			respondError(w, http.StatusBadRequest, "invalid_identity", "query parameter anonymous_id is required")
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ActiveWSConnections.Inc()
		defer s.metrics.ActiveWSConnections.Dec()
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		var req wsClientMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		systemPrompt := strings.TrimSpace(req.SystemPrompt)
		if systemPrompt == "" {
			systemPrompt = s.cfg.SystemPrompt
		}

		reply, err := s.chat.GenerateReply(r.Context(), class, callerID, req.Message, systemPrompt)

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		var out wsServerMessage
		if err != nil {
			out = wsChatError(err)
			s.logger.Warn("ws chat exchange failed",
				slog.String("code", out.Code),
				slog.String("error", err.Error()))
		} else {
			out = wsServerMessage{
				Reply:        reply.Text,
				SessionKey:   reply.Key.String(),
				HistorySaved: reply.HistorySaved,
			}
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}

func wsChatError(err error) wsServerMessage {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return wsServerMessage{Error: "message must not be empty", Code: "empty_message"}
	case errors.Is(err, chat.ErrInvalidIdentity):
		return wsServerMessage{Error: "caller identity is required", Code: "invalid_identity"}
	default:
		var ce *chat.CompletionError
		if errors.As(err, &ce) {
			return wsServerMessage{Error: "assistant is unavailable, try again", Code: "completion_failed"}
		}
		return wsServerMessage{Error: "internal error", Code: "internal"}
	}
}
