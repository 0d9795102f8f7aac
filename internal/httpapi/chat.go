package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/laxmihoney/honeychat/internal/chat"
)

type chatRequest struct {
	Message      string `json:"message"`
	AnonymousID  string `json:"anonymous_id"`
	SystemPrompt string `json:"system_prompt"`
}

type chatResponse struct {
	Reply        string `json:"reply"`
	SessionKey   string `json:"session_key"`
	HistorySaved bool   `json:"history_saved"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	class, callerID, ok := s.callerIdentity(w, r, req.AnonymousID)
	if !ok {
		return
	}

	systemPrompt := strings.TrimSpace(req.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = s.cfg.SystemPrompt
	}

	reply, err := s.chat.GenerateReply(r.Context(), class, callerID, req.Message, systemPrompt)
	if err != nil {
		s.respondChatError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		Reply:        reply.Text,
		SessionKey:   reply.Key.String(),
		HistorySaved: reply.HistorySaved,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	class, callerID, ok := s.callerIdentity(w, r, r.URL.Query().Get("anonymous_id"))
	if !ok {
		return
	}

	msgs, err := s.chat.GetHistory(r.Context(), class, callerID)
	if err != nil {
		s.respondChatError(w, err)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	class, callerID, ok := s.callerIdentity(w, r, r.URL.Query().Get("anonymous_id"))
	if !ok {
		return
	}

	deleted, err := s.chat.ClearHistory(r.Context(), class, callerID)
	if err != nil {
		s.respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
	})
}

func (s *Server) respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidIdentity):
		respondError(w, http.StatusBadRequest, "invalid_identity", "caller identity is required")
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", "message must not be empty")
	default:
		var ce *chat.CompletionError
		if errors.As(err, &ce) {
			s.logger.Error("completion failed", slog.String("error", err.Error()))
			respondError(w, http.StatusBadGateway, "completion_failed", "assistant is unavailable, try again")
			return
		}
		s.logger.Error("chat request failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
