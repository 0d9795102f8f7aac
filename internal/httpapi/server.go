package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/laxmihoney/honeychat/internal/chat"
	"github.com/laxmihoney/honeychat/internal/config"
	"github.com/laxmihoney/honeychat/internal/identity"
	"github.com/laxmihoney/honeychat/internal/observability"
	"github.com/laxmihoney/honeychat/internal/users"
)

// Pinger reports whether an external backend is reachable. Satisfied by the
// Redis history store and the Postgres user store; in-memory stores have
// nothing to probe and stay out of the readiness set.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      config.Config
	chat     *chat.Service
	users    users.Store
	verifier identity.Verifier
	metrics  *observability.Metrics
	pingers  map[string]Pinger
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, chatSvc *chat.Service, userStore users.Store, verifier identity.Verifier, metrics *observability.Metrics, pingers map[string]Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:      cfg,
		chat:     chatSvc,
		users:    userStore,
		verifier: verifier,
		metrics:  metrics,
		pingers:  pingers,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a user's chat
				// session if the service is exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/chat/history", s.handleGetHistory)
	r.Delete("/v1/chat/history", s.handleClearHistory)
	r.Get("/v1/chat/ws", s.handleChatWS)

	r.Post("/v1/users/signup", s.handleSignup)
	r.Get("/v1/users/email/{email}", s.handleEmailCheck)
	r.Get("/v1/users/username/{username}", s.handleUsernameCheck)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// handleReady probes every configured backend. With no external backends
// configured there is nothing that can be down, so the service is ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for name, p := range s.pingers {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed",
				slog.String("component", name),
				slog.String("error", err.Error()))
			respondError(w, http.StatusServiceUnavailable, "not_ready", name+" backend unreachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// callerIdentity selects the caller's trust class: a bearer token wins and
// goes through the verifier; otherwise the supplied anonymous id is used.
// On a bad token it writes the response itself and reports done=false.
func (s *Server) callerIdentity(w http.ResponseWriter, r *http.Request, anonymousID string) (chat.TrustClass, string, bool) {
	token := bearerToken(r)
	if token == "" {
		return chat.TrustAnonymous, anonymousID, true
	}

	subject, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_token", "authentication token rejected")
		return 0, "", false
	}
	return chat.TrustAuthenticated, subject, true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
