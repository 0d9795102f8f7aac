package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/laxmihoney/honeychat/internal/chat"
	"github.com/laxmihoney/honeychat/internal/config"
	"github.com/laxmihoney/honeychat/internal/history"
	"github.com/laxmihoney/honeychat/internal/identity"
	"github.com/laxmihoney/honeychat/internal/llm"
	"github.com/laxmihoney/honeychat/internal/observability"
	"github.com/laxmihoney/honeychat/internal/users"
)

var metricsSeq atomic.Int64

func newTestServer(t *testing.T, completer chat.Completer) *Server {
	t.Helper()
	cfg := config.Config{
		SystemPrompt:   "You are a test assistant.",
		HistoryWindow:  10,
		AllowAnyOrigin: true,
	}
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))
	svc := chat.NewService(chat.ServiceConfig{
		Store:     history.NewMemoryStore(),
		Completer: completer,
		Metrics:   metrics,
	})
	verifier := identity.NewStaticVerifier(map[string]string{"tok-1": "user-42"})
	return New(cfg, svc, users.NewMemoryStore(), verifier, metrics, nil, nil)
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestChatAnonymous(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Reply: "Hello from the hive"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postJSON(t, ts.URL+"/v1/chat", map[string]string{
		"message":      "Hi",
		"anonymous_id": "dev-1",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["reply"] != "Hello from the hive" {
		t.Fatalf("reply = %v", body["reply"])
	}
	if body["session_key"] != "chat-anon:dev-1:main" {
		t.Fatalf("session_key = %v", body["session_key"])
	}
	if body["history_saved"] != true {
		t.Fatalf("history_saved = %v", body["history_saved"])
	}
}

func TestChatAuthenticated(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Reply: "ok"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	payload, _ := json.Marshal(map[string]string{"message": "Hi"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok-1")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["session_key"] != "chat-auth:user-42:main" {
		t.Fatalf("session_key = %v", body["session_key"])
	}
}

func TestChatRejectsBadToken(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Reply: "ok"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	payload, _ := json.Marshal(map[string]string{"message": "Hi"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer bogus")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestChatValidationErrors(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Reply: "ok"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postJSON(t, ts.URL+"/v1/chat", map[string]string{"message": "Hi"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing identity status = %d, want 400", res.StatusCode)
	}
	if body := decodeBody(t, res); body["code"] != "invalid_identity" {
		t.Fatalf("code = %v, want invalid_identity", body["code"])
	}

	res = postJSON(t, ts.URL+"/v1/chat", map[string]string{"anonymous_id": "dev-1"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message status = %d, want 400", res.StatusCode)
	}
	if body := decodeBody(t, res); body["code"] != "empty_message" {
		t.Fatalf("code = %v, want empty_message", body["code"])
	}
}

func TestChatCompletionFailureDoesNotPersist(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Err: errors.New("model down")})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postJSON(t, ts.URL+"/v1/chat", map[string]string{
		"message":      "Hi",
		"anonymous_id": "dev-1",
	})
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}
	if body := decodeBody(t, res); body["code"] != "completion_failed" {
		t.Fatalf("code = %v, want completion_failed", body["code"])
	}

	histRes, err := http.Get(ts.URL + "/v1/chat/history?anonymous_id=dev-1")
	if err != nil {
		t.Fatalf("history request error = %v", err)
	}
	body := decodeBody(t, histRes)
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 0 {
		t.Fatalf("history has %d entries after failed completion, want 0", len(msgs))
	}
}

func TestHistoryRoundTripAndClear(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{Reply: "answer"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postJSON(t, ts.URL+"/v1/chat", map[string]string{
		"message":      "question",
		"anonymous_id": "dev-1",
	})
	res.Body.Close()

	histRes, err := http.Get(ts.URL + "/v1/chat/history?anonymous_id=dev-1")
	if err != nil {
		t.Fatalf("history request error = %v", err)
	}
	body := decodeBody(t, histRes)
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want 2", len(msgs))
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/chat/history?anonymous_id=dev-1", nil)
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete request error = %v", err)
	}
	delBody := decodeBody(t, delRes)
	if delBody["deleted"] != float64(1) {
		t.Fatalf("deleted = %v, want 1", delBody["deleted"])
	}

	histRes, err = http.Get(ts.URL + "/v1/chat/history?anonymous_id=dev-1")
	if err != nil {
		t.Fatalf("history request error = %v", err)
	}
	body = decodeBody(t, histRes)
	msgs, _ = body["messages"].([]any)
	if len(msgs) != 0 {
		t.Fatalf("history length after clear = %d, want 0", len(msgs))
	}
}

func TestSignupFlow(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postJSON(t, ts.URL+"/v1/users/signup", map[string]string{
		"full_name": "Jane Doe",
		"email":     "jane@example.com",
		"password":  "password123",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	body := decodeBody(t, res)
	if body["username"] != "jane" {
		t.Fatalf("username = %v, want jane", body["username"])
	}
	if uid, _ := body["uid"].(string); uid == "" {
		t.Fatalf("uid missing in signup response: %v", body)
	}

	checkRes, err := http.Get(ts.URL + "/v1/users/email/jane@example.com")
	if err != nil {
		t.Fatalf("email check error = %v", err)
	}
	if checkBody := decodeBody(t, checkRes); checkBody["exists"] != true {
		t.Fatalf("email exists = %v, want true", checkBody["exists"])
	}

	dupRes := postJSON(t, ts.URL+"/v1/users/signup", map[string]string{
		"full_name": "Jane Again",
		"email":     "jane@example.com",
		"password":  "password456",
	})
	defer dupRes.Body.Close()
	if dupRes.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want %d", dupRes.StatusCode, http.StatusConflict)
	}
}

func TestSignupValidation(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	cases := []map[string]string{
		{"full_name": "J", "email": "jane@example.com", "password": "password123"},
		{"full_name": "Jane Doe", "email": "not-an-email", "password": "password123"},
		{"full_name": "Jane Doe", "email": "jane@example.com", "password": "short"},
	}
	for i, payload := range cases {
		res := postJSON(t, ts.URL+"/v1/users/signup", payload)
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d status = %d, want 400", i, res.StatusCode)
		}
	}
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestReadyzNoBackends(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestReadyzProbesBackends(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	srv.pingers = map[string]Pinger{
		"history": stubPinger{},
		"users":   stubPinger{},
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	srv.pingers["history"] = stubPinger{err: errors.New("connection refused")}
	res, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status with down backend = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
	if body := decodeBody(t, res); body["code"] != "not_ready" {
		t.Fatalf("code = %v, want not_ready", body["code"])
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &llm.Mock{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if !strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		t.Fatalf("content-type = %q", res.Header.Get("Content-Type"))
	}
}
