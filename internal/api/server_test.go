package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/web3ld/contact-api/internal/api/dto/v1/contact"
	"github.com/web3ld/contact-api/internal/config"
	"github.com/web3ld/contact-api/internal/logging"
	"github.com/web3ld/contact-api/internal/ratelimit"
	"github.com/web3ld/contact-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "contact-api-test")
	if err != nil {
		panic(err)
	}

	logging.Configure(&logging.Config{
		File:       filepath.Join(dir, "test.log"),
		MaxSize:    10,
		MaxBackups: 1,
		MaxAge:     1,
	})

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

const validPayload = `{
	"name": "Test User",
	"email": "test@example.com",
	"message": "This is a test message from the automated test suite",
	"turnstileToken": "tok-valid"
}`

type fakeVerifier struct {
	ok        bool
	calls     int
	lastToken string
	lastIP    string
}

func (f *fakeVerifier) Verify(ctx context.Context, token, remoteIP string) bool {
	f.calls++
	f.lastToken = token
	f.lastIP = remoteIP
	return f.ok
}

type fakeDispatcher struct {
	result service.DispatchResult
	calls  int
	last   *contact.ContactRequest
}

func (f *fakeDispatcher) Send(ctx context.Context, data *contact.ContactRequest) service.DispatchResult {
	f.calls++
	f.last = data
	return f.result
}

type panicDispatcher struct{}

func (panicDispatcher) Send(ctx context.Context, data *contact.ContactRequest) service.DispatchResult {
	panic("dispatcher exploded")
}

type fakeLimiter struct {
	result  ratelimit.Result
	err     error
	calls   int
	lastKey string
}

func (f *fakeLimiter) Check(ctx context.Context, key string) (ratelimit.Result, error) {
	f.calls++
	f.lastKey = key
	if f.err != nil {
		return ratelimit.Result{}, f.err
	}
	return f.result, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "production",
		Port:               "8080",
		BrevoAPIKey:        "xkeysib-test",
		TurnstileSecretKey: "ts-secret",
		SenderEmail:        "sender@web3ld.org",
		ReceiverEmail:      "admin@web3ld.org",
		BackdoorContactKey: "backdoor-secret",
		RateLimit: config.RateLimitConfig{
			Quota:   2,
			Window:  24 * time.Hour,
			Backend: "memory",
			RPS:     1000,
			Burst:   1000,
		},
	}
}

type response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	MessageID string      `json:"messageId"`
	Remaining *int        `json:"remaining"`
	Error     string      `json:"error"`
	Details   interface{} `json:"details"`
}

func doPost(t *testing.T, srv *Server, path, body string, headers map[string]string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	srv.Router().ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestSubmit_Success(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "msg-123"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, map[string]string{"CF-Connecting-IP": "203.0.113.7"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Message sent successfully", resp.Message)
	assert.Equal(t, "msg-123", resp.MessageID)
	require.NotNil(t, resp.Remaining)
	assert.Equal(t, 1, *resp.Remaining)

	assert.Equal(t, "tok-valid", verifier.lastToken)
	assert.Equal(t, "203.0.113.7", verifier.lastIP)
	assert.Equal(t, "203.0.113.7", limiter.lastKey)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestSubmit_ContactRouteAlias(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "msg-1"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/contact", validPayload, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestSubmit_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing name", `{"email":"a@b.co","message":"a perfectly fine message","turnstileToken":"t"}`},
		{"missing email", `{"name":"A","message":"a perfectly fine message","turnstileToken":"t"}`},
		{"malformed email", `{"name":"A","email":"not-an-email","message":"a perfectly fine message","turnstileToken":"t"}`},
		{"missing message", `{"name":"A","email":"a@b.co","turnstileToken":"t"}`},
		{"message too short", `{"name":"A","email":"a@b.co","message":"short","turnstileToken":"t"}`},
		{"message too long", `{"name":"A","email":"a@b.co","message":"` + strings.Repeat("x", 3001) + `","turnstileToken":"t"}`},
		{"missing token", `{"name":"A","email":"a@b.co","message":"a perfectly fine message"}`},
		{"malformed json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{ok: true}
			dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
			limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
			srv := NewServer(testConfig(), verifier, dispatcher, limiter)

			w, resp := doPost(t, srv, "/", tt.payload, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Validation failed", resp.Error)
			assert.NotNil(t, resp.Details)

			// No side effects before validation passes
			assert.Zero(t, verifier.calls)
			assert.Zero(t, limiter.calls)
			assert.Zero(t, dispatcher.calls)
		})
	}
}

func TestSubmit_VerificationFailure(t *testing.T) {
	verifier := &fakeVerifier{ok: false}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Verification failed", resp.Error)
	assert.Zero(t, limiter.calls)
	assert.Zero(t, dispatcher.calls)
}

func TestSubmit_RateLimited(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, Remaining: 0}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, resp.Error, "Too many requests")
	require.NotNil(t, resp.Remaining)
	assert.Equal(t, 0, *resp.Remaining)
	assert.Zero(t, dispatcher.calls)
}

func TestSubmit_LimiterOutageIsServerError(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
	limiter := &fakeLimiter{err: errors.New("redis: connection refused")}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Zero(t, dispatcher.calls)
}

func TestSubmit_Backdoor(t *testing.T) {
	verifier := &fakeVerifier{ok: false} // would fail if consulted
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "msg-bd"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, Remaining: 0}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	payload := strings.Replace(validPayload, "tok-valid", "backdoor-secret", 1)
	w, resp := doPost(t, srv, "/", payload, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Remaining)
	assert.Equal(t, 999, *resp.Remaining)

	// Bypasses verification and the persisted quota entirely
	assert.Zero(t, verifier.calls)
	assert.Zero(t, limiter.calls)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestSubmit_NoBackdoorWhenUnconfigured(t *testing.T) {
	cfg := testConfig()
	cfg.BackdoorContactKey = ""
	verifier := &fakeVerifier{ok: false}
	dispatcher := &fakeDispatcher{}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(cfg, verifier, dispatcher, limiter)

	// With no backdoor configured, every token goes through regular
	// verification
	w, resp := doPost(t, srv, "/", validPayload, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Verification failed", resp.Error)
	assert.Equal(t, 1, verifier.calls)
}

func TestSubmit_DispatchFailure(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: false, Error: "Key not found"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Key not found", resp.Error)
}

func TestSubmit_DispatchFailureDefaultMessage(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: false}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send email", resp.Error)
}

func TestSubmit_MissingConfigInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.BrevoAPIKey = ""
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{}
	limiter := &fakeLimiter{}
	srv := NewServer(cfg, verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error", resp.Error)
	assert.Zero(t, verifier.calls)
	assert.Zero(t, dispatcher.calls)
}

func TestSubmit_MissingConfigInDevMode(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "development"
	cfg.BrevoAPIKey = ""
	srv := NewServer(cfg, &fakeVerifier{}, &fakeDispatcher{}, &fakeLimiter{})

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "Dev mode")
}

func TestSubmit_DevModeSkipsPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "development"
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(cfg, verifier, dispatcher, limiter)

	w, resp := doPost(t, srv, "/", validPayload, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Message, "Dev mode")
	assert.Zero(t, verifier.calls)
	assert.Zero(t, limiter.calls)
	assert.Zero(t, dispatcher.calls)

	// Validation still runs before the dev-mode short-circuit
	w, resp = doPost(t, srv, "/", `{"name":"A"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", resp.Error)
}

func TestSubmit_UnknownIPFallback(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	_, _ = doPost(t, srv, "/", validPayload, nil)
	assert.Equal(t, "unknown", limiter.lastKey)
}

func TestSubmit_QuotaEndToEnd(t *testing.T) {
	// Real in-memory limiter: third submission within the window is
	// rejected without an email send.
	verifier := &fakeVerifier{ok: true}
	dispatcher := &fakeDispatcher{result: service.DispatchResult{Success: true, MessageID: "x"}}
	limiter := ratelimit.NewMemoryLimiter(2, 24*time.Hour)
	srv := NewServer(testConfig(), verifier, dispatcher, limiter)

	headers := map[string]string{"CF-Connecting-IP": "198.51.100.1"}

	w, resp := doPost(t, srv, "/", validPayload, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Remaining)
	assert.Equal(t, 1, *resp.Remaining)

	w, resp = doPost(t, srv, "/", validPayload, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, *resp.Remaining)

	w, resp = doPost(t, srv, "/", validPayload, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 0, *resp.Remaining)
	assert.Equal(t, 2, dispatcher.calls)

	// A different client key is unaffected
	w, _ = doPost(t, srv, "/", validPayload, map[string]string{"CF-Connecting-IP": "198.51.100.2"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreflight(t *testing.T) {
	srv := NewServer(testConfig(), &fakeVerifier{}, &fakeDispatcher{}, &fakeLimiter{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://web3ld.org")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "https://web3ld.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(testConfig(), &fakeVerifier{}, &fakeDispatcher{}, &fakeLimiter{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://web3ld.org")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "Method not allowed")
	assert.Equal(t, "https://web3ld.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorResponsesCarryCORSPolicy(t *testing.T) {
	srv := NewServer(testConfig(), &fakeVerifier{}, &fakeDispatcher{}, &fakeLimiter{})

	// Disallowed origin on an error path: header emitted but empty
	w, _ := doPost(t, srv, "/", `{"name":"A"}`, map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	values, present := w.Header()["Access-Control-Allow-Origin"]
	require.True(t, present)
	assert.Equal(t, []string{""}, values)

	// Allowed origin echoed on the same error path
	w, _ = doPost(t, srv, "/", `{"name":"A"}`, map[string]string{"Origin": "https://web3ld.org"})
	assert.Equal(t, "https://web3ld.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanicBecomesServerErrorWithCORS(t *testing.T) {
	verifier := &fakeVerifier{ok: true}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	srv := NewServer(testConfig(), verifier, panicDispatcher{}, limiter)

	w, resp := doPost(t, srv, "/", validPayload, map[string]string{"Origin": "https://web3ld.org"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Equal(t, "https://web3ld.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	srv := NewServer(testConfig(), &fakeVerifier{}, &fakeDispatcher{}, &fakeLimiter{})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
