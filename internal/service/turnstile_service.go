package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/web3ld/contact-api/internal/logging"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// TurnstileService verifies human-presence tokens against Cloudflare's
// siteverify endpoint. It is fail-closed: any network error, non-2xx
// response or malformed body counts as a failed verification, and the
// caller only ever sees a boolean.
type TurnstileService struct {
	secretKey string
	verifyURL string
	client    *http.Client
}

// NewTurnstileService creates a new Turnstile verification service
func NewTurnstileService(secretKey string) *TurnstileService {
	return &TurnstileService{
		secretKey: secretKey,
		verifyURL: turnstileVerifyURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// turnstileResponse represents the response from the siteverify API
type turnstileResponse struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// Verify checks a Turnstile token for the given client IP.
func (s *TurnstileService) Verify(ctx context.Context, token, remoteIP string) bool {
	logger := logging.GetLogger()

	if s.secretKey == "" || token == "" {
		return false
	}

	data := url.Values{}
	data.Set("secret", s.secretKey)
	data.Set("response", token)
	data.Set("remoteip", remoteIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		logger.Error("failed to create turnstile request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error("turnstile verification error: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("turnstile API returned status %d", resp.StatusCode)
		return false
	}

	var result turnstileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Error("failed to parse turnstile response: %v", err)
		return false
	}

	if !result.Success {
		logger.Error("turnstile verification failed: %v", result.ErrorCodes)
	}

	return result.Success
}
