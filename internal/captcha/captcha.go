// Package captcha verifies bot-mitigation tokens submitted with a form.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stepform/stepform/pkg/logging"
)

// ErrVerificationFailed indicates the token was missing, invalid, or scored
// below the acceptance threshold.
var ErrVerificationFailed = errors.New("captcha: verification failed")

// DefaultVerifyURL is Google's reCAPTCHA siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// DefaultMinScore is the v3 score threshold below which a token is rejected.
const DefaultMinScore = 0.5

// Verifier checks a captcha token for a submission.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Disabled is a no-op verifier for deployments without captcha configured.
type Disabled struct{}

// Verify always succeeds.
func (Disabled) Verify(ctx context.Context, token, remoteIP string) error { return nil }

// Recaptcha verifies tokens against the reCAPTCHA siteverify API. Any failure
// to obtain a positive verdict rejects the submission.
type Recaptcha struct {
	secretKey string
	verifyURL string
	minScore  float64
	scored    bool
	client    *http.Client
	logger    *logging.Logger
}

// RecaptchaConfig configures a Recaptcha verifier.
type RecaptchaConfig struct {
	SecretKey string
	VerifyURL string
	// Type is "v2" or "v3". v3 responses carry a score checked against MinScore.
	Type     string
	MinScore float64
	Timeout  time.Duration
	Logger   *logging.Logger
}

// NewRecaptcha creates a verifier for the given site secret.
func NewRecaptcha(cfg RecaptchaConfig) *Recaptcha {
	verifyURL := cfg.VerifyURL
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	minScore := cfg.MinScore
	if minScore == 0 {
		minScore = DefaultMinScore
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Recaptcha{
		secretKey: cfg.SecretKey,
		verifyURL: verifyURL,
		minScore:  minScore,
		scored:    strings.EqualFold(cfg.Type, "v3"),
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token to the siteverify endpoint. Missing tokens, transport
// errors, and negative verdicts all fail closed.
func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return ErrVerificationFailed
	}

	form := url.Values{}
	form.Set("secret", r.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("captcha verify request failed", "error", err)
		return ErrVerificationFailed
	}
	defer resp.Body.Close()

	var verdict siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		r.logger.Warn("captcha verify response unreadable", "error", err)
		return ErrVerificationFailed
	}

	if !verdict.Success {
		r.logger.Info("captcha rejected", "error_codes", verdict.ErrorCodes)
		return ErrVerificationFailed
	}
	if r.scored && verdict.Score < r.minScore {
		r.logger.Info("captcha score below threshold", "score", verdict.Score, "min_score", r.minScore)
		return ErrVerificationFailed
	}

	return nil
}
