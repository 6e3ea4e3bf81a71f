package herelaw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"herelaw/internal/domain"
)

// ErrUnauthorized aliases the domain sentinel so callers of this package
// can match 401s without importing the domain package.
var ErrUnauthorized = domain.ErrUnauthorized

// APIError carries the backend's own message for a failed request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Config controls the backend client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

// Client talks to the complaint-generation backend over REST.
type Client struct {
	baseURL string
	http    *http.Client
	upload  *http.Client
	log     *logrus.Entry

	tokenMu sync.RWMutex
	token   string
}

func NewClient(cfg Config, log *logrus.Entry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 120 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		upload:  &http.Client{Timeout: cfg.UploadTimeout},
		log:     log.WithField("component", "backend"),
	}
}

// SetToken installs the bearer token used on authenticated requests.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

func (c *Client) bearer() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// WaitReady probes the backend until it answers any HTTP request, with
// exponential backoff. Connectivity only; user operations are never retried.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait

	probe := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	}

	if err := backoff.Retry(probe, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("backend is not reachable at %s: %w", c.baseURL, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	var out authResponse
	err := c.postJSON(ctx, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return domain.AuthResult{}, err
	}
	return out.authResult(), nil
}

func (c *Client) Register(ctx context.Context, username, password, email string) (domain.AuthResult, error) {
	var out authResponse
	err := c.postJSON(ctx, "/api/register", map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	}, &out)
	if err != nil {
		return domain.AuthResult{}, err
	}
	return out.authResult(), nil
}

func (c *Client) GenerateComplaint(ctx context.Context, userInput string) (domain.GenerateResult, error) {
	var out struct {
		Complaint string `json:"complaint"`
		SessionID string `json:"session_id"`
	}
	err := c.postJSON(ctx, "/api/generate-complaint", map[string]string{
		"user_input": userInput,
	}, &out)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	return domain.GenerateResult{Complaint: out.Complaint, SessionID: out.SessionID}, nil
}

// TranscribeAudio submits one complete audio artifact for batch
// transcription. No partial results; the call suspends until text or error.
func (c *Client) TranscribeAudio(ctx context.Context, artifact domain.AudioArtifact) (string, error) {
	if len(artifact.Data) == 0 {
		return "", errors.New("audio artifact is empty")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("audio", artifactFilename(artifact))
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return "", fmt.Errorf("failed to buffer audio payload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-audio", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(c.upload, req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) UpdateComplaint(ctx context.Context, sessionID, complaint string) error {
	return c.postJSON(ctx, "/api/update_complaint", map[string]string{
		"complaint":  complaint,
		"session_id": sessionID,
	}, nil)
}

func (c *Client) RateSession(ctx context.Context, sessionID string, rating int, feedback string) error {
	return c.postJSON(ctx, "/api/rate-session", map[string]interface{}{
		"session_id": sessionID,
		"rating":     rating,
		"feedback":   feedback,
	}, nil)
}

func (c *Client) Sessions(ctx context.Context) ([]domain.SessionRecord, error) {
	var out []domain.SessionRecord
	if err := c.getJSON(ctx, "/api/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Session(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.SessionRecord{}, errors.New("session id is required")
	}
	var out domain.SessionRecord
	if err := c.getJSON(ctx, "/api/sessions/"+sessionID, &out); err != nil {
		return domain.SessionRecord{}, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(c.http, req, target)
}

func (c *Client) getJSON(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(c.http, req, target)
}

func (c *Client) do(httpClient *http.Client, req *http.Request, target interface{}) error {
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{
		"req_id": requestID,
		"method": req.Method,
		"path":   req.URL.Path,
	})
	log.Debug("backend request")

	resp, err := httpClient.Do(req)
	if err != nil {
		log.WithField("error", err.Error()).Warn("backend request failed")
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn("backend rejected credentials")
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithField("status", resp.StatusCode).Warn("backend returned error")
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "the server returned an unreadable response"}
	}
	return nil
}

// errorMessage extracts the best available human-readable message from an
// error body: message, then error, then a generic fallback.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return ""
}

func artifactFilename(artifact domain.AudioArtifact) string {
	name := artifact.ID
	if name == "" {
		name = uuid.New().String()
	}
	switch artifact.MIMEType {
	case "audio/webm":
		return name + ".webm"
	case "audio/ogg":
		return name + ".ogg"
	default:
		return name + ".wav"
	}
}

type authResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (r authResponse) authResult() domain.AuthResult {
	return domain.AuthResult{Token: r.Token, UserID: r.UserID, Username: r.Username}
}
