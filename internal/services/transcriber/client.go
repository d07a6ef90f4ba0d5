package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultSubmitRetry  = 3
)

// Config captures the runtime settings for the transcription provider.
type Config struct {
	BaseURL             string
	APIKey              string
	Model               string
	TimeoutSeconds      int
	PollIntervalSeconds int
}

// Segment is one diarized span returned by the provider.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Result is a completed transcription.
type Result struct {
	JobID      string
	Transcript string
	Segments   []Segment
}

// ErrJobFailed marks a transcription the provider reported as failed; it will
// not succeed on retry with the same media.
var ErrJobFailed = errors.New("transcription job failed")

// Client talks to the transcription provider.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often job status is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	pollInterval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:             strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:              strings.TrimSpace(cfg.APIKey),
			Model:               strings.TrimSpace(cfg.Model),
			TimeoutSeconds:      cfg.TimeoutSeconds,
			PollIntervalSeconds: cfg.PollIntervalSeconds,
		},
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitRequest struct {
	MediaURL string `json:"media_url"`
	Model    string `json:"model,omitempty"`
	Diarize  bool   `json:"diarize"`
}

type jobResponse struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Transcript string    `json:"transcript,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Transcribe submits the media URL and polls until the job reaches a terminal
// provider state. The returned transcript is the full diarized text.
func (c *Client) Transcribe(ctx context.Context, mediaURL string) (Result, error) {
	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return Result{}, errors.New("transcribe: media url required")
	}
	if c.cfg.APIKey == "" {
		return Result{}, errors.New("transcribe: api key required")
	}
	if c.cfg.BaseURL == "" {
		return Result{}, errors.New("transcribe: base url required")
	}

	job, err := c.submit(ctx, mediaURL)
	if err != nil {
		return Result{}, err
	}
	if isCompleted(job.Status) {
		return resultFromJob(job), nil
	}
	if isFailed(job.Status) {
		return Result{}, failureError(job)
	}
	return c.poll(ctx, job.JobID)
}

func (c *Client) submit(ctx context.Context, mediaURL string) (jobResponse, error) {
	var job jobResponse
	operation := func() error {
		resp, err := c.doJSON(ctx, http.MethodPost, c.endpoint("/v1/transcriptions"), submitRequest{
			MediaURL: mediaURL,
			Model:    c.cfg.Model,
			Diarize:  true,
		})
		if err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		job = resp
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultSubmitRetry-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return jobResponse{}, fmt.Errorf("submit transcription: %w", err)
	}
	if job.JobID == "" && !isCompleted(job.Status) {
		return jobResponse{}, errors.New("submit transcription: provider returned no job id")
	}
	return job, nil
}

func (c *Client) poll(ctx context.Context, jobID string) (Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}

		job, err := c.doJSON(ctx, http.MethodGet, c.endpoint("/v1/transcriptions/"+url.PathEscape(jobID)), nil)
		if err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
				return Result{}, fmt.Errorf("poll transcription: %w", err)
			}
			// Transient poll failures roll into the next tick.
			continue
		}
		if isCompleted(job.Status) {
			return resultFromJob(job), nil
		}
		if isFailed(job.Status) {
			return Result{}, failureError(job)
		}
	}
}

// HealthCheck verifies the provider endpoint and credentials are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("transcriber health: api key required")
	}
	if c.cfg.BaseURL == "" {
		return errors.New("transcriber health: base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v1/status"), nil)
	if err != nil {
		return fmt.Errorf("transcriber health: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcriber health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("transcriber health: http %d", resp.StatusCode)
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("transcription request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + path
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any) (jobResponse, error) {
	var job jobResponse
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return job, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return job, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return job, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return job, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return job, &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, &job); err != nil {
		return job, fmt.Errorf("decode response: %w", err)
	}
	return job, nil
}

func isCompleted(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "success", "done":
		return true
	}
	return false
}

func isFailed(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "error", "cancelled":
		return true
	}
	return false
}

func failureError(job jobResponse) error {
	detail := strings.TrimSpace(job.Error)
	if detail == "" {
		detail = "provider reported status " + job.Status
	}
	return fmt.Errorf("%w: %s", ErrJobFailed, detail)
}

func resultFromJob(job jobResponse) Result {
	return Result{JobID: job.JobID, Transcript: job.Transcript, Segments: job.Segments}
}
