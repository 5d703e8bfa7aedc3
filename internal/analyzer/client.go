// Package analyzer talks to the external speech analysis service.
//
// The service accepts one recorded utterance and returns the clarity,
// nasality, pacing and breath scores for it. Nothing here retries; callers
// decide what to do with a failed reading.
package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/observe"
)

// DefaultBaseURL is the analysis service address used when none is set.
const DefaultBaseURL = "http://localhost:8000"

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Analyzer scores one recorded utterance.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Request describes one utterance. Audio takes precedence over AudioPath.
type Request struct {
	AudioPath    string
	Audio        []byte
	Format       string
	Mode         model.Mode
	ExpectedText string
}

// Result is the analysis of one utterance.
type Result struct {
	Metrics    model.SpeechMetrics
	Transcript string
}

// HTTPClient is an Analyzer backed by the analysis service's /analyze endpoint.
// It is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	log        zerolog.Logger
	metrics    *observe.Recorder
}

var _ Analyzer = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *HTTPClient) {
		c.log = log
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *observe.Recorder) Option {
	return func(c *HTTPClient) {
		c.metrics = r
	}
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeRequest struct {
	Audio        string `json:"audio"`
	Format       string `json:"format"`
	Mode         string `json:"mode"`
	ExpectedText string `json:"expected_text,omitempty"`
}

type analyzeResponse struct {
	ClarityScore       float64              `json:"clarity_score"`
	NasalityScore      float64              `json:"nasality_score"`
	PacingScore        float64              `json:"pacing_score"`
	BreathControlScore float64              `json:"breath_control_score"`
	OverallScore       float64              `json:"overall_score"`
	PhonemeErrors      []model.PhonemeError `json:"phoneme_errors"`
	Suggestions        []string             `json:"suggestions"`
	Transcript         string               `json:"transcript"`
}

// Analyze uploads the utterance and decodes its scores.
func (c *HTTPClient) Analyze(ctx context.Context, req Request) (res Result, err error) {
	start := c.now()
	defer func() {
		c.metrics.AnalyzerRequest(c.now().Sub(start), err)
	}()

	audio, format := req.Audio, req.Format
	if audio == nil {
		if req.AudioPath == "" {
			return Result{}, ErrNoAudio
		}
		audio, format, err = readAudio(req.AudioPath, format)
		if err != nil {
			return Result{}, err
		}
	}
	if format == "" {
		format = DefaultFormat
	}

	body, err := json.Marshal(analyzeRequest{
		Audio:        base64.StdEncoding.EncodeToString(audio),
		Format:       format,
		Mode:         string(req.Mode),
		ExpectedText: req.ExpectedText,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("path", req.AudioPath).Msg("analysis request failed")
		return Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", req.AudioPath).Msg("analysis rejected")
		return Result{}, fmt.Errorf("%w: unexpected status %d: %s", ErrAnalysisFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %w", ErrAnalysisFailed, err)
	}
	metrics := model.SpeechMetrics{
		ClarityScore:       out.ClarityScore,
		NasalityScore:      out.NasalityScore,
		PacingScore:        out.PacingScore,
		BreathControlScore: out.BreathControlScore,
		OverallScore:       out.OverallScore,
		PhonemeErrors:      out.PhonemeErrors,
		Suggestions:        out.Suggestions,
		Timestamp:          c.now(),
	}
	if !metrics.Finite() {
		return Result{}, fmt.Errorf("%w: non-finite scores", ErrAnalysisFailed)
	}
	c.log.Debug().
		Str("path", req.AudioPath).
		Float64("overall", metrics.OverallScore).
		Dur("elapsed", c.now().Sub(start)).
		Msg("utterance analyzed")
	return Result{Metrics: metrics, Transcript: out.Transcript}, nil
}
