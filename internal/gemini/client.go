// Package gemini sends one recorded consultation to the Gemini generateContent
// API and decodes the structured transcript and SOAP note it returns.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/consultation"
	"google.golang.org/genai"
)

const (
	DefaultEndpoint    = "https://generativelanguage.googleapis.com"
	DefaultModel       = "gemini-2.0-flash-exp"
	DefaultTemperature = 0.2

	apiVersion       = "v1beta"
	maxResponseBytes = 32 << 20
)

// Config controls request construction. Temperature is sent as given.
type Config struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float64
	Language    consultation.Language
	// Timeout bounds one Generate call; zero leaves only ctx in charge.
	Timeout    time.Duration
	HTTPClient *http.Client
	// DebugResponseSink receives every raw response body when set.
	DebugResponseSink io.Writer
	UserAgent         string
	Logger            *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	cfg    Config
	sdk    *genai.Client
	sdkErr error
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Model = strings.TrimPrefix(strings.TrimSpace(cfg.Model), "models/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = consultation.LanguageEnglish
	}

	c := &Client{cfg: cfg}
	// Without a key there is nothing to build; Generate and Probe refuse
	// before touching the SDK, which would otherwise fall back to ambient
	// credentials.
	if strings.TrimSpace(cfg.APIKey) != "" {
		c.sdk, c.sdkErr = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:     cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: c.httpClient(),
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/") + "/",
				APIVersion: apiVersion,
			},
		})
	}
	return c
}

func (c *Client) httpClient() *http.Client {
	base := http.DefaultTransport
	var timeout time.Duration
	if c.cfg.HTTPClient != nil {
		if c.cfg.HTTPClient.Transport != nil {
			base = c.cfg.HTTPClient.Transport
		}
		timeout = c.cfg.HTTPClient.Timeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &recordingTransport{
			base:      base,
			userAgent: c.cfg.UserAgent,
			sink:      newLockedWriter(c.cfg.DebugResponseSink),
		},
	}
}

// Generate performs exactly one generateContent request for recording.
func (c *Client) Generate(ctx context.Context, recording audio.Encoded) (consultation.Data, error) {
	if err := c.ready(); err != nil {
		return consultation.Data{}, err
	}

	contents, err := c.buildContents(recording)
	if err != nil {
		return consultation.Data{}, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	ctx, ex := withExchange(ctx)
	started := time.Now()
	resp, err := c.sdk.Models.GenerateContent(ctx, c.cfg.Model, contents, c.generateConfig())
	if err != nil {
		return consultation.Data{}, classify(ctx, ex, err)
	}
	c.logDebug("gemini response received",
		"status", ex.status,
		"bytes", len(ex.body),
		"latency_ms", time.Since(started).Milliseconds(),
	)

	text, err := responseText(resp)
	if err != nil {
		return consultation.Data{}, err
	}
	return DecodeConsultation(text)
}

// Probe checks that the endpoint is reachable and accepts the key for the
// configured model.
func (c *Client) Probe(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	ctx, ex := withExchange(ctx)
	if _, err := c.sdk.Models.Get(ctx, c.cfg.Model, nil); err != nil {
		return classify(ctx, ex, err)
	}
	return nil
}

func (c *Client) ready() error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return fmt.Errorf("%w: no API key (set GEMINI_API_KEY or gemini.api_key)", ErrConfiguration)
	}
	if c.sdkErr != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, c.sdkErr)
	}
	return nil
}

func (c *Client) buildContents(recording audio.Encoded) ([]*genai.Content, error) {
	if len(recording.Data) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrEncoding)
	}
	mimeType := strings.TrimSpace(recording.MIMEType)
	if mimeType == "" {
		mimeType = audio.MIMETypeWAV
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: mime type %q: %v", ErrEncoding, mimeType, err)
	}
	if !strings.HasPrefix(mediaType, "audio/") || mediaType == "audio/" {
		return nil, fmt.Errorf("%w: mime type %q is not audio", ErrEncoding, mimeType)
	}

	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(recording.Data, mediaType),
			genai.NewPartFromText(UserInstruction),
		}, genai.RoleUser),
	}, nil
}

func (c *Client) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemInstruction(c.cfg.Language)}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema,
		Temperature:       genai.Ptr(float32(c.cfg.Temperature)),
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrService)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrService, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: response has no candidates", ErrService)
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	if candidate.Content != nil {
		for _, p := range candidate.Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
	}
	reason := candidate.FinishReason
	if strings.TrimSpace(b.String()) == "" && reason != "" && reason != genai.FinishReasonStop {
		return "", fmt.Errorf("%w: generation finished with %s", ErrService, reason)
	}
	return b.String(), nil
}

// classify maps an SDK failure onto the package error kinds using what the
// transport saw of the exchange.
func classify(ctx context.Context, ex *exchange, err error) error {
	switch {
	case ex.err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrNetwork, ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrNetwork, ex.err)
	case ex.status != 0 && (ex.status < 200 || ex.status >= 300):
		return serviceError(ex.status, ex.body, err)
	case ex.status != 0:
		return fmt.Errorf("%w: response is not valid JSON: %v", ErrSchema, err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, ctxErr)
	}
	if apiErr, ok := asAPIError(err); ok {
		return serviceError(apiErr.Code, nil, apiErr)
	}
	return fmt.Errorf("%w: request not sent: %v", ErrConfiguration, err)
}

// serviceError prefers the typed API error and falls back to the raw body.
func serviceError(status int, raw []byte, err error) error {
	if apiErr, ok := asAPIError(err); ok && apiErr.Message != "" {
		if apiErr.Status != "" {
			return fmt.Errorf("%w: http %d %s: %s", ErrService, status, apiErr.Status, apiErr.Message)
		}
		return fmt.Errorf("%w: http %d: %s", ErrService, status, apiErr.Message)
	}
	snippet := strings.TrimSpace(string(raw))
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	if snippet == "" {
		return fmt.Errorf("%w: http %d", ErrService, status)
	}
	return fmt.Errorf("%w: http %d: %s", ErrService, status, snippet)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.cfg.Logger == nil {
		return
	}
	c.cfg.Logger.Debug(msg, args...)
}

// lockedWriter serializes debug sink writes from concurrent calls.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newLockedWriter(w io.Writer) *lockedWriter {
	if w == nil {
		return nil
	}
	return &lockedWriter{w: w}
}

func (l *lockedWriter) writeLine(p []byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(p)
	_, _ = l.w.Write([]byte("\n"))
}
