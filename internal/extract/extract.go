package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

var (
	// ErrNotConfigured means the API key is absent or still a placeholder.
	// No request is made.
	ErrNotConfigured = errors.New("model API key is not configured")
	// ErrRequest wraps any transport or model failure of the single request.
	ErrRequest = errors.New("model request failed")
	// ErrEmptyImage is returned before any request when no image bytes
	// were supplied.
	ErrEmptyImage = errors.New("image is empty")
)

// placeholderKeys are values shipped in sample configs that must never be
// sent as a credential.
var placeholderKeys = map[string]struct{}{
	"your_key_here":  {},
	"your_api_key":   {},
	"YOUR_API_KEY":   {},
	"changeme":       {},
	"<your-api-key>": {},
}

// Configured reports whether key looks like a real credential.
func Configured(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	_, placeholder := placeholderKeys[key]
	return !placeholder
}

// Image is the payload of one extraction request.
type Image struct {
	Data     []byte
	MIMEType string
}

// DetectMIME picks image/png or image/jpeg. PNG content or a .png name
// yields image/png; everything else is sent as JPEG.
func DetectMIME(name string, data []byte) string {
	if http.DetectContentType(data) == MIMEPNG {
		return MIMEPNG
	}
	if strings.EqualFold(filepath.Ext(name), ".png") {
		return MIMEPNG
	}
	return MIMEJPEG
}

// Generator sends one prompt plus image to a vision-capable model and
// returns the response text.
type Generator interface {
	Generate(ctx context.Context, prompt string, img Image) (string, error)
}

// Options controls an Extractor.
type Options struct {
	// DefaultTitle replaces absent or blank shift titles.
	DefaultTitle string
	// Location decides the "current year" embedded in the prompt.
	Location *time.Location
	// Now is used instead of time.Now when set.
	Now func() time.Time
}

// Extractor turns one image into a shift batch with exactly one model
// request. It never retries.
type Extractor struct {
	gen  Generator
	opts Options
}

// New wraps gen. Callers building a real generator should check the
// credential with Configured first; NewGemini does.
func New(gen Generator, opts Options) *Extractor {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Extractor{gen: gen, opts: opts}
}

// GeminiConfig configures NewGemini.
type GeminiConfig struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint; empty means the public endpoint.
	BaseURL string
}

// NewGemini checks the credential and builds an Extractor backed by the
// Gemini API. A missing or placeholder key returns ErrNotConfigured
// before any client is created.
func NewGemini(ctx context.Context, cfg GeminiConfig, opts Options) (*Extractor, error) {
	if !Configured(cfg.APIKey) {
		return nil, ErrNotConfigured
	}
	gen, err := NewGeminiGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(gen, opts), nil
}

// Raw performs the single model request and returns the response text
// untouched.
func (e *Extractor) Raw(ctx context.Context, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrEmptyImage
	}
	if img.MIMEType == "" {
		img.MIMEType = DetectMIME("", img.Data)
	}

	year := e.opts.Now().In(e.opts.Location).Year()
	appLog.Info("model request start", "mime", img.MIMEType, "bytes", len(img.Data), "year", year)

	text, err := e.gen.Generate(ctx, Prompt(year), img)
	if err != nil {
		appLog.Error("model request failed", err)
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}

	appLog.Debug("model response", "text", text)
	return text, nil
}

// Extract performs the request and decodes the response.
func (e *Extractor) Extract(ctx context.Context, img Image) ([]model.Record, error) {
	raw, err := e.Raw(ctx, img)
	if err != nil {
		return nil, err
	}
	records, err := Decode(raw, e.opts.DefaultTitle)
	if err != nil {
		appLog.Error("model response rejected", err)
		return nil, err
	}
	appLog.Info("model response decoded", "shift_count", len(records))
	return records, nil
}

// GeminiGenerator implements Generator with google.golang.org/genai.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a genai client for the Gemini API backend.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if !Configured(cfg.APIKey) {
		return nil, ErrNotConfigured
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = "gemini-flash-latest"
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: modelName}, nil
}

// Generate sends the prompt and inline image as one user turn and asks for
// a JSON response.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, img Image) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(img.Data, img.MIMEType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("model returned an empty response")
	}
	return text, nil
}
