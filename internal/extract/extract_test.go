package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeGenerator struct {
	calls  int
	prompt string
	img    Image
	text   string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, img Image) (string, error) {
	f.calls++
	f.prompt = prompt
	f.img = img
	return f.text, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func fixedNow() time.Time { return time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC) }

func TestExtract_EmbedsYearAndDecodes(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n" + threeShifts + "\n```"}
	loc, _ := time.LoadLocation("Asia/Tokyo")
	ex := New(gen, Options{DefaultTitle: "Shift", Location: loc, Now: fixedNow})

	records, err := ex.Extract(context.Background(), Image{Data: pngHeader})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 1, gen.calls)

	// 20:00 UTC on Dec 31 is already Jan 1 in Tokyo.
	assert.Contains(t, gen.prompt, "2026-02-10")
	assert.Equal(t, MIMEPNG, gen.img.MIMEType)
}

func TestExtract_RequestFailureIsWrapped(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	ex := New(gen, Options{Now: fixedNow})

	records, err := ex.Extract(context.Background(), Image{Data: pngHeader, MIMEType: MIMEPNG})
	assert.Nil(t, records)
	assert.ErrorIs(t, err, ErrRequest)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, gen.calls)
}

func TestExtract_ParseFailuresSurface(t *testing.T) {
	gen := &fakeGenerator{text: `{"items": []}`}
	_, err := New(gen, Options{}).Extract(context.Background(), Image{Data: pngHeader})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	gen.text = "I see a table"
	_, err = New(gen, Options{}).Extract(context.Background(), Image{Data: pngHeader})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestExtract_EmptyImageMakesNoRequest(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := New(gen, Options{}).Raw(context.Background(), Image{})
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Zero(t, gen.calls)
}

func TestNewGemini_PlaceholderKeyShortCircuits(t *testing.T) {
	for _, key := range []string{"", "   ", "your_key_here"} {
		ex, err := NewGemini(context.Background(), GeminiConfig{APIKey: key}, Options{})
		assert.Nil(t, ex)
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, MIMEPNG, DetectMIME("scan.jpg", pngHeader))
	assert.Equal(t, MIMEPNG, DetectMIME("scan.PNG", []byte("not really")))
	assert.Equal(t, MIMEJPEG, DetectMIME("scan.jpeg", []byte("\xff\xd8\xff\xe0")))
	assert.Equal(t, MIMEJPEG, DetectMIME("", []byte("unknown")))
}

func TestGeminiGenerator_SendsInlineImage(t *testing.T) {
	var body []byte
	var path, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-goog-api-key")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"shifts\":[]}"}]}}]}`)
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		Model:      "gemini-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), "read the table", Image{Data: pngHeader, MIMEType: MIMEPNG})
	require.NoError(t, err)
	assert.Equal(t, `{"shifts":[]}`, text)

	assert.True(t, strings.HasSuffix(path, "models/gemini-test:generateContent"), path)
	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, "read the table", gjson.GetBytes(body, "contents.0.parts.0.text").String())
	assert.Equal(t, MIMEPNG, gjson.GetBytes(body, "contents.0.parts.1.inlineData.mimeType").String())
	assert.Equal(t, "application/json", gjson.GetBytes(body, "generationConfig.responseMimeType").String())
}
