package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"shiftcal/internal/model"
)

// ShiftsKey is the key of the shift array in the model response.
const ShiftsKey = "shifts"

var (
	// ErrMalformedResponse means the response text is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnexpectedShape means the JSON parsed but is not {"shifts": [...]}
	// with complete shift objects.
	ErrUnexpectedShape = errors.New("unexpected shape")
)

// DecodeError is the failure outcome of Decode. Err is always one of
// ErrMalformedResponse or ErrUnexpectedShape.
type DecodeError struct {
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return "extract: " + e.Err.Error()
	}
	return "extract: " + e.Err.Error() + ": " + e.Detail
}

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(detail string) error {
	return &DecodeError{Err: ErrMalformedResponse, Detail: detail}
}

func unexpected(format string, a ...any) error {
	return &DecodeError{Err: ErrUnexpectedShape, Detail: fmt.Sprintf(format, a...)}
}

// StripFence removes a leading ``` marker (with or without a language tag)
// and a trailing ``` marker, then trims surrounding whitespace. Text
// without fences is only trimmed.
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimLeft(s[3:], "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-+")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode turns a raw model response into records. ids are the element
// positions 0..N-1 and each record gets a fresh UID. Absent or blank titles
// become defaultTitle. Nothing is returned on failure.
func Decode(raw, defaultTitle string) ([]model.Record, error) {
	text := StripFence(raw)
	if text == "" {
		return nil, malformed("empty response")
	}
	if !gjson.Valid(text) {
		return nil, malformed("response is not valid JSON")
	}

	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, unexpected("top-level value is not an object")
	}
	list := root.Get(ShiftsKey)
	if !list.Exists() {
		return nil, unexpected("missing %q key", ShiftsKey)
	}
	if !list.IsArray() {
		return nil, unexpected("%q is not an array", ShiftsKey)
	}

	elems := list.Array()
	records := make([]model.Record, 0, len(elems))
	for i, el := range elems {
		if !el.IsObject() {
			return nil, unexpected("shift %d is not an object", i)
		}

		rec := model.Record{ID: i, UID: uuid.NewString()}
		for _, f := range []model.Field{model.FieldDate, model.FieldStartTime, model.FieldEndTime} {
			v := el.Get(string(f))
			if v.Type != gjson.String {
				return nil, unexpected("shift %d: %q missing or not a string", i, f)
			}
			rec = rec.With(f, v.Str)
		}

		rec.Title = defaultTitle
		if t := el.Get(string(model.FieldTitle)); t.Type == gjson.String && strings.TrimSpace(t.Str) != "" {
			rec.Title = t.Str
		}

		records = append(records, rec)
	}

	return records, nil
}
