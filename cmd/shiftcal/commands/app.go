package commands

import (
	"context"
	"errors"
	"fmt"

	"shiftcal/internal/calendar"
	"shiftcal/internal/calendar/dircal"
	"shiftcal/internal/calendar/gcal"
	"shiftcal/internal/config"
	"shiftcal/internal/extract"
	"shiftcal/internal/model"
)

func newExtractor(ctx context.Context) (*extract.Extractor, error) {
	return extract.NewGemini(ctx,
		extract.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model},
		extract.Options{DefaultTitle: cfg.DefaultTitle, Location: loc},
	)
}

func newProvider(ctx context.Context) (calendar.Provider, error) {
	switch cfg.Calendar.Provider {
	case config.ProviderGoogle:
		return gcal.New(ctx, cfg.Calendar.CredentialsFile)
	default:
		p := dircal.New(cfg.Calendar.Dir, cfg.ProductID)
		if err := p.EnsureDefault(); err != nil {
			return nil, fmt.Errorf("calendar dir %s: %w", p.Root(), err)
		}
		return p, nil
	}
}

func newMaterializer(ctx context.Context) (*calendar.Materializer, error) {
	p, err := newProvider(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.NewMaterializer(p, loc, cfg.Calendar.ReminderMinutes), nil
}

// explain turns pipeline errors into a printed message with suggestions.
func explain(err error) error {
	var verrs model.ValidationErrors
	switch {
	case errors.Is(err, extract.ErrNotConfigured):
		return out.Error("Gemini API key is not configured", err.Error(), []string{
			"Set GEMINI_API_KEY in the environment",
			"Set gemini.api_key in " + displayConfigPath(),
		})
	case errors.Is(err, extract.ErrRequest):
		return out.Error("The model request failed", err.Error(), []string{"Check the network and the API key, then retry"})
	case errors.Is(err, extract.ErrMalformedResponse), errors.Is(err, extract.ErrUnexpectedShape):
		return out.Error("Could not read shifts from the model's answer", err.Error(), []string{"Retry with a sharper, well-lit photo of the roster"})
	case errors.As(err, &verrs):
		return out.Error("Some shifts have invalid fields", verrs.Error(), []string{"Dates must be YYYY-MM-DD and times HH:MM"})
	case errors.Is(err, model.ErrEmptyBatch):
		return out.Error("Nothing to register", "The image produced no shifts.", nil)
	case errors.Is(err, calendar.ErrNoWritableCalendar):
		return out.Error("No writable calendar", "Every calendar is read-only and none is primary.", []string{"Create or share a calendar you can edit, then retry"})
	case errors.Is(err, calendar.ErrPermissionDenied):
		return out.Error("Calendar access denied", err.Error(), []string{
			"Check calendar.credentials_file and its scopes",
			"Check permissions on calendar.dir",
		})
	default:
		return out.Error("Command failed", err.Error(), nil)
	}
}

func displayConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p, err := config.DefaultPath(); err == nil {
		return p
	}
	return "the config file"
}
