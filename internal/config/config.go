package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultTimezone        = "Asia/Tokyo"
	DefaultProductID       = "Shift Calendar App"
	DefaultTitle           = "Shift"
	DefaultModel           = "gemini-flash-latest"
	DefaultReminderMinutes = 60

	ProviderDir    = "dir"
	ProviderGoogle = "google"
)

// GeminiConfig holds the model credential and model name.
type GeminiConfig struct {
	// APIKey is the only credential the extraction step needs. An empty or
	// placeholder value means "not configured".
	APIKey string `yaml:"api_key" json:"-"`
	Model  string `yaml:"model" json:"model"`
}

// CalendarConfig selects and configures the native calendar provider.
type CalendarConfig struct {
	// Provider is "dir" (local directory of .ics files) or "google".
	Provider string `yaml:"provider" json:"provider"`
	// Dir is the root directory used by the "dir" provider.
	Dir string `yaml:"dir" json:"dir"`
	// CredentialsFile is a Google service account or authorized user JSON
	// file used by the "google" provider.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// ReminderMinutes is how long before the start the single reminder fires.
	ReminderMinutes int `yaml:"reminder_minutes" json:"reminder_minutes"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone every shift time is anchored to.
	Timezone string `yaml:"timezone" json:"timezone"`

	// ProductID goes into the PRODID line of exported calendar files.
	ProductID string `yaml:"product_id" json:"product_id"`

	// DefaultTitle replaces an absent or empty shift title.
	DefaultTitle string `yaml:"default_title" json:"default_title"`

	Gemini   GeminiConfig   `yaml:"gemini" json:"gemini"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`

	// ResetCron, if set, is a cron schedule on which the server discards
	// any in-progress batch (e.g. "0 4 * * *").
	ResetCron string `yaml:"reset_cron" json:"reset_cron"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultPath returns ~/.config/shiftcal/config.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "shiftcal", "config.yaml"), nil
}

// DefaultCalendarDir returns ~/.local/share/shiftcal/calendars.
func DefaultCalendarDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "./var/calendars"
	}
	return filepath.Join(home, ".local", "share", "shiftcal", "calendars")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Timezone:     DefaultTimezone,
		ProductID:    DefaultProductID,
		DefaultTitle: DefaultTitle,
		Gemini: GeminiConfig{
			APIKey: "your_key_here",
			Model:  DefaultModel,
		},
		Calendar: CalendarConfig{
			Provider:        ProviderDir,
			Dir:             DefaultCalendarDir(),
			ReminderMinutes: DefaultReminderMinutes,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ProductID == "" {
		c.ProductID = DefaultProductID
	}
	if c.DefaultTitle == "" {
		c.DefaultTitle = DefaultTitle
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultModel
	}

	switch strings.ToLower(c.Calendar.Provider) {
	case ProviderGoogle:
		c.Calendar.Provider = ProviderGoogle
	default:
		// Unknown value; fall back to the local provider.
		c.Calendar.Provider = ProviderDir
	}
	if c.Calendar.Dir == "" {
		c.Calendar.Dir = DefaultCalendarDir()
	}
	if c.Calendar.ReminderMinutes <= 0 {
		c.Calendar.ReminderMinutes = DefaultReminderMinutes
	}
}

// ApplyEnv overrides file values from the environment. getenv is usually
// os.Getenv.
//
//   - SHIFTCAL_GEMINI_API_KEY, then GEMINI_API_KEY -> gemini.api_key
//   - SHIFTCAL_TIMEZONE -> timezone
func (c *Config) ApplyEnv(getenv func(string) string) {
	for _, name := range []string{"SHIFTCAL_GEMINI_API_KEY", "GEMINI_API_KEY"} {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			c.Gemini.APIKey = v
			break
		}
	}
	if v := strings.TrimSpace(getenv("SHIFTCAL_TIMEZONE")); v != "" {
		c.Timezone = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since the file holds the API key.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".shiftcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
