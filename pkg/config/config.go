package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides the api_url setting when present in the environment
const EnvAPIURL = "BX_API_URL"

type Config struct {
	APIURL string `yaml:"api_url" validate:"required,url"`
	Editor string `yaml:"editor"`

	// Storage
	DownloadDir string `yaml:"download_dir"`
	ExportDir   string `yaml:"export_dir"`
	InboxDir    string `yaml:"inbox_dir"`

	// Redemption behaviour
	OpenAfterDownload   bool   `yaml:"open_after_download"`
	ExportAfterDownload bool   `yaml:"export_after_download"`
	BadgeViewer         string `yaml:"badge_viewer"`

	// Inbox Settings
	InboxExtension  string `yaml:"inbox_extension" validate:"required,startswith=."`
	InboxDebounceMS int    `yaml:"inbox_debounce_ms" validate:"gte=0"`

	// QR Settings
	QRSize          int    `yaml:"qr_size" validate:"gte=64,lte=2048"`
	QRRecoveryLevel string `yaml:"qr_recovery_level" validate:"oneof=L M Q H"`

	// UI Settings
	DisplayDateFormat string `yaml:"display_date_format"`
	ColorTheme        string `yaml:"color_theme" validate:"oneof=auto dark light"`
	TableWidth        int    `yaml:"table_width"`
	RecentAssignments int    `yaml:"recent_assignments" validate:"gte=0"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		APIURL:              "http://localhost:8080",
		Editor:              "",
		DownloadDir:         "",
		ExportDir:           "",
		InboxDir:            "",
		OpenAfterDownload:   false,
		ExportAfterDownload: false,
		BadgeViewer:         "",
		InboxExtension:      ".token",
		InboxDebounceMS:     300,
		QRSize:              256,
		QRRecoveryLevel:     "M",
		DisplayDateFormat:   "02/01/2006 15:04",
		ColorTheme:          "auto",
		TableWidth:          0,
		RecentAssignments:   5,
		LogLevel:            "warn",
	}
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config (not an error)
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for essential values if missing
	defaults := DefaultConfig()
	if cfg.APIURL == "" {
		cfg.APIURL = defaults.APIURL
	}
	if cfg.InboxExtension == "" {
		cfg.InboxExtension = defaults.InboxExtension
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = defaults.QRSize
	}
	if cfg.QRRecoveryLevel == "" {
		cfg.QRRecoveryLevel = defaults.QRRecoveryLevel
	}
	if cfg.DisplayDateFormat == "" {
		cfg.DisplayDateFormat = defaults.DisplayDateFormat
	}
	if cfg.ColorTheme == "" {
		cfg.ColorTheme = defaults.ColorTheme
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	return cfg, nil
}

// ApplyEnv lets the environment override file settings.
// The base URL is resolved once here and passed explicitly from then on.
func (c *Config) ApplyEnv() {
	if url := strings.TrimSpace(os.Getenv(EnvAPIURL)); url != "" {
		c.APIURL = url
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
}

// Validate checks the configuration and reports every offending field
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s' (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
