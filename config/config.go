// Package config loads the pcs-import configuration file.
//
//	database: portfolio.db
//	delivery_mode: false
//	import:
//	  concurrency: 1
//	  pause: 50ms
//	  auto_create_securities: true
//	  skip_duplicates: true
//	assist:
//	  provider: gemini
//	  model: gemini-2.5-flash
//	  api_key_env: GEMINI_API_KEY
//	  requests_per_minute: 10
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/assist"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the content of the configuration file.
type Config struct {
	Database     string `yaml:"database"`
	DeliveryMode bool   `yaml:"delivery_mode"`
	Import       Import `yaml:"import"`
	Assist       Assist `yaml:"assist"`
}

// Import configures the wizard.
type Import struct {
	Concurrency          int64         `yaml:"concurrency"`
	Pause                time.Duration `yaml:"pause"`
	AutoCreateSecurities bool          `yaml:"auto_create_securities"`
	SkipDuplicates       bool          `yaml:"skip_duplicates"`
}

// Assist configures assisted extraction.
type Assist struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// Default returns the configuration used when there is no file.
func Default() Config {
	return Config{
		Database: "portfolio.db",
		Import: Import{
			Concurrency:          1,
			Pause:                importer.DefaultPause,
			AutoCreateSecurities: true,
			SkipDuplicates:       true,
		},
		Assist: Assist{
			Provider:          assist.Gemini,
			Model:             assist.DefaultModel,
			APIKeyEnv:         "GEMINI_API_KEY",
			RequestsPerMinute: 10,
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error. Variables of a .env file in the working directory are loaded into
// the environment first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cannot load .env file: %v", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values of c.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database cannot be empty"))
	}
	if c.Import.Concurrency != 1 {
		// documents are processed one at a time.
		errs = append(errs, fmt.Errorf("import.concurrency must be 1, got %d", c.Import.Concurrency))
	}
	if c.Import.Pause < 0 {
		errs = append(errs, fmt.Errorf("import.pause cannot be negative, got %s", c.Import.Pause))
	}
	if c.Assist.Provider != "" && !strings.EqualFold(c.Assist.Provider, assist.Gemini) {
		errs = append(errs, fmt.Errorf("assist.provider %q is not supported, use %q", c.Assist.Provider, assist.Gemini))
	}
	if c.Assist.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("assist.requests_per_minute cannot be negative, got %d", c.Assist.RequestsPerMinute))
	}
	return errors.Join(errs...)
}

// Settings returns the wizard settings.
func (c Config) Settings() importer.Settings {
	return importer.Settings{
		DeliveryMode:         c.DeliveryMode,
		AutoCreateSecurities: c.Import.AutoCreateSecurities,
		SkipDuplicates:       c.Import.SkipDuplicates,
	}
}

// Queue returns the queue documents are processed with.
func (c Config) Queue() *importer.Queue {
	return importer.NewQueue(c.Import.Concurrency, c.Import.Pause)
}

// Provider returns the assisted extraction provider, with the API key read
// from the environment.
func (c Config) Provider() importer.ProviderConfig {
	return importer.ProviderConfig{
		Provider: c.Assist.Provider,
		Model:    c.Assist.Model,
		APIKey:   os.Getenv(c.Assist.APIKeyEnv),
	}
}
