// Package config loads process configuration from FOLIO_* environment
// variables and the site description from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read once at startup. Every credential carries a placeholder
// default; a value still equal to its placeholder means "not configured".
type Config struct {
	HTTPAddr  string `env:"FOLIO_HTTP_ADDR" envDefault:":8080"`
	ConfigDir string `env:"FOLIO_CONFIG_DIR"`
	DBPath    string `env:"FOLIO_DB_PATH"`
	SiteFile  string `env:"FOLIO_SITE_FILE"`

	SessionSecret string        `env:"FOLIO_SESSION_SECRET" envDefault:"change-me"`
	SessionTTL    time.Duration `env:"FOLIO_SESSION_TTL" envDefault:"24h"`

	OwnerName  string `env:"FOLIO_OWNER_NAME"`
	OwnerEmail string `env:"FOLIO_OWNER_EMAIL"`
	// NotifyOwner sends the owner an email for every new contact submission.
	NotifyOwner bool `env:"FOLIO_NOTIFY_OWNER" envDefault:"true"`

	Store    StoreConfig    `envPrefix:"FOLIO_STORE_"`
	Delivery DeliveryConfig `envPrefix:"FOLIO_"`
	Log      LoggingConfig  `envPrefix:"FOLIO_LOG_"`
}

// StoreConfig points at the hosted row store. Left at placeholders, the local
// SQLite database is used instead.
type StoreConfig struct {
	URL     string `env:"URL" envDefault:"https://your-project.supabase.co"`
	AnonKey string `env:"ANON_KEY" envDefault:"your_anon_key"`
}

const (
	PlaceholderStoreURL     = "https://your-project.supabase.co"
	PlaceholderStoreAnonKey = "your_anon_key"
)

// Remote reports whether a hosted row store is configured.
func (s StoreConfig) Remote() bool {
	return s.URL != "" && s.URL != PlaceholderStoreURL && s.AnonKey != "" && s.AnonKey != PlaceholderStoreAnonKey
}

type DeliveryConfig struct {
	Web3FormsAccessKey string `env:"WEB3FORMS_ACCESS_KEY" envDefault:"your_web3forms_key"`
	Web3FormsEndpoint  string `env:"WEB3FORMS_ENDPOINT" envDefault:"https://api.web3forms.com/submit"`

	EmailJSServiceID  string `env:"EMAILJS_SERVICE_ID" envDefault:"your_service_id"`
	EmailJSTemplateID string `env:"EMAILJS_TEMPLATE_ID" envDefault:"your_template_id"`
	EmailJSPublicKey  string `env:"EMAILJS_PUBLIC_KEY" envDefault:"your_public_key"`
	EmailJSEndpoint   string `env:"EMAILJS_ENDPOINT" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`

	// Gmail sends through the Gmail API with the token cached by `folio gmail-auth`.
	Gmail bool `env:"GMAIL"`

	DemoMode  bool          `env:"DEMO_MODE"`
	DemoDelay time.Duration `env:"DEMO_DELAY" envDefault:"2s"`
	Timeout   time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment and fills path defaults under the user's
// config directory.
func Load() (Config, error) { return LoadIn("") }

// LoadIn is Load with dir taking precedence over FOLIO_CONFIG_DIR.
func LoadIn(dir string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if dir != "" {
		cfg.ConfigDir = dir
	}
	if cfg.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("determine home directory: %w", err)
		}
		cfg.ConfigDir = filepath.Join(home, ".config", "folio")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.ConfigDir, "folio.db")
	}
	if cfg.Log.FileDestination == "" {
		cfg.Log.FileDestination = filepath.Join(cfg.ConfigDir, "folio.log")
	}
	return cfg, nil
}
