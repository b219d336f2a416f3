package common

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	Domain        string `env:"DOMAIN" envDefault:"http://localhost:8080"`
	SessionSecret string `env:"SESSION_SECRET,required"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	SqliteDB    string `env:"SQLITE_DB,required"`
	AnalyticsDB string `env:"ANALYTICS_DB"`

	CacheDir    string        `env:"CACHE_DIR" envDefault:"cache"`
	CacheMaxAge time.Duration `env:"CACHE_MAX_AGE" envDefault:"10m"`

	SiteTitle string `env:"SITE_TITLE" envDefault:"Quiet Time"`
	// SiteIntro is markdown shown when there is nothing to read yet.
	SiteIntro string `env:"SITE_INTRO"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// LocalAuthors holds "email=bcrypt-hash" pairs separated by ";".
	LocalAuthors string `env:"LOCAL_AUTHORS"`
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// LoadConfig reads the given .env files when they exist, then parses the
// environment. Variables already set in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.Domain + "/auth/google/callback"
	}
	return &cfg, nil
}
