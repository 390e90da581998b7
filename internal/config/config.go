package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"prizedraw/internal/models"
)

// AppConfig describes everything one draw needs from the environment.
type AppConfig struct {
	ClientID     string `envconfig:"CLIENT_ID" validate:"required"`
	ClientSecret string `envconfig:"CLIENT_SECRET" validate:"required"`
	BearerToken  string `envconfig:"BEARER_TOKEN" validate:"required"`

	PostURL    string `envconfig:"TWITTER_POST_URL" validate:"required,url"`
	MaxWinners int    `envconfig:"MAX_WINNERS" default:"1" validate:"min=0"`

	RedirectAddr string        `envconfig:"REDIRECT_ADDR" default:"localhost:8000" validate:"required,hostname_port"`
	ResultsAddr  string        `envconfig:"RESULTS_ADDR" default:"localhost:8001" validate:"required,hostname_port"`
	AuthTimeout  time.Duration `envconfig:"AUTH_TIMEOUT" default:"3m" validate:"gt=0"`

	API struct {
		BaseURL  string  `envconfig:"API_BASE_URL" default:"https://api.twitter.com" validate:"required,url"`
		AuthURL  string  `envconfig:"AUTH_URL" default:"https://twitter.com/i/oauth2/authorize" validate:"required,url"`
		TokenURL string  `envconfig:"TOKEN_URL" default:"https://api.twitter.com/2/oauth2/token" validate:"required,url"`
		RPS      float64 `envconfig:"API_RPS" default:"1" validate:"gt=0"`
	} `envconfig:""`

	LogFile string `envconfig:"LOG_FILE"`
}

// RedirectURL is the redirect URI registered with the platform app.
func (c AppConfig) RedirectURL() string {
	return "http://" + c.RedirectAddr
}

// Load reads an optional .env file, then the process environment.
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, models.NewConfigError("dotenv", "cannot read .env", err)
	}
	return FromEnv()
}

// FromEnv fills and validates AppConfig from the environment only.
func FromEnv() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, models.NewConfigError("env", "cannot parse environment", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, models.NewConfigError("invalid", "invalid configuration", err)
	}
	return cfg, nil
}

// DrawConfig derives the draw input, resolving the post id from the URL.
func (c AppConfig) DrawConfig() (models.DrawConfig, error) {
	if c.MaxWinners < 0 {
		return models.DrawConfig{}, models.NewConfigError("max_winners", "MAX_WINNERS must be non-negative", nil)
	}
	id, err := ParsePostID(c.PostURL)
	if err != nil {
		return models.DrawConfig{}, err
	}
	return models.DrawConfig{PostID: id, MaxWinners: c.MaxWinners}, nil
}

// ParsePostID takes the last path segment of a post URL such as
// https://x.com/someone/status/1234567890?s=20 and checks it is numeric.
func ParsePostID(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", models.NewConfigError("post_url", "no post URL provided, set TWITTER_POST_URL", nil)
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", models.NewConfigError("post_url", "malformed post URL", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" || strings.TrimLeft(id, "0123456789") != "" {
		return "", models.NewConfigError("post_url", "post URL does not end with a numeric post id", nil)
	}
	return id, nil
}
