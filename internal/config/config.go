// Package config loads Mixtape Studio settings from an optional TOML file and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// RecommendationService selects which backend produces playlist recommendations.
type RecommendationService string

const (
	ServiceSpotify      RecommendationService = "spotify"
	ServiceListenBrainz RecommendationService = "listenbrainz"
)

// ErrUnknownService is returned when a recommendation service name is not recognized.
var ErrUnknownService = errors.New("unknown recommendation service")

// ParseRecommendationService converts a name such as "listenbrainz" into a RecommendationService.
func ParseRecommendationService(s string) (RecommendationService, error) {
	switch RecommendationService(strings.ToLower(strings.TrimSpace(s))) {
	case ServiceSpotify:
		return ServiceSpotify, nil
	case ServiceListenBrainz:
		return ServiceListenBrainz, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownService, s)
}

// UnmarshalText lets the service be decoded straight from TOML.
func (s *RecommendationService) UnmarshalText(text []byte) error {
	parsed, err := ParseRecommendationService(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MissingSettingError names a required setting that has no value.
type MissingSettingError struct {
	Setting string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("missing required setting %s", e.Setting)
}

// Config is the full application configuration.
type Config struct {
	Addr                  string                `toml:"addr"`
	LogLevel              string                `toml:"log_level"`
	DatabaseURL           string                `toml:"database_url"`
	SessionSecret         string                `toml:"session_secret"`
	RedirectBaseURL       string                `toml:"oauth_redirect_base_url"`
	RecommendationService RecommendationService `toml:"recommendation_service"`
	RequestTimeoutSeconds int                   `toml:"request_timeout_seconds"`

	Spotify      SpotifyConfig      `toml:"spotify"`
	ListenBrainz ListenBrainzConfig `toml:"listenbrainz"`
	MusicBrainz  MusicBrainzConfig  `toml:"musicbrainz"`
	Redis        RedisConfig        `toml:"redis"`
}

// SpotifyConfig holds the OAuth client registration.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// ListenBrainzConfig configures the LB Radio client.
type ListenBrainzConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// MusicBrainzConfig configures recording lookups.
type MusicBrainzConfig struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	DefaultPauseMS int    `toml:"default_pause_ms"`
}

// RedisConfig enables the Redis recording cache when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Default returns the configuration described by the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded default config: %v", err))
	}
	return &cfg
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path or a file that does not exist leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := []struct {
		env string
		dst *string
	}{
		{"ADDR", &c.Addr},
		{"LOG_LEVEL", &c.LogLevel},
		{"DATABASE_URL", &c.DatabaseURL},
		{"SESSION_SECRET", &c.SessionSecret},
		{"OAUTH_REDIRECT_BASE_URL", &c.RedirectBaseURL},
		{"SPOTIFY_CLIENT_ID", &c.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret},
		{"LISTENBRAINZ_API_KEY", &c.ListenBrainz.APIKey},
		{"REDIS_ADDR", &c.Redis.Addr},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("RECOMMENDATION_SERVICE"); v != "" {
		svc, err := ParseRecommendationService(v)
		if err != nil {
			return fmt.Errorf("reading RECOMMENDATION_SERVICE: %w", err)
		}
		c.RecommendationService = svc
	}
	return nil
}

// Validate reports the first required setting that is empty.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"SPOTIFY_CLIENT_ID", c.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", c.Spotify.ClientSecret},
		{"DATABASE_URL", c.DatabaseURL},
		{"SESSION_SECRET", c.SessionSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &MissingSettingError{Setting: r.name}
		}
	}
	if c.RecommendationService == "" {
		return &MissingSettingError{Setting: "RECOMMENDATION_SERVICE"}
	}
	return nil
}

// RequestTimeout is the timeout applied to every outbound HTTP client.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MusicBrainzDefaultPause is the pacing used when a response carries no quota headers.
func (c *Config) MusicBrainzDefaultPause() time.Duration {
	return time.Duration(c.MusicBrainz.DefaultPauseMS) * time.Millisecond
}

// CallbackURL is the OAuth redirect URI registered with Spotify.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.RedirectBaseURL, "/") + "/oauth-callback"
}
