// Package config loads the server configuration from defaults, an optional
// TOML file, the environment and command line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultAPIURL   = "https://sandbox-api.piste.gouv.fr/dila/legifrance/lf-engine-app"
	DefaultTokenURL = "https://sandbox-oauth.gouv.fr/api/oauth/token"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the full server configuration.
type Config struct {
	Legifrance Legifrance `koanf:"legifrance"`
	Server     Server     `koanf:"server"`
	RateLimit  RateLimit  `koanf:"ratelimit"`
	Log        Log        `koanf:"log"`
}

// Legifrance holds the API connection settings. Either Token or the client
// credentials must be set.
type Legifrance struct {
	APIURL       string        `koanf:"api_url" validate:"required,url"`
	TokenURL     string        `koanf:"token_url" validate:"required_without=Token,omitempty,url"`
	ClientID     string        `koanf:"client_id" validate:"required_without=Token"`
	ClientSecret string        `koanf:"client_secret" validate:"required_without=Token"`
	Token        string        `koanf:"token"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Server selects the MCP transport.
type Server struct {
	Transport string `koanf:"transport" validate:"oneof=stdio http"`
	Addr      string `koanf:"addr" validate:"required_if=Transport http"`
	APIKey    string `koanf:"api_key"`
}

// RateLimit bounds tool calls per period.
type RateLimit struct {
	Calls  int           `koanf:"calls" validate:"gte=1"`
	Period time.Duration `koanf:"period" validate:"gt=0"`
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level" validate:"required"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Options tells Load where to read from.
type Options struct {
	// File is an optional TOML file. Empty means no file.
	File string
	// Overrides are flattened keys ("server.transport") applied last.
	Overrides map[string]any
}

func defaults() map[string]any {
	return map[string]any{
		"legifrance.api_url":   DefaultAPIURL,
		"legifrance.token_url": DefaultTokenURL,
		"legifrance.timeout":   "30s",
		"server.transport":     TransportStdio,
		"server.addr":          ":8080",
		"ratelimit.calls":      5,
		"ratelimit.period":     "1s",
		"log.level":            "INFO",
		"log.format":           "text",
	}
}

// envPrefixes maps environment variable prefixes to configuration sections.
var envPrefixes = []struct {
	prefix  string
	section string
}{
	{"LEGIFRANCE_", "legifrance"},
	{"MCP_SERVER_", "server"},
	{"RATELIMIT_", "ratelimit"},
	{"LOG_", "log"},
}

// envKey maps LEGIFRANCE_CLIENT_ID to legifrance.client_id. Unknown
// variables map to "" and are ignored.
func envKey(name string) string {
	for _, p := range envPrefixes {
		if rest, ok := strings.CutPrefix(name, p.prefix); ok && rest != "" {
			return p.section + "." + strings.ToLower(rest)
		}
	}
	return ""
}

// hostPortAddr joins server.host and server.port (MCP_SERVER_HOST and
// MCP_SERVER_PORT) into a listen address. MCP_SERVER_ADDR takes precedence.
func hostPortAddr(k *koanf.Koanf) (string, bool) {
	if _, ok := os.LookupEnv("MCP_SERVER_ADDR"); ok {
		return "", false
	}
	host, port := k.String("server.host"), k.String("server.port")
	if host == "" && port == "" {
		return "", false
	}
	if port == "" {
		port = "8080"
	}
	return net.JoinHostPort(host, port), true
}

// Load builds and validates the configuration.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", opts.File, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if addr, ok := hostPortAddr(k); ok {
		if err := k.Set("server.addr", addr); err != nil {
			return nil, fmt.Errorf("set server address: %w", err)
		}
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
