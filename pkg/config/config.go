package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/subosito/gotenv"
)

// ErrInvalid is returned when the environment does not describe a runnable server.
var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultServerName    = "demo-server"
	DefaultServerVersion = "1.0.0"
	DefaultOutputDir     = "output"
	DotEnvFile           = ".env"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port          int    `validate:"required,min=1,max=65535"`
	Host          string `validate:"required"`
	RemoteURL     string `validate:"omitempty,url"`
	BaseURL       string `validate:"omitempty,url"`
	ServerName    string `validate:"required"`
	ServerVersion string `validate:"required"`
	OutputDir     string `validate:"required"`
	WidgetsFile   string
	AuthToken     string
	Stateless     bool
}

// Load reads the configuration from the environment, after loading .env when present.
// Variables already set in the environment win over the .env file.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromEnv(os.Getenv)
}

// LoadDotEnv loads .env from the working directory into the environment, if it exists.
func LoadDotEnv() error {
	if _, err := os.Stat(DotEnvFile); err != nil {
		return nil
	}
	if err := gotenv.Load(DotEnvFile); err != nil {
		return fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}
	return nil
}

// FromEnv builds a Config from a lookup function, typically os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Host:          getenv("HOST"),
		RemoteURL:     getenv("REMOTE_URL"),
		BaseURL:       getenv("BASE_URL"),
		ServerName:    orDefault(getenv("MCP_SERVER_NAME"), DefaultServerName),
		ServerVersion: orDefault(getenv("MCP_SERVER_VERSION"), DefaultServerVersion),
		OutputDir:     orDefault(getenv("MCP_WIDGETS_OUTPUT"), DefaultOutputDir),
		WidgetsFile:   getenv("MCP_WIDGETS_CONFIG"),
		AuthToken:     getenv("MCP_WIDGETS_AUTH_TOKEN"),
		Stateless:     getenv("MCP_WIDGETS_STATELESS") == "1",
	}

	if raw := getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: PORT %q is not a number", ErrInvalid, raw)
		}
		cfg.Port = port
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that a Config has all required fields and valid values.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// PathPrefix returns the path component of REMOTE_URL without its trailing slash.
// Endpoints are mounted under this prefix so the server can live behind a path-routing proxy.
func (c Config) PathPrefix() string {
	return URLPath(c.RemoteURL)
}

// MCPPath is the streamable HTTP endpoint.
func (c Config) MCPPath() string {
	return c.PathPrefix() + "/mcp"
}

// AssetsPath is the URL prefix under which built assets are served.
func (c Config) AssetsPath() string {
	return c.PathPrefix() + "/assets/"
}

// Origin is the externally visible origin: REMOTE_URL's origin, or localhost on the configured port.
func (c Config) Origin() string {
	if c.RemoteURL != "" {
		if u, err := url.Parse(c.RemoteURL); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AssetsBaseURL is the absolute URL prefix the build pipeline writes into HTML shells.
// BASE_URL wins; otherwise REMOTE_URL; otherwise localhost on PORT when known.
func AssetsBaseURL(getenv func(string) string) string {
	if base := getenv("BASE_URL"); base != "" {
		return strings.TrimSuffix(base, "/")
	}
	if remote := getenv("REMOTE_URL"); remote != "" {
		return strings.TrimSuffix(remote, "/")
	}
	if port := getenv("PORT"); port != "" {
		return "http://localhost:" + port
	}
	return ""
}

// URLPath returns the path of raw without a trailing slash, or "" when raw is empty or unparsable.
func URLPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
