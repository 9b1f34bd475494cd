package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Translator: TranslatorConfig{
			APIBase:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Routing: RoutingConfig{
			AlbumWindowMS: 1000,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 18791,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "lingorelay",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is fine; env-only deployments are supported.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("LINGORELAY_TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("LINGORELAY_TELEGRAM_API_URL", &c.Telegram.APIURL)

	envStr("LINGORELAY_TRANSLATOR_API_KEY", &c.Translator.APIKey)
	envStr("LINGORELAY_TRANSLATOR_API_BASE", &c.Translator.APIBase)
	envStr("LINGORELAY_TRANSLATOR_MODEL", &c.Translator.Model)

	// Routes from env are comma-separated triples.
	if v := os.Getenv("LINGORELAY_ROUTES"); v != "" {
		var routes []string
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				routes = append(routes, r)
			}
		}
		c.Routing.Routes = routes
	}
	if v := os.Getenv("LINGORELAY_DEST_GROUP_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Routing.DestGroupID = id
		}
	}
	envStr("LINGORELAY_SOURCE", &c.Routing.Source)
	envStr("LINGORELAY_DEST", &c.Routing.Dest)
	// Numeric aliases for the legacy pair.
	envStr("LINGORELAY_SOURCE_ID", &c.Routing.Source)
	envStr("LINGORELAY_DEST_ID", &c.Routing.Dest)

	envStr("LINGORELAY_PROMPTS_FILE", &c.Prompts.File)

	envStr("LINGORELAY_HOST", &c.Server.Host)
	if v := os.Getenv("LINGORELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	envStr("LINGORELAY_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("LINGORELAY_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("LINGORELAY_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("LINGORELAY_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("LINGORELAY_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// Validate checks the fields without which the service cannot start at all.
// Routing is validated separately once locators are resolved.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (LINGORELAY_TELEGRAM_TOKEN)")
	}
	if c.Translator.APIKey == "" {
		return errors.New("translator API key is required (LINGORELAY_TRANSLATOR_API_KEY)")
	}
	return nil
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
