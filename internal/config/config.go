// Package config defines the service configuration and its three-layer
// precedence: built-in defaults, then the JSON5 config file, then
// LINGORELAY_* environment variables.
package config

import "time"

// Config is the root configuration object.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Translator TranslatorConfig `json:"translator"`
	Routing    RoutingConfig    `json:"routing"`
	Prompts    PromptsConfig    `json:"prompts"`
	Server     ServerConfig     `json:"server"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
}

// TelegramConfig configures the messaging network adapter.
type TelegramConfig struct {
	Token  string `json:"token"`
	APIURL string `json:"api_url,omitempty"` // alternative Bot API server; empty for the default
}

// TranslatorConfig configures the OpenAI-compatible translation backend.
type TranslatorConfig struct {
	APIKey      string  `json:"api_key"`
	APIBase     string  `json:"api_base"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// RoutingConfig carries both configuration shapes. When Routes is non-empty
// the multi-channel shape wins and the legacy fields are ignored.
type RoutingConfig struct {
	// Routes holds "sourceID:topicID:promptKey" triples. All three fields
	// are required; malformed entries are skipped during route resolution.
	Routes []string `json:"routes"`
	// DestGroupID is the forum group all multi-channel routes post into.
	DestGroupID int64 `json:"dest_group_id"`

	// Legacy single-channel shape: one source, one destination, each either
	// a numeric chat ID or an @username locator resolved at startup.
	Source string `json:"source,omitempty"`
	Dest   string `json:"dest,omitempty"`

	// AlbumWindowMS is the album quiescence window in milliseconds.
	AlbumWindowMS int `json:"album_window_ms"`
}

// AlbumWindow returns the configured quiescence window as a duration.
func (r RoutingConfig) AlbumWindow() time.Duration {
	return time.Duration(r.AlbumWindowMS) * time.Millisecond
}

// PromptsConfig locates the prompt catalog file.
type PromptsConfig struct {
	File string `json:"file"`
}

// ServerConfig configures the health endpoint listener.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled"`
	Endpoint    string            `json:"endpoint"`
	Protocol    string            `json:"protocol"` // "grpc" or "http"
	Insecure    bool              `json:"insecure"`
	ServiceName string            `json:"service_name"`
	Headers     map[string]string `json:"headers,omitempty"`
}
