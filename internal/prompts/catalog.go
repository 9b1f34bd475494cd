// Package prompts holds the catalog of named translation instructions.
// Keys are referenced by route configuration; the catalog guarantees every
// lookup yields usable instruction text.
package prompts

import (
	"log/slog"
	"os"
	"sync"

	"github.com/titanous/json5"
)

// DefaultKey is the catalog entry used when a route names no prompt or an
// unknown one.
const DefaultKey = "default"

// builtinDefault keeps the service usable with no prompt file at all.
const builtinDefault = "Translate the following message into English. " +
	"Preserve the meaning, tone, and formatting. " +
	"Output only the translation, with no commentary."

// Catalog maps prompt keys to instruction text. Lookups never fail: unknown
// keys fall back to the default entry, with a warning logged once per key.
type Catalog struct {
	entries map[string]string

	mu     sync.Mutex
	warned map[string]struct{}
}

// New builds a catalog from explicit entries, mainly for tests. A missing
// default entry is filled with the builtin.
func New(entries map[string]string) *Catalog {
	c := &Catalog{
		entries: make(map[string]string, len(entries)+1),
		warned:  make(map[string]struct{}),
	}
	for k, v := range entries {
		c.entries[k] = v
	}
	if c.entries[DefaultKey] == "" {
		c.entries[DefaultKey] = builtinDefault
	}
	return c
}

// Load reads a prompt catalog from a JSON5 file of key→text pairs. Prompt
// problems never stop the service: a missing or unreadable or unparsable
// file logs a warning and the catalog serves only the builtin default.
func Load(path string) *Catalog {
	if path == "" {
		return New(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("prompt file not found, using builtin default", "path", path)
		} else {
			slog.Warn("prompt file unreadable, using builtin default", "path", path, "error", err)
		}
		return New(nil)
	}

	entries := make(map[string]string)
	if err := json5.Unmarshal(data, &entries); err != nil {
		slog.Warn("prompt file unparsable, using builtin default", "path", path, "error", err)
		return New(nil)
	}

	slog.Info("prompt catalog loaded", "path", path, "entries", len(entries))
	return New(entries)
}

// Lookup returns the instruction text for a key. An empty key means the
// default; an unknown key warns once and serves the default.
func (c *Catalog) Lookup(key string) string {
	if key == "" {
		key = DefaultKey
	}
	if text, ok := c.entries[key]; ok && text != "" {
		return text
	}
	c.warnOnce(key)
	return c.entries[DefaultKey]
}

// Len returns the number of catalog entries, the builtin default included.
func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) warnOnce(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.warned[key]; seen {
		return
	}
	c.warned[key] = struct{}{}
	slog.Warn("unknown prompt key, falling back to default", "key", key)
}
