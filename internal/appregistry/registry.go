// Package appregistry provides a static human-readable-name-to-package-id
// mapping used by Action.Launch and the external CLI/UI's app picker.
package appregistry

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
)

//go:embed apps.json
var defaultAppsFS embed.FS

// AppEntry is one row of the registry: a canonical display name, a set of
// aliases (localized labels and common alternate spellings), and the
// Android package id it resolves to.
type AppEntry struct {
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases,omitempty"`
	PackageID string   `json:"packageId"`
}

type appsFile struct {
	Apps []AppEntry `json:"apps"`
}

// Registry is a process-wide, immutable-after-load name -> package id
// lookup. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]AppEntry
	entries []AppEntry
	logger  *logger.Logger
}

// New creates an empty Registry.
func New(log *logger.Logger) *Registry {
	return &Registry{byName: map[string]AppEntry{}, logger: log}
}

// LoadDefaults loads the registry embedded at build time (apps.json).
func (r *Registry) LoadDefaults() error {
	data, err := defaultAppsFS.ReadFile("apps.json")
	if err != nil {
		return fmt.Errorf("read embedded apps.json: %w", err)
	}
	return r.loadJSON(data)
}

// LoadFromFile replaces the registry contents with data, the raw JSON
// contents of a registry file in the same {"apps": [...]} shape as the
// embedded default. It does not read a file itself.
func (r *Registry) LoadFromFile(data []byte) error {
	return r.loadJSON(data)
}

func (r *Registry) loadJSON(data []byte) error {
	var file appsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse app registry: %w", err)
	}

	byName := make(map[string]AppEntry, len(file.Apps)*2)
	for _, entry := range file.Apps {
		byName[normalize(entry.Name)] = entry
		for _, alias := range entry.Aliases {
			byName[normalize(alias)] = entry
		}
	}

	r.mu.Lock()
	r.byName = byName
	r.entries = file.Apps
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("app registry loaded", zap.Int("count", len(file.Apps)))
	}
	return nil
}

// Resolve maps a human-provided app name (case/whitespace-insensitive,
// matched against both canonical names and aliases) to a package id.
func (r *Registry) Resolve(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byName[normalize(name)]
	if !ok {
		return "", apperrors.UnknownAppErr(name)
	}
	return entry.PackageID, nil
}

// ListSupported returns every registered app entry, for the external
// CLI/UI's app picker.
func (r *Registry) ListSupported() []AppEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AppEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
