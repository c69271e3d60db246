package portal

import (
	"fmt"
	"strings"
)

// providerAliases maps common portal spellings to canonical provider keys.
// Lookup is by containment on the lowercased name, mirroring how source
// spreadsheets refer to distributors.
var providerAliases = []struct {
	match string
	key   string
}{
	{"suizo", "suizo"},
	{"monroe", "monroe"},
	{"masa", "monroe"},
	{"del sud", "del_sud"},
	{"delsud", "del_sud"},
}

// NormalizeProvider maps a raw provider name to its canonical key. Names
// missing from the alias table are normalized (lowercased, spaces to
// underscores) rather than rejected, so unknown providers still group
// deterministically.
func NormalizeProvider(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, alias := range providerAliases {
		if strings.Contains(lower, alias.match) {
			return alias.key
		}
	}
	return strings.ReplaceAll(lower, " ", "_")
}

// Factory builds a ready-to-use portal client.
type Factory func(deps Deps) (Client, error)

// Registry resolves provider keys to portal client factories.
type Registry struct {
	factories  map[string]Factory
	defaultKey string
	deps       Deps
}

// NewRegistry creates an empty registry bound to the shared dependencies.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		deps:      deps,
	}
}

// Register adds a factory under a canonical provider key. The first
// registered factory becomes the fallback for unrecognized providers.
func (r *Registry) Register(key string, f Factory) {
	if r.defaultKey == "" {
		r.defaultKey = key
	}
	r.factories[key] = f
}

// Providers returns the canonical keys with a registered factory.
func (r *Registry) Providers() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	return keys
}

// Create builds a client for the given provider name. Unrecognized names
// fall back to the default factory, matching how the source system treated
// unknown distributors.
func (r *Registry) Create(provider string) (Client, error) {
	key := NormalizeProvider(provider)
	f, ok := r.factories[key]
	if !ok {
		if r.defaultKey == "" {
			return nil, fmt.Errorf("no portal client registered for provider %q", provider)
		}
		f = r.factories[r.defaultKey]
	}
	return f(r.deps)
}
