package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags read by the engagement layer.
const (
	// RelatedCache serves related-content lists through Redis. Defaults on.
	RelatedCache = "related_cache"
	// LiveThreads publishes comment events to websocket subscribers. Defaults on.
	LiveThreads = "live_threads"
	// ViewCounting bumps view_count on content reads. Defaults on.
	ViewCounting = "view_counting"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "related_cache=off,live_threads=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		value := normalize(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(name string, userID uint) bool {
	return m.EnabledDefault(name, userID, false)
}

// EnabledDefault is Enabled, except an unset or unparsable flag evaluates to fallback.
func (m *Manager) EnabledDefault(name string, userID uint, fallback bool) bool {
	if m == nil {
		return fallback
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return fallback
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if strings.HasSuffix(value, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil {
			return fallback
		}
		if pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if userID == 0 {
			return false
		}
		return rolloutBucket(name, userID) < pct
	}

	return fallback
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user, including the
// built-in flags at their defaults when unset.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := map[string]bool{
		RelatedCache: m.EnabledDefault(RelatedCache, userID, true),
		LiveThreads:  m.EnabledDefault(LiveThreads, userID, true),
		ViewCounting: m.EnabledDefault(ViewCounting, userID, true),
	}
	for name := range m.Raw() {
		if _, builtin := out[name]; builtin {
			continue
		}
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
