package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the operator-editable settings file.
//
//	lobby:
//	  challenge_ttl: 30s
//	  scan_interval: 1s
//	games:
//	  pong:
//	    ball_speed: 7
//	    max_score: 7
//
// Game sections are partial profiles: only the keys present override the
// built-in defaults of that game type.
type Settings struct {
	Lobby LobbySettings        `yaml:"lobby"`
	Games map[string]yaml.Node `yaml:"games"`
}

// LobbySettings tunes the session lifecycle timings.
type LobbySettings struct {
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`
	ScanInterval time.Duration `yaml:"scan_interval"`
}

// LoadSettings reads and parses a settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return ParseSettings(data)
}

// ParseSettings parses settings from YAML bytes.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: unmarshal settings: %w", err)
	}
	for game, node := range s.Games {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config: games.%s must be a mapping", game)
		}
	}
	return &s, nil
}

// Override decodes the game section (if any) on top of dst, leaving keys that
// are not present in the file untouched. A nil Settings overrides nothing.
func (s *Settings) Override(game string, dst any) error {
	if s == nil {
		return nil
	}
	node, ok := s.Games[game]
	if !ok {
		return nil
	}
	if err := node.Decode(dst); err != nil {
		return fmt.Errorf("config: decode games.%s: %w", game, err)
	}
	return nil
}

// SettingsStore holds the current settings and allows lock-free swapping on reload.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

// NewSettingsStore creates a store holding s (may be nil).
func NewSettingsStore(s *Settings) *SettingsStore {
	st := &SettingsStore{}
	st.current.Store(s)
	return st
}

// Load returns the current settings. May be nil when no file is configured.
func (st *SettingsStore) Load() *Settings {
	return st.current.Load()
}

// Store replaces the current settings.
func (st *SettingsStore) Store(s *Settings) {
	st.current.Store(s)
}

// Override implements the profile override lookup against the current settings.
func (st *SettingsStore) Override(game string, dst any) error {
	return st.Load().Override(game, dst)
}
