package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MinPlayers mirrors the smallest table a game accepts.
const MinPlayers = 3

// PlayerSpec is one seat of the roster file.
type PlayerSpec struct {
	Name     string `yaml:"name"`
	Female   bool   `yaml:"female"`
	Endpoint string `yaml:"endpoint"`
}

// Roster is the parsed players file.
type Roster struct {
	Players []PlayerSpec `yaml:"players"`
}

// LoadRoster reads and validates a YAML roster.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster decodes and validates roster YAML.
func ParseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: parsing roster: %w", err)
	}
	if len(r.Players) < MinPlayers {
		return nil, fmt.Errorf("config: roster needs at least %d players, got %d", MinPlayers, len(r.Players))
	}
	seen := make(map[string]bool, len(r.Players))
	for i, p := range r.Players {
		if p.Name == "" {
			return nil, fmt.Errorf("config: player %d has no name", i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("config: duplicate player name %q", p.Name)
		}
		seen[p.Name] = true
		if p.Endpoint == "" {
			return nil, fmt.Errorf("config: player %q has no endpoint", p.Name)
		}
	}
	return &r, nil
}
