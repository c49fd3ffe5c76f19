package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/airline-rank-bot/internal/standings"
)

//go:embed default_roster.yaml
var defaultRoster []byte

// LoadRoster reads the roster YAML at path, or the embedded default when path
// is empty.
func LoadRoster(path string) (standings.Roster, error) {
	data := defaultRoster
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return standings.Roster{}, fmt.Errorf("roster: read file: %w", err)
		}
	}
	return ParseRoster(data)
}

// ParseRoster decodes and validates roster YAML.
func ParseRoster(data []byte) (standings.Roster, error) {
	var r standings.Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return standings.Roster{}, fmt.Errorf("roster: parse yaml: %w", err)
	}
	if r.Policy == "" {
		r.Policy = standings.DisplayAll
	}
	if err := validateRoster(r); err != nil {
		return standings.Roster{}, fmt.Errorf("roster: %w", err)
	}
	return r, nil
}

func validateRoster(r standings.Roster) error {
	if len(r.AirlineIDs) == 0 {
		return fmt.Errorf("airlines must not be empty")
	}
	switch r.Policy {
	case standings.DisplayAll, standings.DisplayAboveReference:
	default:
		return fmt.Errorf("unknown display_policy %q", r.Policy)
	}

	seen := make(map[int]bool, len(r.AirlineIDs))
	for i, id := range r.AirlineIDs {
		if id <= 0 {
			return fmt.Errorf("airlines[%d]: id must be positive", i)
		}
		if seen[id] {
			return fmt.Errorf("airlines[%d]: duplicate id %d", i, id)
		}
		seen[id] = true
	}
	if !seen[r.ReferenceID] {
		return fmt.Errorf("reference_id %d is not in airlines", r.ReferenceID)
	}
	return nil
}
