package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/worklist-service/internal/domain"
)

type rosterFile struct {
	Crew []domain.CrewMember `yaml:"crew"`
}

// LoadRoster builds the crew roster. When path is set the YAML file is the
// source of truth, otherwise names is used. Members without a phone number
// pick up <NAME>_PHONE from env.
func LoadRoster(path string, names []string, env func(string) string) ([]domain.CrewMember, error) {
	var members []domain.CrewMember

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read crew roster: %w", err)
		}
		var file rosterFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse crew roster %s: %w", path, err)
		}
		members = file.Crew
	} else {
		for _, name := range names {
			members = append(members, domain.CrewMember{Name: name})
		}
	}

	seen := make(map[string]bool, len(members))
	for i := range members {
		m := &members[i]
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, fmt.Errorf("crew roster entry %d has no name", i+1)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("crew roster lists %q twice", m.Name)
		}
		seen[m.Name] = true
		if m.Phone == "" && env != nil {
			m.Phone = strings.TrimSpace(env(strings.ToUpper(m.Name) + "_PHONE"))
		}
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("crew roster is empty")
	}
	return members, nil
}
