// Package catalog embeds the default tracker templates and achievements.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed trackers.yaml
	trackersYAML []byte

	//go:embed achievements.yaml
	achievementsYAML []byte
)

// Trackers returns the tracker templates in catalog order.
func Trackers() ([]domain.TrackerTemplate, error) {
	var templates []domain.TrackerTemplate
	if err := yaml.Unmarshal(trackersYAML, &templates); err != nil {
		return nil, fmt.Errorf("catalog: parse trackers: %w", err)
	}
	return templates, nil
}

// Achievements returns the default achievement catalog.
func Achievements() ([]*domain.Achievement, error) {
	var achievements []*domain.Achievement
	if err := yaml.Unmarshal(achievementsYAML, &achievements); err != nil {
		return nil, fmt.Errorf("catalog: parse achievements: %w", err)
	}
	for _, a := range achievements {
		if a.ID == "" || len(a.Requirement.Rules) == 0 {
			return nil, fmt.Errorf("catalog: achievement %q has no id or rules", a.Title)
		}
	}
	return achievements, nil
}

// Template looks up a tracker template by id.
func Template(templates []domain.TrackerTemplate, id string) (domain.TrackerTemplate, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return domain.TrackerTemplate{}, false
}

// TrackerSpec converts a template into the spec used to create a tracker.
func TrackerSpec(t domain.TrackerTemplate) domain.TrackerSpec {
	return domain.TrackerSpec{
		Name:      t.Name,
		Category:  strings.ToLower(t.Category),
		Type:      domain.TrackerTypeCount,
		Target:    t.Target,
		Unit:      t.Unit,
		Frequency: t.Frequency,
		Icon:      t.Icon,
		IsOngoing: true,
	}
}
