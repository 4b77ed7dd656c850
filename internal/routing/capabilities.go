// Package routing maps task categories and application types to the
// execution teams able to serve them, and estimates per-task durations.
package routing

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// DefaultTeam receives tasks no capability or application rule claims.
const DefaultTeam = "business_automation"

// Team describes one execution team's capacity profile.
type Team struct {
	Name               string   `yaml:"name" json:"name"`
	Capabilities       []string `yaml:"capabilities" json:"capabilities"`
	AvgResponseSeconds int      `yaml:"avg_response_seconds" json:"avg_response_seconds"`
	MaxConcurrent      int      `yaml:"max_concurrent" json:"max_concurrent"`
}

// CapabilityTable is the routing configuration: the team roster plus
// the category and application-type routing rules.
type CapabilityTable struct {
	Teams         []Team            `yaml:"teams" json:"teams"`
	CategoryTeams map[string]string `yaml:"category_teams" json:"category_teams"`
	AppTypeTeams  map[string]string `yaml:"app_type_teams" json:"app_type_teams"`
}

// DefaultCapabilityTable returns the built-in roster of the five
// product teams and their routing rules.
func DefaultCapabilityTable() *CapabilityTable {
	return &CapabilityTable{
		Teams: []Team{
			{
				Name:               "vision_computational",
				Capabilities:       []string{"computer_vision", "image_analysis", "object_detection"},
				AvgResponseSeconds: 30,
				MaxConcurrent:      10,
			},
			{
				Name:               "creative_design",
				Capabilities:       []string{"design_generation", "ui_design", "prototyping"},
				AvgResponseSeconds: 45,
				MaxConcurrent:      8,
			},
			{
				Name:               "business_automation",
				Capabilities:       []string{"workflow_automation", "process_optimization", "data_analysis"},
				AvgResponseSeconds: 60,
				MaxConcurrent:      15,
			},
			{
				Name:               "healthcare_specialists",
				Capabilities:       []string{"medical_ai", "patient_analysis", "clinical_workflows"},
				AvgResponseSeconds: 90,
				MaxConcurrent:      5,
			},
			{
				Name:               "marketing_creatives",
				Capabilities:       []string{"branding_ai", "content_creation", "campaign_design"},
				AvgResponseSeconds: 40,
				MaxConcurrent:      12,
			},
		},
		CategoryTeams: map[string]string{
			"analysis":    "business_automation",
			"development": "business_automation",
			"automation":  "business_automation",
			"design":      "creative_design",
			"content":     "marketing_creatives",
			"marketing":   "marketing_creatives",
			"vision":      "vision_computational",
			"medical":     "healthcare_specialists",
		},
		AppTypeTeams: map[string]string{
			"computer_vision":     "vision_computational",
			"design_generation":   "creative_design",
			"workflow_automation": "business_automation",
			"medical_ai":          "healthcare_specialists",
			"branding_ai":         "marketing_creatives",
		},
	}
}

// LoadCapabilityTable reads a capability table from a YAML file. Teams
// missing from the file keep no implicit defaults; callers wanting the
// built-in roster use DefaultCapabilityTable.
func LoadCapabilityTable(path string) (*CapabilityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to read capability table %s", path), err)
	}

	var table CapabilityTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to parse capability table %s", path), err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks the table's internal consistency: routing rules must
// reference teams that exist in the roster.
func (t *CapabilityTable) Validate() error {
	if len(t.Teams) == 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "capability table has no teams")
	}
	known := make(map[string]bool, len(t.Teams))
	for _, team := range t.Teams {
		if team.Name == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED, "capability table has a team without a name")
		}
		if known[team.Name] {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("duplicate team %s in capability table", team.Name))
		}
		if team.MaxConcurrent <= 0 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("team %s must allow at least one concurrent task", team.Name))
		}
		known[team.Name] = true
	}
	for category, team := range t.CategoryTeams {
		if !known[team] {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("category %s routes to unknown team %s", category, team))
		}
	}
	for appType, team := range t.AppTypeTeams {
		if !known[team] {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("app type %s routes to unknown team %s", appType, team))
		}
	}
	return nil
}

// Team returns the roster entry with the given name, or nil.
func (t *CapabilityTable) Team(name string) *Team {
	for i := range t.Teams {
		if t.Teams[i].Name == name {
			return &t.Teams[i]
		}
	}
	return nil
}

// TeamNames returns the roster names sorted alphabetically.
func (t *CapabilityTable) TeamNames() []string {
	names := make([]string, 0, len(t.Teams))
	for _, team := range t.Teams {
		names = append(names, team.Name)
	}
	sort.Strings(names)
	return names
}

// teamsByCapability returns team names offering the capability, in
// roster order.
func (t *CapabilityTable) teamsByCapability(capability string) []string {
	var names []string
	for _, team := range t.Teams {
		for _, c := range team.Capabilities {
			if c == capability {
				names = append(names, team.Name)
				break
			}
		}
	}
	return names
}
