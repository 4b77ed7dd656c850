package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

func TestMapCategoryToTeam(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		category string
		want     string
	}{
		{"analysis", "business_automation"},
		{"development", "business_automation"},
		{"design", "creative_design"},
		{"content", "marketing_creatives"},
		{"vision", "vision_computational"},
		{"medical", "healthcare_specialists"},
		{"unmapped", DefaultTeam},
		{"", DefaultTeam},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.MapCategoryToTeam(tt.category), "category %q", tt.category)
	}

	// Routing is a pure lookup: repeated calls agree.
	for i := 0; i < 3; i++ {
		assert.Equal(t, "creative_design", r.MapCategoryToTeam("design"))
	}
}

func TestDetermineBestTeam(t *testing.T) {
	r := NewRouter(nil)

	// Capability match wins over the app type rule.
	team := r.DetermineBestTeam([]string{"medical_ai"}, "design_generation")
	assert.Equal(t, "healthcare_specialists", team)

	// Unknown capabilities fall through to the app type.
	team = r.DetermineBestTeam([]string{"quantum_computing"}, "computer_vision")
	assert.Equal(t, "vision_computational", team)

	// Nothing matches: default team.
	team = r.DetermineBestTeam(nil, "unknown_app")
	assert.Equal(t, DefaultTeam, team)

	// First listed capability with a provider decides.
	team = r.DetermineBestTeam([]string{"nope", "branding_ai", "computer_vision"}, "")
	assert.Equal(t, "marketing_creatives", team)
}

func TestEstimateDuration(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		name     string
		base     int
		priority int
		want     int
	}{
		{"urgent band", 60, 1, 42},
		{"urgent band upper", 60, 2, 42},
		{"normal band", 60, 3, 54},
		{"normal band upper", 60, 5, 54},
		{"relaxed band", 60, 6, 72},
		{"rounds not truncates", 45, 3, 41}, // 40.5 rounds up
		{"floors at minimum", 5, 1, MinEstimateSeconds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.EstimateDuration(tt.base, tt.priority))
		})
	}
}

func TestEstimateDurationMonotoneInBase(t *testing.T) {
	r := NewRouter(nil)
	for priority := 1; priority <= 10; priority++ {
		prev := 0
		for base := 10; base <= 200; base += 10 {
			got := r.EstimateDuration(base, priority)
			assert.GreaterOrEqual(t, got, prev, "base %d priority %d", base, priority)
			prev = got
		}
	}
}

func TestLoadCounter(t *testing.T) {
	table := &CapabilityTable{
		Teams: []Team{{Name: "tiny_team", MaxConcurrent: 2}},
	}
	require.NoError(t, table.Validate())
	r := NewRouter(table)

	assert.True(t, r.AcquireSlot("tiny_team"))
	assert.True(t, r.AcquireSlot("tiny_team"))
	assert.False(t, r.AcquireSlot("tiny_team"))
	assert.Equal(t, 2, r.Load("tiny_team"))

	r.ReleaseSlot("tiny_team")
	assert.Equal(t, 1, r.Load("tiny_team"))
	assert.True(t, r.AcquireSlot("tiny_team"))

	// Releasing an idle team never goes negative.
	r.ReleaseSlot("unknown")
	assert.Equal(t, 0, r.Load("unknown"))
}

func TestDefaultCapabilityTable(t *testing.T) {
	table := DefaultCapabilityTable()
	require.NoError(t, table.Validate())

	assert.Equal(t, []string{
		"business_automation",
		"creative_design",
		"healthcare_specialists",
		"marketing_creatives",
		"vision_computational",
	}, table.TeamNames())

	team := table.Team("healthcare_specialists")
	require.NotNil(t, team)
	assert.Equal(t, 90, team.AvgResponseSeconds)
	assert.Equal(t, 5, team.MaxConcurrent)
	assert.Nil(t, table.Team("nope"))
}

func TestLoadCapabilityTableFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.yaml")
	content := `teams:
  - name: research_pod
    capabilities: [literature_review]
    avg_response_seconds: 25
    max_concurrent: 4
category_teams:
  analysis: research_pod
app_type_teams:
  knowledge_base: research_pod
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadCapabilityTable(path)
	require.NoError(t, err)

	r := NewRouter(table)
	assert.Equal(t, "research_pod", r.MapCategoryToTeam("analysis"))
	assert.Equal(t, "research_pod", r.DetermineBestTeam([]string{"literature_review"}, ""))
	assert.Equal(t, "research_pod", r.DetermineBestTeam(nil, "knowledge_base"))
}

func TestLoadCapabilityTableErrors(t *testing.T) {
	_, err := LoadCapabilityTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, types.CONFIG_LOAD_FAILED, types.CodeOf(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams: {not a list}"), 0o644))
	_, err = LoadCapabilityTable(path)
	assert.Equal(t, types.CONFIG_LOAD_FAILED, types.CodeOf(err))
}

func TestCapabilityTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table CapabilityTable
	}{
		{"no teams", CapabilityTable{}},
		{"unnamed team", CapabilityTable{Teams: []Team{{MaxConcurrent: 1}}}},
		{"duplicate team", CapabilityTable{Teams: []Team{
			{Name: "a", MaxConcurrent: 1}, {Name: "a", MaxConcurrent: 1},
		}}},
		{"zero concurrency", CapabilityTable{Teams: []Team{{Name: "a"}}}},
		{"category to unknown team", CapabilityTable{
			Teams:         []Team{{Name: "a", MaxConcurrent: 1}},
			CategoryTeams: map[string]string{"analysis": "ghost"},
		}},
		{"app type to unknown team", CapabilityTable{
			Teams:        []Team{{Name: "a", MaxConcurrent: 1}},
			AppTypeTeams: map[string]string{"x": "ghost"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
		})
	}
}
