package orchestrator

// nextStepsByTeam suggests the follow-up actions reported with each
// assignment, by team.
var nextStepsByTeam = map[string][]string{
	"vision_computational": {
		"prepare the image set for processing",
		"run detection and analysis models",
		"review annotated results",
	},
	"creative_design": {
		"gather brand and style references",
		"produce initial design concepts",
		"iterate on stakeholder feedback",
	},
	"business_automation": {
		"map the current process",
		"configure automation rules",
		"validate with a pilot run",
	},
	"healthcare_specialists": {
		"verify clinical data access",
		"run specialist review",
		"compile compliance notes",
	},
	"marketing_creatives": {
		"define audience and messaging",
		"draft campaign assets",
		"schedule content rollout",
	},
}

var defaultNextSteps = []string{
	"review the task details",
	"confirm team capacity",
	"begin execution",
}

// nextStepsFor returns a copy of the team's suggested follow-ups.
func nextStepsFor(team string) []string {
	steps, ok := nextStepsByTeam[team]
	if !ok {
		steps = defaultNextSteps
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// appTypeByApp maps application ids to their application type for team
// routing when the caller does not supply one.
var appTypeByApp = map[string]string{
	"iris":       "computer_vision",
	"silhouette": "design_generation",
	"nwc":        "workflow_automation",
	"medluxe":    "medical_ai",
	"brandistry": "branding_ai",
}
