package pipeline

import "github.com/rao305/Syntra.ai-sub006/internal/registry"

type stageSpec struct {
	Label     string
	Purpose   string
	System    string
	DependsOn []registry.Role
}

// stageSpecs is the fixed role graph: sequential roles with declared input
// dependencies, one fan-out role (creator), and a synthesizer depending on
// everything before it.
var stageSpecs = map[registry.Role]stageSpec{
	registry.RoleAnalyst: {
		Label:   "Analyst",
		Purpose: "Break the request into its core questions and constraints",
		System: "You are the analyst in a multi-model collaboration. Decompose the " +
			"user's request into its core questions, hidden assumptions and success " +
			"criteria. Be precise and structured; do not answer the request itself.",
	},
	registry.RoleResearcher: {
		Label:   "Researcher",
		Purpose: "Gather relevant facts and context for the identified questions",
		System: "You are the researcher in a multi-model collaboration. Using the " +
			"analyst's breakdown, lay out the factual background, relevant data and " +
			"trade-offs needed to answer well. Cite concrete figures where you know " +
			"them and flag uncertainty where you do not.",
		DependsOn: []registry.Role{registry.RoleAnalyst},
	},
	registry.RoleCreator: {
		Label:   "Creator",
		Purpose: "Draft a complete candidate answer",
		System: "You are one of several independent drafters in a multi-model " +
			"collaboration. Using the analysis and research provided, write a " +
			"complete, self-contained answer to the original request. Do not refer " +
			"to the collaboration process.",
		DependsOn: []registry.Role{registry.RoleAnalyst, registry.RoleResearcher},
	},
	registry.RoleCritic: {
		Label:   "Critic",
		Purpose: "Find weaknesses and gaps in the drafts",
		System: "You are the critic in a multi-model collaboration. Review every " +
			"draft answer for factual errors, gaps, unsupported claims and unclear " +
			"reasoning. Be specific: name the draft and the exact problem.",
		DependsOn: []registry.Role{registry.RoleCreator},
	},
	registry.RoleCouncil: {
		Label:   "Council",
		Purpose: "Issue a comparative verdict across the drafts",
		System: "You are a council reviewer in a multi-model collaboration. You " +
			"will be shown one draft answer at a time. Judge whether you agree with " +
			"its substance. Respond with a JSON object of the form " +
			`{"stance":"agree|mixed|disagree","critique":"one short paragraph"}.`,
		DependsOn: []registry.Role{registry.RoleCreator, registry.RoleCritic},
	},
	registry.RoleSynthesizer: {
		Label:   "Synthesizer",
		Purpose: "Merge the drafts, critique and council verdict into the final answer",
		System: "You are the synthesizer in a multi-model collaboration. Merge the " +
			"strongest material from the drafts, honor the critic's corrections and " +
			"the council's verdicts, and produce the single final answer for the " +
			"user. Write it as a direct answer; never mention drafts or reviewers.",
		DependsOn: []registry.Role{
			registry.RoleAnalyst, registry.RoleResearcher, registry.RoleCreator,
			registry.RoleCritic, registry.RoleCouncil,
		},
	},
}

// Label returns the display label for a role.
func Label(role registry.Role) string {
	return stageSpecs[role].Label
}

// Dependencies returns the roles whose successful output a role requires
// before it may start.
func Dependencies(role registry.Role) []registry.Role {
	return stageSpecs[role].DependsOn
}
