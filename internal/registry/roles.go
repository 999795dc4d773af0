package registry

// Role identifies a fixed pipeline stage. The set is closed; anything else
// is rejected at catalog load.
type Role string

const (
	RoleAnalyst     Role = "analyst"
	RoleResearcher  Role = "researcher"
	RoleCreator     Role = "creator"
	RoleCritic      Role = "critic"
	RoleCouncil     Role = "council"
	RoleSynthesizer Role = "synthesizer"
)

// Roles returns all pipeline roles in execution order.
func Roles() []Role {
	return []Role{
		RoleAnalyst,
		RoleResearcher,
		RoleCreator,
		RoleCritic,
		RoleCouncil,
		RoleSynthesizer,
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAnalyst, RoleResearcher, RoleCreator, RoleCritic, RoleCouncil, RoleSynthesizer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
