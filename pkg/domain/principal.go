package domain

// Role is the closed set of caller roles the authorization rules reason
// about. The credential system assigns exactly one role per principal.
type Role string

const (
	// RoleCitizen is a self-service caller: complainants filing and
	// following their own records.
	RoleCitizen Role = "CITIZEN"
	// RoleFieldOfficer is an investigating officer who can work only the
	// cases assigned to them.
	RoleFieldOfficer Role = "FIELD_OFFICER"
	// RoleCaseOfficer is the analyst role empowered to assign officers and
	// resolve close requests.
	RoleCaseOfficer Role = "CASE_OFFICER"
	// RoleAdministrator holds every permission a case officer holds plus
	// record deletion.
	RoleAdministrator Role = "ADMINISTRATOR"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleFieldOfficer, RoleCaseOfficer, RoleAdministrator:
		return true
	}
	return false
}

// Supervisory reports whether the role may act on any case regardless of
// assignment or ownership.
func (r Role) Supervisory() bool {
	return r == RoleCaseOfficer || r == RoleAdministrator
}

// Principal is an authenticated caller. The zero value means "anonymous";
// record creation is the only operation that accepts it.
type Principal struct {
	ID   PrincipalID
	Role Role
}

func (p Principal) Anonymous() bool { return p.ID.IsNil() }
