package approval

// Role is the actor role supplied by the identity layer.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleCollector  Role = "collector"
	RoleValidator  Role = "validator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleCollector, RoleValidator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r carries admin rights.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanValidate reports whether r may validate records.
func (r Role) CanValidate() bool {
	return r == RoleValidator || r.IsAdmin()
}

// CanEdit reports whether r may request any workflow action.
func (r Role) CanEdit() bool {
	return r.Valid() && r != RoleViewer
}
