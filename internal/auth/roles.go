package auth

import "github.com/hackgods/vetclinic-scheduling/internal/staff"

// RoleSet is the set of roles permitted to perform an operation.
type RoleSet []staff.Role

// AllStaffRoles may create, list, update and delete appointments.
var AllStaffRoles = RoleSet{
	staff.RoleFrontDesk,
	staff.RoleTechnician,
	staff.RoleClinician,
	staff.RoleAdministrator,
}

var (
	AppointmentCreateRoles = AllStaffRoles
	AppointmentListRoles   = AllStaffRoles
	AppointmentUpdateRoles = AllStaffRoles
	AppointmentDeleteRoles = AllStaffRoles

	PatientWriteRoles  = AllStaffRoles
	PatientDeleteRoles = RoleSet{staff.RoleAdministrator}
	ClientWriteRoles   = AllStaffRoles
	RegisterRoles      = RoleSet{staff.RoleAdministrator}
)

// IsAllowed reports whether role is a member of set.
func IsAllowed(role staff.Role, set RoleSet) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
