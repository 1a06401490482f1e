package staff

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleFrontDesk     Role = "front-desk"
	RoleTechnician    Role = "technician"
	RoleClinician     Role = "clinician"
	RoleAdministrator Role = "administrator"
)

var roles = []Role{RoleFrontDesk, RoleTechnician, RoleClinician, RoleAdministrator}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is a staff member able to authenticate. PasswordHash never leaves the
// service layer.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the credential-free projection embedded in appointment responses.
type Summary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
