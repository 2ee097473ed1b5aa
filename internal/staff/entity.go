package staff

import "time"

type Role string

const (
	RoleTechnologist    Role = "Technologist"
	RoleLead            Role = "Lead Technologist"
	RoleSupervisor      Role = "Supervisor"
	RoleReadingProvider Role = "Reading Provider"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTechnologist, RoleLead, RoleSupervisor, RoleReadingProvider:
		return true
	}
	return false
}

// Member is one person on the lab roster.
type Member struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Role      Role      `yaml:"role" json:"role"`
	Email     string    `yaml:"email" json:"email"`
	Phone     string    `yaml:"phone" json:"phone"`
	Active    bool      `yaml:"active" json:"active"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}
