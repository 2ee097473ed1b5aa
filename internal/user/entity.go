package user

import (
	"time"

	"github.com/kazz187/labtrack/internal/auth"
)

type User struct {
	ID           string    `yaml:"id" json:"id"`
	Username     string    `yaml:"username" json:"username"`
	DisplayName  string    `yaml:"display_name" json:"displayName"`
	Role         auth.Role `yaml:"role" json:"role"`
	PasswordHash string    `yaml:"password_hash" json:"-"`
	CreatedAt    time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updatedAt"`
}

func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
