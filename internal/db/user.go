package db

import "time"

// User roles, ordered from least to most privileged.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// User 定义了用户模型
type User struct {
	Model
	Username      string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email         string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FirstName     string     `gorm:"size:100" json:"firstName"`
	LastName      string     `gorm:"size:100" json:"lastName"`
	Password      string     `gorm:"not null" json:"-"`
	Role          string     `gorm:"size:20;not null" json:"role"`
	Avatar        string     `json:"avatar,omitempty"`
	IsActive      bool       `json:"isActive"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

// RoleRank orders roles so that a higher rank includes the lower ones.
// Unknown roles rank below viewer.
func RoleRank(role string) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return RoleRank(role) > 0
}
