package service

import "github.com/knowshare/internal/db"

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == db.RoleAdmin
}

// canModify 作者本人或管理员可以修改资源。
func (a Actor) canModify(ownerID uint) bool {
	return a.IsAdmin() || (a.ID != 0 && a.ID == ownerID)
}
