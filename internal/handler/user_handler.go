package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
)

type createUserRequest struct {
	registerRequest
	Role string `json:"role"`
}

type updateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Avatar    *string `json:"avatar"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"isActive"`
}

// ListUsers 管理员分页查看用户。
func (a *API) ListUsers(c *gin.Context) {
	page, err := a.users.List(service.UserFilter{
		Search:     c.Query("search"),
		Role:       c.Query("role"),
		Pagination: paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateUser lets an admin create an account with any role.
func (a *API) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req, "Invalid user payload") {
		return
	}

	user, err := a.users.Create(service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, user, "User created successfully")
}

// Me returns the authenticated user.
func (a *API) Me(c *gin.Context) {
	a.Profile(c)
}

// GetUser 获取单个用户。
func (a *API) GetUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	user, err := a.users.Get(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, user, "")
}

// UpdateUser 用户可以修改自己的资料，管理员可以修改任何人。
func (a *API) UpdateUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	if actor.ID != id && !actor.IsAdmin() {
		respondError(c, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var req updateUserRequest
	if !bindJSON(c, &req, "Invalid user payload") {
		return
	}

	user, err := a.users.Update(id, service.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		Role:      req.Role,
		IsActive:  req.IsActive,
	}, actor.Role)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, user, "User updated successfully")
}

// DeleteUser soft deletes a user.
func (a *API) DeleteUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := a.users.Delete(id); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "User deleted successfully")
}
