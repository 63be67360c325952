package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register 注册新用户，角色固定为 viewer。
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, "Invalid registration payload") {
		return
	}

	user, err := a.auth.Register(service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, user, "User registered successfully")
}

// Login 校验凭据并返回 token。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "Email and password are required") {
		return
	}

	result, err := a.auth.Login(req.Email, req.Password)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Refresh exchanges a refresh token for a new token pair.
func (a *API) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req, "Refresh token is required") {
		return
	}

	pair, err := a.auth.Refresh(req.RefreshToken)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Profile returns the authenticated user.
func (a *API) Profile(c *gin.Context) {
	actor, _ := currentActor(c)
	user, err := a.auth.Profile(actor.ID)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, user, "")
}

// Logout 令牌是无状态的，客户端丢弃即可。
func (a *API) Logout(c *gin.Context) {
	if claims := currentClaims(c); claims != nil {
		a.logger.Info("logout", zap.String("subject", claims.Subject))
	}
	respondMessage(c, "Logout successful")
}
