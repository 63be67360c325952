package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/service"
)

const (
	actorContextKey  = "__actor"
	claimsContextKey = "__claims"
)

// RequireAuth 校验 Authorization: Bearer <token>，并把调用者写入上下文。
func (a *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Access token required")
			return
		}
		if !a.authenticate(c, raw) {
			abortError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token is present and lets anonymous
// requests through.
func (a *API) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			a.authenticate(c, raw)
		}
		c.Next()
	}
}

// RequireRole answers 403 unless the caller holds one of roles. It must run after
// RequireAuth.
func (a *API) RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Access token required")
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			abortError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

func (a *API) authenticate(c *gin.Context, raw string) bool {
	claims, err := a.tokens.ParseAccess(raw)
	if err != nil {
		return false
	}
	userID, err := claims.UserID()
	if err != nil {
		return false
	}
	c.Set(claimsContextKey, claims)
	c.Set(actorContextKey, service.Actor{ID: userID, Role: claims.Role})
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := value.(service.Actor)
	return actor, ok
}

func currentClaims(c *gin.Context) *auth.Claims {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}

// visitorID 登录用户按用户 id 去重，匿名访客按客户端 IP 去重。
func visitorID(c *gin.Context) string {
	if actor, ok := currentActor(c); ok {
		return "user:" + strconv.FormatUint(uint64(actor.ID), 10)
	}
	return "ip:" + c.ClientIP()
}
