package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestWriteServiceErrorMapsSentinels(t *testing.T) {
	api := &API{logger: zap.NewNop()}

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", service.ErrArticleNotFound, http.StatusNotFound, "Article not found"},
		{"wrapped", fmt.Errorf("load: %w", service.ErrTagInUse), http.StatusConflict, "Tag is associated with articles"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "Insufficient permissions"},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"too large", service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File too large"},
		{"own message", service.ErrCategoryCycle, http.StatusBadRequest, "Category cannot be its own ancestor"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "Something went wrong!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			api.writeServiceError(c, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			body := errorBody(t, rr)
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, http.StatusText(tt.status), body["error"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestWriteServiceErrorValidation(t *testing.T) {
	api := &API{logger: zap.NewNop()}
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	_, err := service.NewSearchService(nil).Search(service.SearchQuery{Query: "x", Type: "planets"})
	require.Error(t, err)
	api.writeServiceError(c, err)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorBody(t, rr)["message"], "type")
}

func TestUintParam(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		c.String(http.StatusOK, "%d", id)
	})

	for path, want := range map[string]int{
		"/items/42":  http.StatusOK,
		"/items/0":   http.StatusBadRequest,
		"/items/-1":  http.StatusBadRequest,
		"/items/abc": http.StatusBadRequest,
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rr.Code, path)
	}
}

func TestQueryHelpers(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0&limit=500&category=7&tag=x&active=false", nil)

	p := paginationFromQuery(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, uint(7), parseUintQuery(c, "category"))
	assert.Equal(t, uint(0), parseUintQuery(c, "tag"))

	active := parseBoolQuery(c, "active")
	require.NotNil(t, active)
	assert.False(t, *active)
	assert.Nil(t, parseBoolQuery(c, "missing"))
}

func newMiddlewareAPI(t *testing.T) *API {
	t.Helper()
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  "access",
		AccessTTL:     time.Hour,
		RefreshSecret: "refresh",
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	return &API{tokens: tokens, logger: zap.NewNop()}
}

func TestRequireRole(t *testing.T) {
	api := newMiddlewareAPI(t)
	r := gin.New()
	r.GET("/admin", api.RequireAuth(), api.RequireRole(db.RoleAdmin), func(c *gin.Context) {
		actor, _ := currentActor(c)
		c.String(http.StatusOK, "%d", actor.ID)
	})

	viewer, err := api.tokens.Issue(auth.Identity{UserID: 3, Email: "v@example.com", Role: db.RoleViewer})
	require.NoError(t, err)
	admin, err := api.tokens.Issue(auth.Identity{UserID: 1, Email: "a@example.com", Role: db.RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"refresh token rejected", "Bearer " + admin.RefreshToken, http.StatusUnauthorized},
		{"viewer", "Bearer " + viewer.AccessToken, http.StatusForbidden},
		{"admin", "bearer " + admin.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestVisitorID(t *testing.T) {
	api := newMiddlewareAPI(t)
	r := gin.New()
	r.GET("/who", api.OptionalAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, visitorID(c))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	r.ServeHTTP(rr, req)
	assert.Equal(t, "ip:203.0.113.9", rr.Body.String())

	pair, err := api.tokens.Issue(auth.Identity{UserID: 12, Role: db.RoleViewer})
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(rr, req)
	assert.Equal(t, "user:12", rr.Body.String())
}
