package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/logging"
	"github.com/knowshare/internal/service"
	"go.uber.org/zap"
)

// serviceErrors 将业务错误映射为 HTTP 状态码，message 为空时使用错误文本。
var serviceErrors = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "Invalid refresh token"},
	{service.ErrForbidden, http.StatusForbidden, "Insufficient permissions"},

	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrArticleNotFound, http.StatusNotFound, "Article not found"},
	{service.ErrVersionNotFound, http.StatusNotFound, "Version not found"},
	{service.ErrCategoryNotFound, http.StatusNotFound, "Category not found"},
	{service.ErrTagNotFound, http.StatusNotFound, "Tag not found"},
	{service.ErrCommentNotFound, http.StatusNotFound, "Comment not found"},
	{service.ErrAttachmentNotFound, http.StatusNotFound, "File not found"},
	{service.ErrKnowledgeNotFound, http.StatusNotFound, "Knowledge document not found"},

	{service.ErrUserExists, http.StatusConflict, "User with this email or username already exists"},
	{service.ErrTagExists, http.StatusConflict, "Tag already exists"},
	{service.ErrTagInUse, http.StatusConflict, "Tag is associated with articles"},
	{service.ErrCategoryInUse, http.StatusConflict, "Category has articles or child categories"},

	{service.ErrCategoryCycle, http.StatusBadRequest, ""},
	{service.ErrCategoryOrder, http.StatusBadRequest, ""},
	{service.ErrCommentParent, http.StatusBadRequest, ""},
	{service.ErrNoFile, http.StatusBadRequest, "No file uploaded"},
	{service.ErrTooManyFiles, http.StatusBadRequest, fmt.Sprintf("At most %d files can be uploaded at once", service.MaxFilesPerUpload)},
	{service.ErrEmptyQuery, http.StatusBadRequest, "Search query is required"},
	{auth.ErrWeakPassword, http.StatusBadRequest, ""},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File too large"},
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"error":     http.StatusText(status),
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func abortError(c *gin.Context, status int, message string) {
	respondError(c, status, message)
	c.Abort()
}

func respondData(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError 统一输出业务错误，未识别的错误记录日志并隐藏细节。
func (a *API) writeServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		respondError(c, http.StatusBadRequest, validation.Error())
		return
	}

	for _, mapping := range serviceErrors {
		if errors.Is(err, mapping.err) {
			message := mapping.message
			if message == "" {
				message = capitalize(err.Error())
			}
			respondError(c, mapping.status, message)
			return
		}
	}

	c.Error(err)
	a.logger.Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", logging.RequestID(c)),
		zap.Error(err),
	)
	respondError(c, http.StatusInternalServerError, "Something went wrong!")
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// uintParam parses a path id and answers 400 itself when it is malformed.
func uintParam(c *gin.Context, key string) (uint, bool) {
	id, err := parseUintParam(c, key)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	return id, true
}

func parseUintQuery(c *gin.Context, key string) uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// paginationFromQuery 读取 page/limit，非法值交给 Normalize 处理。
func paginationFromQuery(c *gin.Context) service.Pagination {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	return service.Pagination{Page: page, Limit: limit}.Normalize()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
