package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this email or username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrForbidden          = errors.New("forbidden")

	ErrArticleNotFound  = errors.New("article not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category has articles or child categories")
	ErrCategoryCycle    = errors.New("category cannot be its own ancestor")
	ErrCategoryOrder    = errors.New("invalid category order")
	ErrTagNotFound      = errors.New("tag not found")
	ErrTagExists        = errors.New("tag already exists")
	ErrTagInUse         = errors.New("tag is associated with articles")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrCommentParent    = errors.New("parent comment belongs to another article")

	ErrAttachmentNotFound = errors.New("file not found")
	ErrNoFile             = errors.New("no file provided")
	ErrFileTooLarge       = errors.New("file exceeds the upload size limit")
	ErrTooManyFiles       = errors.New("too many files")

	ErrKnowledgeNotFound = errors.New("knowledge document not found")
	ErrEmptyQuery        = errors.New("search query is required")
)

// ValidationError 描述单个字段未通过校验的原因。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
