package service

import (
	"errors"
	"strings"
	"time"

	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/db"
	"gorm.io/gorm"
)

// AuthService handles registration, login and token refresh.
type AuthService struct {
	db     *gorm.DB
	users  *UserService
	tokens *auth.TokenIssuer
	now    func() time.Time
}

// LoginResult is returned by Login.
type LoginResult struct {
	auth.TokenPair
	User *db.User `json:"user"`
}

// NewAuthService creates an AuthService instance.
func NewAuthService(gdb *gorm.DB, users *UserService, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{db: gdb, users: users, tokens: tokens, now: time.Now}
}

// Register creates a viewer account; the role cannot be chosen by the caller.
func (s *AuthService) Register(input CreateUserInput) (*db.User, error) {
	input.Role = db.RoleViewer
	return s.users.Create(input)
}

// Login 校验邮箱与密码，成功后签发 access/refresh token。
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user db.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.ComparePassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(identityOf(&user))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return &LoginResult{TokenPair: pair, User: &user}, nil
}

// Refresh verifies a refresh token and issues a new pair for the current user state.
func (s *AuthService) Refresh(refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(strings.TrimSpace(refreshToken))
	if err != nil {
		return auth.TokenPair{}, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return auth.TokenPair{}, ErrInvalidToken
	}

	user, err := s.users.Get(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return auth.TokenPair{}, ErrInvalidToken
		}
		return auth.TokenPair{}, err
	}
	if !user.IsActive {
		return auth.TokenPair{}, ErrInvalidToken
	}

	return s.tokens.Issue(identityOf(user))
}

// Profile returns the user behind id.
func (s *AuthService) Profile(userID uint) (*db.User, error) {
	return s.users.Get(userID)
}

func identityOf(user *db.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}
