package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/db"
	"gorm.io/gorm"
)

// UserService wraps user related database operations.
type UserService struct {
	db *gorm.DB
}

// CreateUserInput represents fields accepted when creating a user.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// UpdateUserInput carries optional changes; nil fields are left untouched.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Avatar    *string
	Role      *string
	IsActive  *bool
}

// UserFilter describes filters for listing users.
type UserFilter struct {
	Search string
	Role   string
	Pagination
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Create validates input, rejects duplicate email or username and stores a bcrypt hash.
func (s *UserService) Create(input CreateUserInput) (*db.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Role = strings.TrimSpace(input.Role)

	if err := validateNewUser(input); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = db.RoleViewer
	}

	taken, err := s.identityTaken(input.Username, input.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUserExists
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Password:  hashed,
		Role:      input.Role,
		IsActive:  true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin 存在性检查：若用户名不存在则创建一个管理员账号，已存在时直接返回。
func (s *UserService) EnsureAdmin(username, email, password string) (*db.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, false, nil
	}

	var existing db.User
	err := s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(email) == "" {
		email = username + "@localhost.localdomain"
	}
	user, err := s.Create(CreateUserInput{
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: "Super",
		LastName:  "Root",
		Role:      db.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Get fetches a user by id.
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List provides paginated users matching the filter, newest first.
func (s *UserService) List(filter UserFilter) (*Page[db.User], error) {
	p := filter.Pagination.Normalize()

	filtered := func() *gorm.DB {
		query := s.db.Model(&db.User{})
		if search := strings.TrimSpace(filter.Search); search != "" {
			cond, args := likeAny(containsPattern(search), "username", "email", "first_name", "last_name")
			query = query.Where(cond, args...)
		}
		if role := strings.TrimSpace(filter.Role); role != "" {
			query = query.Where("role = ?", role)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}

	var users []db.User
	if err := filtered().Order("created_at desc").Order("id desc").Limit(p.Limit).Offset(p.Offset()).Find(&users).Error; err != nil {
		return nil, err
	}
	return newPage(users, total, p), nil
}

// Update applies changes to a user. Only admins may change role or active state.
func (s *UserService) Update(id uint, input UpdateUserInput, actorRole string) (*db.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if (input.Role != nil || input.IsActive != nil) && actorRole != db.RoleAdmin {
		return nil, ErrForbidden
	}

	username, email := user.Username, user.Email
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
		if n := len([]rune(username)); n < 3 || n > 50 {
			return nil, invalid("username", "must be between 3 and 50 characters")
		}
	}
	if input.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*input.Email))
		if !validEmail(email) {
			return nil, invalid("email", "must be a valid email address")
		}
	}
	if username != user.Username || email != user.Email {
		taken, err := s.identityTaken(username, email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUserExists
		}
	}

	updates := map[string]interface{}{
		"username": username,
		"email":    email,
	}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if len([]rune(name)) < 2 {
			return nil, invalid("firstName", "must be at least 2 characters")
		}
		updates["first_name"] = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if len([]rune(name)) < 2 {
			return nil, invalid("lastName", "must be at least 2 characters")
		}
		updates["last_name"] = name
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}
	if input.Role != nil {
		if !db.ValidRole(*input.Role) {
			return nil, invalid("role", "must be one of viewer, editor, admin")
		}
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete soft deletes a user.
func (s *UserService) Delete(id uint) error {
	result := s.db.Delete(&db.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// identityTaken checks soft deleted rows too, since the unique indexes still cover them.
func (s *UserService) identityTaken(username, email string, exceptID uint) (bool, error) {
	var count int64
	query := s.db.Unscoped().Model(&db.User{}).Where("(username = ? OR email = ?)", username, email)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func validateNewUser(input CreateUserInput) error {
	if n := len([]rune(input.Username)); n < 3 || n > 50 {
		return invalid("username", "must be between 3 and 50 characters")
	}
	if !validEmail(input.Email) {
		return invalid("email", "must be a valid email address")
	}
	if len(input.Password) < 6 {
		return invalid("password", "must be at least 6 characters")
	}
	if len([]rune(input.FirstName)) < 2 {
		return invalid("firstName", "must be at least 2 characters")
	}
	if len([]rune(input.LastName)) < 2 {
		return invalid("lastName", "must be at least 2 characters")
	}
	if input.Role != "" && !db.ValidRole(input.Role) {
		return invalid("role", "must be one of viewer, editor, admin")
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
