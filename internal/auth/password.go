package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashCost matches the salt rounds used for every stored password.
// Tests lower it to bcrypt.MinCost.
var HashCost = 12

// ErrWeakPassword is returned by ValidateStrong.
var ErrWeakPassword = errors.New("password must be at least 8 characters and contain upper case, lower case and a digit")

// HashPassword 使用 bcrypt 生成密码哈希。
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether password matches the stored hash.
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateStrong enforces the bootstrap admin password policy: at least 8 characters
// from [A-Za-z0-9@$!%*?&] with one upper case letter, one lower case letter and one digit.
func ValidateStrong(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
		default:
			return ErrWeakPassword
		}
	}

	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}
