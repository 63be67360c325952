package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Token kinds carried in the "typ" claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims 是 access/refresh token 共用的声明结构。
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Kind  string `json:"typ"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Identity is the data embedded into issued tokens.
type Identity struct {
	UserID uint
	Email  string
	Role   string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
	Now           func() time.Time
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	cfg TokenConfig
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt lifetimes must be positive")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "knowshare"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenIssuer{cfg: cfg}, nil
}

// Issue signs a new access and refresh token for id.
func (t *TokenIssuer) Issue(id Identity) (TokenPair, error) {
	access, err := t.sign(id, KindAccess, t.cfg.AccessSecret, t.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(id, KindRefresh, t.cfg.RefreshSecret, t.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.cfg.AccessTTL / time.Second),
	}, nil
}

// ParseAccess verifies an access token.
func (t *TokenIssuer) ParseAccess(raw string) (*Claims, error) {
	return t.parse(raw, KindAccess, t.cfg.AccessSecret)
}

// ParseRefresh verifies a refresh token.
func (t *TokenIssuer) ParseRefresh(raw string) (*Claims, error) {
	return t.parse(raw, KindRefresh, t.cfg.RefreshSecret)
}

func (t *TokenIssuer) sign(id Identity, kind, secret string, ttl time.Duration) (string, error) {
	now := t.cfg.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
		Role:  id.Role,
		Kind:  kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (t *TokenIssuer) parse(raw, kind, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithTimeFunc(t.cfg.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Kind)
	}
	return claims, nil
}
