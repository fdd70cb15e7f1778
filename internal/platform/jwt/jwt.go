package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"

	issuer   = "amadvs-site"
	audience = "amadvs-clients"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
)

type Claims struct {
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Name  string    `json:"name,omitempty"`
	Type  TokenType `json:"type"`
	jwt.RegisteredClaims
}

type Validator interface {
	SignAccess(userID, email, role, name string) (string, error)
	SignRefresh(userID, email, role, name string) (string, error)
	Parse(tokenStr string) (*Claims, error)
	VerifyRefresh(tokenStr string) (*Claims, error)
}

type HS256 struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewHS256(secret []byte, accessTTL, refreshTTL time.Duration) *HS256 {
	return &HS256{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (h *HS256) sign(userID, email, role, name string, ttl time.Duration, tokenType TokenType) (string, error) {
	now := h.now()
	claims := Claims{
		Email: email,
		Role:  role,
		Name:  name,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

func (h *HS256) SignAccess(userID, email, role, name string) (string, error) {
	return h.sign(userID, email, role, name, h.accessTTL, AccessToken)
}

func (h *HS256) SignRefresh(userID, email, role, name string) (string, error) {
	return h.sign(userID, email, role, name, h.refreshTTL, RefreshToken)
}

func (h *HS256) verify(tokenStr string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, ErrWrongType
	}
	return claims, nil
}

// Parse accepts access tokens only.
func (h *HS256) Parse(tokenStr string) (*Claims, error) {
	return h.verify(tokenStr, AccessToken)
}

func (h *HS256) VerifyRefresh(tokenStr string) (*Claims, error) {
	return h.verify(tokenStr, RefreshToken)
}
