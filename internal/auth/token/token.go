package token

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalid   = errors.New("invalid token")
	ErrWrongType = errors.New("wrong token type")
)

// Claims is the JWT payload for both access and refresh tokens. The csrf
// claim binds the token to its double-submit cookie.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
	CSRF string `json:"csrf"`
}

// Manager signs and verifies the HS256 session tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret []byte, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccess mints an access token for the given identity and returns the
// signed token together with its CSRF pair value.
func (m *Manager) IssueAccess(email string) (string, string, error) {
	return m.issue(email, TypeAccess, m.accessTTL)
}

// IssueRefresh mints a refresh token for the given identity.
func (m *Manager) IssueRefresh(email string) (string, string, error) {
	return m.issue(email, TypeRefresh, m.refreshTTL)
}

func (m *Manager) issue(email, typ string, ttl time.Duration) (string, string, error) {
	now := time.Now().UTC()
	csrf := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
		CSRF: csrf,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", err
	}
	return signed, csrf, nil
}

// Parse verifies signature and expiry and checks the token carries the
// expected type claim.
func (m *Manager) Parse(raw, wantType string) (*Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}
	return &claims, nil
}
