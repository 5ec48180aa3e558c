// Package auth implements the credential and token capabilities: bcrypt
// password hashing and HS256 access tokens that carry a subject index and a
// role.  Member and admin tokens are told apart by the role claim, so a token
// issued for one role never verifies for the other.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/exam-reservation/internal/model"
)

var (
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongRole is returned when the role claim does not match.
	ErrWrongRole = errors.New("token role mismatch")
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    `json:"access_token"`
	Type  string    `json:"token_type"`
	Exp   time.Time `json:"expires_at"`
}

// Claims is the JWT payload.  Subject holds the decimal subject index.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a TokenService signing with secret.  Tokens live
// for ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue builds and signs an HS256 JWT for a subject.
func (s *TokenService) Issue(subjectIdx uint64, role model.Role) (AccessToken, error) {
	if !role.Valid() {
		return AccessToken{}, fmt.Errorf("issue token: unknown role %q", role)
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(subjectIdx, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Type: "bearer", Exp: exp}, nil
}

// Verify parses raw and returns its subject index if the token is valid and
// carries the expected role.
func (s *TokenService) Verify(raw string, expected model.Role) (uint64, error) {
	idx, role, err := s.Identify(raw)
	if err != nil {
		return 0, err
	}
	if role != expected {
		return 0, ErrWrongRole
	}
	return idx, nil
}

// Identify parses raw and returns the subject index and role it was issued
// for, whatever the role.
func (s *TokenService) Identify(raw string) (uint64, model.Role, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || !claims.Role.Valid() {
		return 0, "", ErrInvalidToken
	}
	idx, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || idx == 0 {
		return 0, "", ErrInvalidToken
	}
	return idx, claims.Role, nil
}
