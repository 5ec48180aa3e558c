package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-reservation/internal/model"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	tok, err := svc.Issue(42, model.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.Type)
	assert.NotEmpty(t, tok.Token)

	idx, err := svc.Verify(tok.Token, model.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), idx)
}

func TestVerifyRejectsOtherRole(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	member, err := svc.Issue(1, model.RoleMember)
	require.NoError(t, err)
	admin, err := svc.Issue(1, model.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Verify(member.Token, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrWrongRole)
	_, err = svc.Verify(admin.Token, model.RoleMember)
	assert.ErrorIs(t, err, ErrWrongRole)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	tok, err := svc.Issue(7, model.RoleMember)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = svc.Verify(tok.Token, model.RoleMember)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	tok, err := NewTokenService("other", time.Hour).Issue(1, model.RoleMember)
	require.NoError(t, err)
	_, err = NewTokenService("secret", time.Hour).Verify(tok.Token, model.RoleMember)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbageAndMissingExpiry(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	_, err := svc.Verify("not-a-jwt", model.RoleMember)
	assert.ErrorIs(t, err, ErrInvalidToken)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "5",
		"role": "member",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Verify(raw, model.RoleMember)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentifyReportsRole(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	tok, err := svc.Issue(9, model.RoleAdmin)
	require.NoError(t, err)

	idx, role, err := svc.Identify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), idx)
	assert.Equal(t, model.RoleAdmin, role)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "5",
		"role": "owner",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, _, err = svc.Identify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueUnknownRole(t *testing.T) {
	_, err := NewTokenService("secret", time.Hour).Issue(1, model.Role("owner"))
	assert.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, VerifyPassword(hash, "secret1"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
