package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseAccess(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)

	tok, err := m.IssueAccess(7, 2)
	require.NoError(t, err)

	claims, err := m.Parse(tok, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint(2), claims.RoleID)
	assert.Equal(t, "7", claims.Subject)
}

func TestParseRejectsWrongType(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)

	refresh, jti, exp, err := m.IssueRefresh(1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	_, err = m.Parse(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	claims, err := m.Parse(refresh, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)
	tok, err := m.IssueAccess(1, 1)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Parse(tok, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewManager("other", time.Minute, time.Hour)
	tok, err = other.IssueAccess(1, 1)
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(tok, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("", "correct horse"))
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
