package dashauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("operator")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m1 := NewJWTManager("secret-one", time.Hour)
	m2 := NewJWTManager("secret-two", time.Hour)

	token, err := m1.Generate("operator")
	require.NoError(t, err)

	_, err = m2.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Hour)

	token, err := m.Generate("operator")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
