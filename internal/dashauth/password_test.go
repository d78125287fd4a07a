package dashauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)

	assert.True(t, CheckPassword("correct-horse-battery-staple", hash))
	assert.False(t, CheckPassword("wrong-password", hash))
}
