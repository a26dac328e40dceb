package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	SetSecret("unit-test-secret")

	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestParseExpiredToken(t *testing.T) {
	SetSecret("unit-test-secret")

	token, err := Sign("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseTamperedToken(t *testing.T) {
	SetSecret("unit-test-secret")

	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token + "x")
	assert.Error(t, err)
}
