package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := NewBox("test-secret")
	require.NoError(t, err)

	sealed, err := box.Encrypt("gho_abc123")
	require.NoError(t, err)
	assert.NotEqual(t, "gho_abc123", sealed)

	plain, err := box.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "gho_abc123", plain)
}

func TestEncryptEmptyPassesThrough(t *testing.T) {
	box, err := NewBox("test-secret")
	require.NoError(t, err)

	sealed, err := box.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := box.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	box, err := NewBox("key-one")
	require.NoError(t, err)
	other, err := NewBox("key-two")
	require.NoError(t, err)

	sealed, err := box.Encrypt("token")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestDecryptGarbageFails(t *testing.T) {
	box, err := NewBox("test-secret")
	require.NoError(t, err)

	_, err = box.Decrypt("not-base64!!")
	assert.Error(t, err)

	_, err = box.Decrypt("dG9vc2hvcnQ=")
	assert.Error(t, err)
}

func TestNewBoxRequiresSecret(t *testing.T) {
	_, err := NewBox("")
	assert.Error(t, err)
}
