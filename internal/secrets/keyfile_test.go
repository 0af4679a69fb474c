package secrets

import (
	"os"
	"strings"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_key.enc")
	require.NoError(t, EncryptToFile(path, " sk-test-123 ", "correct horse"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-test-123")

	key, err := DecryptFile(path, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", key)

	_, err = DecryptFile(path, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptRejectsTruncatedData(t *testing.T) {
	data, err := Encrypt("sk-test", "pass")
	require.NoError(t, err)

	for _, n := range []int{0, 10, saltSize, saltSize + 12, len(data) - 1} {
		_, err := Decrypt(data[:n], "pass")
		assert.ErrorIs(t, err, ErrInvalidCiphertext, "length %d", n)
	}
}

func TestDecryptReportsLegacyFernetFile(t *testing.T) {
	salt := make([]byte, saltSize)
	token := "gAAAAABnq1Xz" + strings.Repeat("QUJDRA", 20) + "=="
	data := append(salt, token...)

	_, err := Decrypt(data, "pass")
	assert.ErrorIs(t, err, ErrLegacyKeyFile)

	path := filepath.Join(t.TempDir(), "api_key.enc")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	_, err = DecryptFile(path, "pass")
	assert.ErrorIs(t, err, ErrLegacyKeyFile)
}

func TestEncryptRequiresInput(t *testing.T) {
	_, err := Encrypt("", "pass")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = Encrypt("key", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewPassphraseIsRandom(t *testing.T) {
	a, err := NewPassphrase()
	require.NoError(t, err)
	b, err := NewPassphrase()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
