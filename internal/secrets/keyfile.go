package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 120_000
)

var (
	ErrInvalidCiphertext = errors.New("invalid key file ciphertext")
	ErrEmptyInput        = errors.New("key and passphrase are required")
	ErrLegacyKeyFile     = errors.New("key file uses the retired Fernet layout; re-run encrypt-key")
)

// Fernet tokens are base64url text opening with version byte 0x80 and a zero-led timestamp.
var fernetPrefix = []byte("gAAAAA")

// EncryptToFile writes salt || nonce || AES-256-GCM(key) to path with 0600 permissions.
func EncryptToFile(path, key, passphrase string) error {
	data, err := Encrypt(key, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// DecryptFile reads a file written by EncryptToFile.
func DecryptFile(path, passphrase string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return Decrypt(data, passphrase)
}

// Encrypt seals key with a passphrase-derived AES key.
func Encrypt(key, passphrase string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" || passphrase == "" {
		return nil, ErrEmptyInput
	}
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	out := append(salt, nonce...)
	return aead.Seal(out, nonce, []byte(key), nil), nil
}

// Decrypt opens data produced by Encrypt. Files in the older salt || Fernet token
// layout report ErrLegacyKeyFile, any other failure ErrInvalidCiphertext.
func Decrypt(data []byte, passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyInput
	}
	if len(data) < saltSize {
		return "", ErrInvalidCiphertext
	}
	aead, err := newAEAD(passphrase, data[:saltSize])
	if err != nil {
		return "", err
	}
	rest := data[saltSize:]
	ns := aead.NonceSize()
	if len(rest) < ns+aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	plain, err := aead.Open(nil, rest[:ns], rest[ns:], nil)
	if err != nil {
		if bytes.HasPrefix(rest, fernetPrefix) {
			return "", ErrLegacyKeyFile
		}
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

// NewPassphrase returns a random URL-safe passphrase.
func NewPassphrase() (string, error) {
	buf := make([]byte, 24)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate passphrase: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return aead, nil
}
