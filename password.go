package authcore

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Password hashing parameters. The hash wire format is hex(salt):hex(key).
const (
	PasswordSaltBytes = 16
	PasswordKeyBytes  = 64

	scryptN = 16384
	scryptR = 8
	scryptP = 1

	hashSeparator = ":"
)

// HashPassword derives a salted scrypt key for password. Every call uses a fresh
// random salt, so two hashes of the same password differ while both verify.
// Empty passwords are hashed like any other input.
func HashPassword(password string) (string, error) {
	salt := make([]byte, PasswordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	key, err := deriveKey(password, saltHex)
	if err != nil {
		return "", err
	}
	return saltHex + hashSeparator + hex.EncodeToString(key), nil
}

// VerifyPassword checks supplied against a hash produced by HashPassword.
// Malformed stored values never verify.
func VerifyPassword(stored, supplied string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, hashSeparator)
	if !ok {
		return false
	}
	if saltHex == "" {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != PasswordKeyBytes {
		return false
	}
	got, err := deriveKey(supplied, saltHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// deriveKey feeds the hex text of the salt (not the decoded bytes) to scrypt.
// Existing hashes in the salt:key format depend on this.
func deriveKey(password, saltHex string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(saltHex), scryptN, scryptR, scryptP, PasswordKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
