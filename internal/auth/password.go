package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/scrypt"
)

// MinPasswordLength is the minimum accepted admin password length.
const MinPasswordLength = 8

// scrypt parameters; the stored salt/hash pair is hex-encoded.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltBytes    = 16
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// HashPassword derives an scrypt hash with a fresh random salt.
// Returns the hex-encoded salt and hash for storage.
func HashPassword(password string) (salt string, hash string, err error) {
	if len(password) < MinPasswordLength {
		return "", "", ErrPasswordTooShort
	}

	rawSalt := make([]byte, saltBytes)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}
	key, err := scrypt.Key([]byte(password), rawSalt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(rawSalt), hex.EncodeToString(key), nil
}

// CheckPassword verifies a password against a stored salt/hash pair in
// constant time.
func CheckPassword(password, salt, hash string) error {
	rawSalt, err := hex.DecodeString(salt)
	if err != nil {
		return ErrInvalidPassword
	}
	expected, err := hex.DecodeString(hash)
	if err != nil {
		return ErrInvalidPassword
	}

	key, err := scrypt.Key([]byte(password), rawSalt, scryptN, scryptR, scryptP, len(expected))
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(key, expected) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
