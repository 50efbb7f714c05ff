package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	resetCodeDigits         = 6
	resetTokenBytes         = 32
	temporaryPasswordLength = 12
	temporaryPasswordChars  = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateResetCode returns a zero-padded 6 digit code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}

// IsResetCode reports whether code has the shape produced by GenerateResetCode.
func IsResetCode(code string) bool {
	if len(code) != resetCodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GenerateResetToken returns a random URL-safe token together with the digest
// that is stored in its place.
func GenerateResetToken() (token, digest string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}

	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashResetToken(token), nil
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ResetTokenMatches compares token against a stored digest in constant time.
func ResetTokenMatches(digest, token string) bool {
	if digest == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(HashResetToken(token))) == 1
}

// GenerateTemporaryPassword is used for accounts issued by an administrator.
func GenerateTemporaryPassword() (string, error) {
	limit := big.NewInt(int64(len(temporaryPasswordChars)))
	out := make([]byte, temporaryPasswordLength)

	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = temporaryPasswordChars[n.Int64()]
	}

	return string(out), nil
}
