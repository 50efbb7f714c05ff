package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"
)

const uploadSuffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// FileExtension returns the lowercased extension of name without the dot,
// falling back to "jpg" when there is none.
func FileExtension(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	if ext == "" {
		return "jpg"
	}

	return ext
}

// ProfilePhotoName builds profile_<unix millis>_<8 random chars>.<ext>.
func ProfilePhotoName(original string, now time.Time) string {
	return fmt.Sprintf("profile_%d_%s.%s", now.UnixMilli(), randomSuffix(8), FileExtension(original))
}

// FallbackPhotoName is used when the first upload attempt fails.
func FallbackPhotoName(original string, now time.Time) string {
	return fmt.Sprintf("img_%d.%s", now.UnixMilli(), FileExtension(original))
}

func randomSuffix(length int) string {
	limit := big.NewInt(int64(len(uploadSuffixChars)))
	out := make([]byte, length)

	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			out[i] = uploadSuffixChars[i%len(uploadSuffixChars)]
			continue
		}
		out[i] = uploadSuffixChars[n.Int64()]
	}

	return string(out)
}
