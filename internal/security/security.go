// Package security covers password policy for archive encryption: strength
// validation, secure generation, and inspection of encrypted archives.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode"

	"github.com/yeka/zip"
)

const (
	// MinPasswordLength is the hard floor below which passwords are rejected.
	MinPasswordLength = 4
	// RecommendedPasswordLength is the advisory floor for strong passwords.
	RecommendedPasswordLength = 12
)

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// Assessment is the outcome of validating a password. Message carries the
// rejection reason when Valid is false, or advisory text otherwise.
type Assessment struct {
	Valid   bool
	Message string
}

// ValidatePassword checks a password against the policy. Short length and
// missing character classes above the minimum produce warnings, not
// rejections.
func ValidatePassword(password string) Assessment {
	if password == "" {
		return Assessment{Valid: false, Message: "Password cannot be empty"}
	}
	if len(password) < MinPasswordLength {
		return Assessment{
			Valid:   false,
			Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength),
		}
	}

	var warnings []string
	if len(password) < RecommendedPasswordLength {
		warnings = append(warnings, fmt.Sprintf("Recommended password length is %d characters", RecommendedPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		warnings = append(warnings, "Strong passwords include uppercase, lowercase, and numbers")
	}

	if len(warnings) > 0 {
		return Assessment{Valid: true, Message: strings.Join(warnings, " - ")}
	}
	return Assessment{Valid: true, Message: "Password is acceptable"}
}

// GeneratePassword produces a random password of the given length drawn
// from letters and digits, plus punctuation when includeSpecial is set.
// The randomness source is crypto/rand.
func GeneratePassword(length int, includeSpecial bool) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid password length: %d", length)
	}
	alphabet := letters + digits
	if includeSpecial {
		alphabet += symbols
	}

	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// HashPassword returns the hex SHA-256 digest of the password. Used for
// bookkeeping only, never as archive encryption material.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsEncrypted reports whether any entry in the archive has its encryption
// flag set. Unreadable archives report false.
func IsEncrypted(archivePath string) bool {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return false
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.IsEncrypted() {
			return true
		}
	}
	return false
}

// EncryptionInfo summarizes the encryption state of an archive.
type EncryptionInfo struct {
	Encrypted      bool
	EncryptedFiles int
	TotalFiles     int
	Scheme         string
	Err            string
}

// GetEncryptionInfo counts encrypted entries and names the scheme. Read
// failures produce a zeroed result with Err set instead of an error return.
func GetEncryptionInfo(archivePath string) EncryptionInfo {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return EncryptionInfo{Scheme: "Unknown", Err: err.Error()}
	}
	defer func() { _ = r.Close() }()

	info := EncryptionInfo{Scheme: "None"}
	for _, f := range r.File {
		info.TotalFiles++
		if f.IsEncrypted() {
			info.EncryptedFiles++
		}
	}
	if info.EncryptedFiles > 0 {
		info.Encrypted = true
		info.Scheme = "ZIP 2.0 (Legacy)"
	}
	return info
}

// TestArchivePassword reports whether the password decrypts the archive by
// reading the first non-directory entry in full. An archive with no file
// entries accepts any password.
func TestArchivePassword(archivePath, password string) bool {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return false
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.IsEncrypted() {
			f.SetPassword(password)
		}
		rc, err := f.Open()
		if err != nil {
			return false
		}
		_, copyErr := io.Copy(io.Discard, rc)
		_ = rc.Close()
		return copyErr == nil
	}
	return true
}
