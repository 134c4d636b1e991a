package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yeka/zip"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		valid     bool
		advisory  bool // expect a warning message on a valid password
		substring string
	}{
		{"empty", "", false, false, "cannot be empty"},
		{"too short", "ab", false, false, "at least 4 characters"},
		{"minimum length", "abcd", true, true, "Recommended password length"},
		{"long but one class", "abcdefghijklmnop", true, true, "uppercase, lowercase, and numbers"},
		{"strong", "Str0ngPass!word", true, false, "Password is acceptable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePassword(tt.password)
			if got.Valid != tt.valid {
				t.Errorf("Valid = %v, expected %v", got.Valid, tt.valid)
			}
			if !strings.Contains(got.Message, tt.substring) {
				t.Errorf("Message = %q, expected to contain %q", got.Message, tt.substring)
			}
			if tt.valid && !tt.advisory && got.Message != "Password is acceptable" {
				t.Errorf("unexpected advisory on strong password: %q", got.Message)
			}
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(16, true)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(pw) != 16 {
		t.Errorf("length = %d, expected 16", len(pw))
	}

	noSpecial, err := GeneratePassword(32, false)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if strings.ContainsAny(noSpecial, symbols) {
		t.Errorf("password %q contains special characters", noSpecial)
	}

	other, err := GeneratePassword(16, true)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if pw == other {
		t.Error("two generated passwords are identical")
	}

	if _, err := GeneratePassword(0, true); err == nil {
		t.Error("expected error for zero length")
	}
}

func TestHashPassword(t *testing.T) {
	// SHA-256 of "password".
	const want = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got := HashPassword("password"); got != want {
		t.Errorf("HashPassword = %s, expected %s", got, want)
	}
	if HashPassword("a") == HashPassword("b") {
		t.Error("distinct passwords hash identically")
	}
}

// writeTestArchive writes a single-entry zip, encrypted when password is
// non-empty.
func writeTestArchive(t *testing.T, path, password string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive: %v", err)
	}
	zw := zip.NewWriter(f)

	header := &zip.FileHeader{Name: "secret.txt", Method: zip.Deflate}
	if password != "" {
		header.SetPassword(password)
		header.SetEncryptionMethod(zip.StandardEncryption)
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		t.Fatalf("CreateHeader: %v", err)
	}
	if _, err := w.Write([]byte("classified contents")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
}

func TestIsEncrypted(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.zip")
	writeTestArchive(t, plain, "")
	if IsEncrypted(plain) {
		t.Error("plain archive reported encrypted")
	}

	encrypted := filepath.Join(dir, "encrypted.zip")
	writeTestArchive(t, encrypted, "hunter2")
	if !IsEncrypted(encrypted) {
		t.Error("encrypted archive reported plain")
	}

	if IsEncrypted(filepath.Join(dir, "missing.zip")) {
		t.Error("missing archive reported encrypted")
	}
}

func TestGetEncryptionInfo(t *testing.T) {
	dir := t.TempDir()

	encrypted := filepath.Join(dir, "encrypted.zip")
	writeTestArchive(t, encrypted, "hunter2")

	info := GetEncryptionInfo(encrypted)
	if !info.Encrypted {
		t.Error("Encrypted = false for encrypted archive")
	}
	if info.Scheme != "ZIP 2.0 (Legacy)" {
		t.Errorf("Scheme = %q, expected ZIP 2.0 (Legacy)", info.Scheme)
	}
	if info.EncryptedFiles != 1 || info.TotalFiles != 1 {
		t.Errorf("counts = %d/%d, expected 1/1", info.EncryptedFiles, info.TotalFiles)
	}

	plain := filepath.Join(dir, "plain.zip")
	writeTestArchive(t, plain, "")
	info = GetEncryptionInfo(plain)
	if info.Encrypted || info.Scheme != "None" {
		t.Errorf("plain archive info = %+v", info)
	}

	info = GetEncryptionInfo(filepath.Join(dir, "missing.zip"))
	if info.Scheme != "Unknown" || info.Err == "" {
		t.Errorf("missing archive info = %+v, expected zeroed result with Err set", info)
	}
	if info.TotalFiles != 0 || info.EncryptedFiles != 0 {
		t.Errorf("missing archive counts = %d/%d, expected 0/0", info.EncryptedFiles, info.TotalFiles)
	}
}

func TestTestArchivePassword(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.zip")
	writeTestArchive(t, path, "correct horse")

	if !TestArchivePassword(path, "correct horse") {
		t.Error("correct password rejected")
	}
	if TestArchivePassword(path, "wrong") {
		t.Error("wrong password accepted")
	}
	if TestArchivePassword(filepath.Join(dir, "missing.zip"), "any") {
		t.Error("missing archive accepted a password")
	}
}
