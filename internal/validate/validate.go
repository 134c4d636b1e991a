// Package validate checks archive integrity: structural validation,
// exhaustive per-entry checksum verification, and descriptive statistics.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yeka/zip"

	"github.com/Nady-Emad/zipman/internal/archive"
	"github.com/Nady-Emad/zipman/internal/compression"
)

// NoExtension is the histogram key for entries without a name suffix.
const NoExtension = "<no extension>"

// ValidateStructure checks that path names a readable, well-formed archive.
// It fails fast: the message names the first problem found, including the
// first entry whose content does not match its stored checksum. Encrypted
// entries are skipped in the content cross-check; their payloads cannot be
// verified without a password, so a valid verdict covers structure only for
// those entries.
func ValidateStructure(path string) (bool, string) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, "Archive file does not exist"
	}
	if err != nil {
		return false, fmt.Sprintf("Error validating archive: %v", err)
	}
	if info.IsDir() {
		return false, "Path is not a file"
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return false, "Invalid or corrupted ZIP file"
	}
	defer func() { _ = r.Close() }()
	compression.RegisterDecompressors(&r.Reader)

	// Reading every entry back cross-checks content against the stored
	// checksums.
	for _, f := range r.File {
		if f.FileInfo().IsDir() || f.IsEncrypted() {
			continue
		}
		if err := readEntry(f); err != nil {
			return false, fmt.Sprintf("Corrupted file found: %s", archive.DecodeName(f))
		}
	}
	return true, "Archive is valid"
}

// CRCReport is the outcome of exhaustive checksum verification.
type CRCReport struct {
	Valid         bool
	TotalFiles    int
	VerifiedFiles int
	FailedFiles   []string
	Errors        []string
}

// VerifyChecksums reads every non-directory entry in full, forcing checksum
// verification. Verification is exhaustive: a failing entry is recorded and
// the remaining entries are still checked.
func VerifyChecksums(path string) CRCReport {
	report := CRCReport{Valid: true}

	r, err := zip.OpenReader(path)
	if err != nil {
		report.Valid = false
		report.Errors = append(report.Errors, fmt.Sprintf("Error opening archive: %v", err))
		return report
	}
	defer func() { _ = r.Close() }()
	compression.RegisterDecompressors(&r.Reader)

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		report.TotalFiles++
		if err := readEntry(f); err != nil {
			name := archive.DecodeName(f)
			report.Valid = false
			report.FailedFiles = append(report.FailedFiles, name)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		report.VerifiedFiles++
	}
	return report
}

// readEntry decompresses one entry to completion; the checksum mismatch, if
// any, surfaces as the copy error.
func readEntry(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(io.Discard, rc)
	closeErr := rc.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// CheckCompressionRatio returns the archive-level space saving percentage.
func CheckCompressionRatio(path string) (float64, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	var compressed, uncompressed uint64
	for _, f := range r.File {
		compressed += f.CompressedSize64
		uncompressed += f.UncompressedSize64
	}
	return archive.Ratio(compressed, uncompressed), nil
}

// Stats holds descriptive statistics for an archive.
type Stats struct {
	FileCount         int
	DirCount          int
	TotalCompressed   uint64
	TotalUncompressed uint64
	CompressionRatio  float64
	ArchiveSize       int64
	Extensions        map[string]int
	Largest           *archive.Entry
}

// GetStats gathers statistics over all entries. Largest is nil when the
// archive holds no file entries.
func GetStats(path string) (Stats, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Stats{}, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	stats := Stats{Extensions: make(map[string]int)}
	for _, f := range r.File {
		stats.TotalCompressed += f.CompressedSize64
		stats.TotalUncompressed += f.UncompressedSize64

		if f.FileInfo().IsDir() {
			stats.DirCount++
			continue
		}
		stats.FileCount++

		name := archive.DecodeName(f)
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			ext = NoExtension
		}
		stats.Extensions[ext]++

		if stats.Largest == nil || f.UncompressedSize64 > stats.Largest.UncompressedSize {
			stats.Largest = &archive.Entry{
				Name:             name,
				UncompressedSize: f.UncompressedSize64,
				CompressedSize:   f.CompressedSize64,
				Method:           f.Method,
				CRC32:            f.CRC32,
				Modified:         f.ModTime(),
				Encrypted:        f.IsEncrypted(),
			}
		}
	}
	stats.CompressionRatio = archive.Ratio(stats.TotalCompressed, stats.TotalUncompressed)

	if info, statErr := os.Stat(path); statErr == nil {
		stats.ArchiveSize = info.Size()
	}
	return stats, nil
}

// ValidatePath rejects empty paths, missing paths when mustExist is set,
// and characters the platform's filesystem cannot store.
func ValidatePath(path string, mustExist bool) (bool, string) {
	if path == "" {
		return false, "Path cannot be empty"
	}
	if mustExist {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return false, "Path does not exist"
		}
	}
	if runtime.GOOS == "windows" && strings.ContainsAny(path, `<>"|?*`) {
		return false, "Path contains invalid characters"
	}
	return true, "Path is valid"
}
