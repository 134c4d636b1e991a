// Package archive implements the ZIP engine: creating archives from files
// and directories, extracting them, and listing and summarizing their
// contents, with per-entry progress reporting throughout.
package archive

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yeka/zip"

	"github.com/Nady-Emad/zipman/internal/compression"
	"github.com/Nady-Emad/zipman/internal/progress"
)

// Entry describes one record inside an archive.
type Entry struct {
	Name             string
	IsDir            bool
	UncompressedSize uint64
	CompressedSize   uint64
	Method           uint16
	CRC32            uint32
	Modified         time.Time
	Encrypted        bool
}

// Result is the outcome of a single create or extract call. Err carries a
// human-readable message and is empty iff the operation succeeded.
type Result struct {
	Success bool
	Err     string
}

// Info summarizes an archive for display.
type Info struct {
	FileCount         int
	TotalCompressed   uint64
	TotalUncompressed uint64
	CompressionRatio  float64
	ArchiveSize       int64
}

// Manager performs operations on single archives. Each Manager owns one
// progress tracker and must not be shared by concurrently running
// operations.
type Manager struct {
	tracker *progress.Tracker

	// Exclude lists base-name patterns skipped when archiving directory
	// sources, e.g. ".DS_Store" or "*.tmp".
	Exclude []string
}

// New creates a Manager reporting progress through callback. A nil callback
// disables notifications.
func New(callback progress.Callback) *Manager {
	return &Manager{tracker: progress.NewTracker(callback)}
}

// NewWithTracker creates a Manager that reports through an existing tracker.
func NewWithTracker(t *progress.Tracker) *Manager {
	return &Manager{tracker: t}
}

// Tracker returns the manager's progress tracker.
func (m *Manager) Tracker() *progress.Tracker {
	return m.tracker
}

// Create builds a ZIP archive at archivePath from the given source paths.
// File sources are stored under their base name, directory sources under
// the directory's own name as a top-level prefix; a non-empty baseDir makes
// every entry name relative to it instead. A non-empty password encrypts
// all entries with the legacy ZipCrypto scheme. Failures are reported
// through the tracker and the returned Result, never as a panic.
func (m *Manager) Create(archivePath string, sources []string, method compression.Method, password, baseDir string) Result {
	if err := m.create(archivePath, sources, method, password, baseDir); err != nil {
		msg := fmt.Sprintf("Error creating archive: %v", err)
		m.tracker.Error(msg)
		return Result{Err: msg}
	}
	m.tracker.Complete(fmt.Sprintf("Archive created: %s", archivePath))
	return Result{Success: true}
}

func (m *Manager) create(archivePath string, sources []string, method compression.Method, password, baseDir string) (err error) {
	total, err := m.countFiles(sources)
	if err != nil {
		return err
	}
	m.tracker.Start(total, "Starting...")

	zipFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	zw := zip.NewWriter(zipFile)
	compression.RegisterCompressors(zw)
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing zip writer: %w", cerr)
		}
		if cerr := zipFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing archive file: %w", cerr)
		}
	}()

	for _, source := range sources {
		info, statErr := os.Stat(source)
		if statErr != nil {
			return fmt.Errorf("reading source: %w", statErr)
		}

		if !info.IsDir() {
			name := arcname(source, baseDir)
			if wErr := writeEntry(zw, source, name, info, method, password); wErr != nil {
				return wErr
			}
			m.tracker.Increment("Adding: " + filepath.Base(source))
			continue
		}

		// Directory source: archive the whole subtree. Without a baseDir
		// the directory's own name becomes the top-level prefix.
		root := baseDir
		if root == "" {
			root = filepath.Dir(source)
		}
		walkErr := filepath.Walk(source, func(path string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if m.shouldExclude(path) {
				if fi.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if fi.IsDir() {
				return nil
			}
			name := arcname(path, root)
			if wErr := writeEntry(zw, path, name, fi, method, password); wErr != nil {
				return wErr
			}
			m.tracker.Increment("Adding: " + fi.Name())
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}
	return nil
}

// arcname computes the archive-internal name for a source path: its path
// relative to baseDir when given, its base name otherwise. Names always use
// forward slashes.
func arcname(path, baseDir string) string {
	if baseDir == "" {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// writeEntry adds one file to the archive.
func writeEntry(zw *zip.Writer, path, name string, info os.FileInfo, method compression.Method, password string) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("building header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = uint16(method)
	if password != "" {
		header.SetPassword(password)
		header.SetEncryptionMethod(zip.StandardEncryption)
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	_, copyErr := io.Copy(w, file)
	_ = file.Close() // data already copied, close error is irrelevant
	if copyErr != nil {
		return fmt.Errorf("compressing %s: %w", name, copyErr)
	}
	return nil
}

// countFiles walks all sources and returns the number of file entries the
// archive will contain. Used to seed the progress total before writing.
func (m *Manager) countFiles(sources []string) (int, error) {
	total := 0
	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return 0, fmt.Errorf("reading source: %w", err)
		}
		if !info.IsDir() {
			total++
			continue
		}
		err = filepath.Walk(source, func(path string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if m.shouldExclude(path) {
				if fi.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !fi.IsDir() {
				total++
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// shouldExclude checks a path's base name against the exclusion patterns.
func (m *Manager) shouldExclude(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range m.Exclude {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Extract writes the archive's entries under destDir. A nil members slice
// extracts everything in stored order; otherwise only the named members are
// extracted, and naming a missing member is a failure. password decrypts
// encrypted entries.
func (m *Manager) Extract(archivePath, destDir, password string, members []string) Result {
	if err := m.extract(archivePath, destDir, password, members); err != nil {
		msg := fmt.Sprintf("Error extracting archive: %v", err)
		m.tracker.Error(msg)
		return Result{Err: msg}
	}
	m.tracker.Complete(fmt.Sprintf("Extraction complete: %s", destDir))
	return Result{Success: true}
}

func (m *Manager) extract(archivePath, destDir, password string, members []string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = r.Close() }()
	compression.RegisterDecompressors(&r.Reader)

	files := r.File
	if members != nil {
		byName := make(map[string]*zip.File, len(r.File))
		for _, f := range r.File {
			byName[f.Name] = f
		}
		files = make([]*zip.File, 0, len(members))
		for _, name := range members {
			f, ok := byName[name]
			if !ok {
				return fmt.Errorf("member not found in archive: %s", name)
			}
			files = append(files, f)
		}
	}

	m.tracker.Start(len(files), "Starting...")

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving destination path: %w", err)
	}
	absDest = filepath.Clean(absDest)
	if err := os.MkdirAll(absDest, 0755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	for _, f := range files {
		name := DecodeName(f)
		if err := extractFile(f, name, absDest, password); err != nil {
			return fmt.Errorf("extracting %s: %w", name, err)
		}
		m.tracker.Increment("Extracting: " + name)
	}
	return nil
}

// MaxDecompressSize caps a single entry's uncompressed size (10GB) to stop
// decompression bombs.
const MaxDecompressSize = 10 * 1024 * 1024 * 1024

// extractFile writes one entry below destDir under its decoded name,
// refusing symlinks, path traversal, and entries whose content exceeds the
// declared size.
func extractFile(f *zip.File, name, absDest, password string) error {
	// Block symlinks; a later entry could write through one.
	if f.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("symlink entries are not supported")
	}

	target := filepath.Join(absDest, filepath.FromSlash(name))
	if !isWithinDir(absDest, target) {
		return fmt.Errorf("invalid file path (path traversal detected)")
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, os.ModePerm)
	}

	if f.UncompressedSize64 > MaxDecompressSize {
		return fmt.Errorf("entry too large: %d bytes exceeds limit of %d bytes", f.UncompressedSize64, MaxDecompressSize)
	}

	if f.IsEncrypted() {
		if password == "" {
			return fmt.Errorf("password required for encrypted entry")
		}
		f.SetPassword(password)
	}

	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	limited := io.LimitReader(rc, int64(f.UncompressedSize64)+1)
	written, err := io.Copy(out, limited)
	if err != nil {
		return err
	}
	if written > int64(f.UncompressedSize64) {
		return fmt.Errorf("decompressed size exceeds declared size")
	}
	return nil
}

// isWithinDir checks that target stays below absBase after cleaning.
func isWithinDir(absBase, target string) bool {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absTarget = filepath.Clean(absTarget)
	return absTarget == absBase ||
		strings.HasPrefix(absTarget, absBase+string(filepath.Separator))
}

// List returns the archive's entries in stored order with names decoded to
// UTF-8. password is accepted for parity with encrypted archives but entry
// metadata is readable without it.
func (m *Manager) List(archivePath, password string) ([]Entry, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		err = fmt.Errorf("opening archive: %w", err)
		m.tracker.Error(fmt.Sprintf("Error listing archive contents: %v", err))
		return nil, err
	}
	defer func() { _ = r.Close() }()

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		if f.IsEncrypted() && password != "" {
			f.SetPassword(password)
		}
		entries = append(entries, Entry{
			Name:             DecodeName(f),
			IsDir:            f.FileInfo().IsDir(),
			UncompressedSize: f.UncompressedSize64,
			CompressedSize:   f.CompressedSize64,
			Method:           f.Method,
			CRC32:            f.CRC32,
			Modified:         f.ModTime(),
			Encrypted:        f.IsEncrypted(),
		})
	}
	return entries, nil
}

// GetInfo summarizes the archive: entry count, aggregate sizes, and the
// overall compression ratio. A zero uncompressed total yields ratio 0.
func (m *Manager) GetInfo(archivePath string) (Info, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		err = fmt.Errorf("opening archive: %w", err)
		m.tracker.Error(fmt.Sprintf("Error getting archive info: %v", err))
		return Info{}, err
	}
	defer func() { _ = r.Close() }()

	info := Info{FileCount: len(r.File)}
	for _, f := range r.File {
		info.TotalCompressed += f.CompressedSize64
		info.TotalUncompressed += f.UncompressedSize64
	}
	info.CompressionRatio = Ratio(info.TotalCompressed, info.TotalUncompressed)

	if stat, statErr := os.Stat(archivePath); statErr == nil {
		info.ArchiveSize = stat.Size()
	}
	return info, nil
}

// Ratio returns the space saving as a percentage, 0 when nothing was
// uncompressed. STORE and incompressible data can drive it negative; that
// is reported as-is rather than clamped.
func Ratio(compressed, uncompressed uint64) float64 {
	if uncompressed == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(uncompressed)) * 100
}

// SafeSize converts a uint64 size to int64, saturating at MaxInt64.
func SafeSize(size uint64) int64 {
	if size > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(size)
}
