// Package compression maps symbolic compression methods to their ZIP codec
// identifiers and wires the non-standard codecs into zip readers and writers.
package compression

import (
	"compress/bzip2"
	"io"
	"strings"
	"sync"

	dbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/yeka/zip"
)

// Method is a ZIP compression method. The numeric values are part of the
// on-disk format and must match other ZIP tools exactly.
type Method uint16

const (
	Store   Method = 0
	Deflate Method = 8
	BZip2   Method = 12
	LZMA    Method = 14
)

// Info describes a compression method for display purposes only; none of
// these fields participate in any decision logic.
type Info struct {
	Name        string
	Description string
	Speed       string
	Ratio       string
	CPUUsage    string
}

var infoTable = map[Method]Info{
	Store: {
		Name:        "Store (No Compression)",
		Description: "Files are stored without compression",
		Speed:       "Very Fast",
		Ratio:       "None",
		CPUUsage:    "Very Low",
	},
	Deflate: {
		Name:        "Deflate (Standard)",
		Description: "Standard ZIP compression using the DEFLATE algorithm",
		Speed:       "Fast",
		Ratio:       "Good",
		CPUUsage:    "Low",
	},
	BZip2: {
		Name:        "BZIP2",
		Description: "Better compression ratio, slower than DEFLATE",
		Speed:       "Medium",
		Ratio:       "Better",
		CPUUsage:    "Medium",
	},
	LZMA: {
		Name:        "LZMA",
		Description: "Best compression ratio, slowest compression",
		Speed:       "Slow",
		Ratio:       "Best",
		CPUUsage:    "High",
	},
}

// Methods returns all supported methods in ascending codec-id order.
func Methods() []Method {
	return []Method{Store, Deflate, BZip2, LZMA}
}

// Info returns the display metadata for the method.
func (m Method) Info() Info {
	return infoTable[m]
}

// Name returns the human-readable name for the method.
func (m Method) Name() string {
	if info, ok := infoTable[m]; ok {
		return info.Name
	}
	return "Unknown"
}

// String returns the symbolic lowercase name used on the CLI.
func (m Method) String() string {
	switch m {
	case Store:
		return "store"
	case Deflate:
		return "deflate"
	case BZip2:
		return "bzip2"
	case LZMA:
		return "lzma"
	}
	return "unknown"
}

// FromName maps a symbolic name to a Method. Matching is case-insensitive
// and unrecognized input falls back to Deflate rather than failing.
func FromName(name string) Method {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "store":
		return Store
	case "deflate":
		return Deflate
	case "bzip2":
		return BZip2
	case "lzma":
		return LZMA
	}
	return Deflate
}

// TypeName returns a short display name for a raw codec id found in an
// archive, including ids zipman does not write itself.
func TypeName(id uint16) string {
	switch Method(id) {
	case Store:
		return "Stored"
	case Deflate:
		return "Deflate"
	case BZip2:
		return "BZIP2"
	case LZMA:
		return "LZMA"
	}
	return "Unknown"
}

// RegisterCompressors makes the BZIP2 and LZMA encoders available to w.
// Must be called before any entry is written. The zip library keeps one
// package-global codec registry, so the first call installs them for every
// writer and later calls are no-ops.
func RegisterCompressors(w *zip.Writer) {
	registerCodecs()
}

// RegisterDecompressors makes the BZIP2 and LZMA decoders available to r so
// that archives written with those methods can be read back.
func RegisterDecompressors(r *zip.Reader) {
	registerCodecs()
}

var codecsOnce sync.Once

// registerCodecs installs the non-standard codecs in the zip library's
// global registry. Registering a method twice panics there, hence the guard.
// DEFLATE stays on the library's built-in encoder; the registry refuses to
// override built-in methods.
func registerCodecs() {
	codecsOnce.Do(func() {
		zip.RegisterCompressor(uint16(BZip2), func(out io.Writer) (io.WriteCloser, error) {
			return dbzip2.NewWriter(out, &dbzip2.WriterConfig{Level: dbzip2.DefaultCompression})
		})
		zip.RegisterCompressor(uint16(LZMA), func(out io.Writer) (io.WriteCloser, error) {
			return newLZMAWriter(out)
		})
		zip.RegisterDecompressor(uint16(BZip2), func(in io.Reader) io.ReadCloser {
			return io.NopCloser(bzip2.NewReader(in))
		})
		zip.RegisterDecompressor(uint16(LZMA), newLZMAReader)
	})
}
