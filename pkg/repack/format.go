// Package repack converts archives between tar, gzip and zstd representations.
package repack

import (
	"path/filepath"
	"strings"
)

// Format is an archive representation inferred from a file name.
type Format int

const (
	Unknown Format = iota
	TarZstd
	Zstd
	TarGz
	Gz
	Tar
)

func (f Format) String() string {
	switch f {
	case TarZstd:
		return "tar.zst"
	case Zstd:
		return "zst"
	case TarGz:
		return "tar.gz"
	case Gz:
		return "gz"
	case Tar:
		return "tar"
	default:
		return "unknown"
	}
}

// MaxLevel returns the highest compression level of the format, or false
// if the format is not compressed.
func (f Format) MaxLevel() (int, bool) {
	switch f {
	case Zstd, TarZstd:
		return 22, true
	case Gz, TarGz:
		return 9, true
	default:
		return 0, false
	}
}

// IsTar reports whether f is an uncompressed tar archive.
func (f Format) IsTar() bool {
	return f == Tar
}

// DetectFormat classifies path by the lowercased last one or two
// dot-separated segments of its file name.
//
//	a.zstd          => Zstd
//	a.tar.zst       => TarZstd
//	x.y.z.tar.zstd  => TarZstd
//	f1.pax.gz       => TarGz
//	f3.tgz          => TarGz
//	f4.gzip         => Gz
//
// For files that already exist the magic bytes would be more accurate, but
// targets usually do not exist yet.
func DetectFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Unknown
	}

	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return Unknown
	}

	last := parts[len(parts)-1]
	prev := parts[len(parts)-2]
	tarPrev := prev == "tar" || prev == "pax"

	switch {
	case tarPrev && (last == "zst" || last == "zstd"), last == "tzst" || last == "tzstd":
		return TarZstd
	case tarPrev && (last == "gz" || last == "gzip"), last == "tgz" || last == "tgzip":
		return TarGz
	case last == "zst" || last == "zstd":
		return Zstd
	case last == "gz" || last == "gzip":
		return Gz
	case last == "tar" || last == "pax":
		return Tar
	default:
		return Unknown
	}
}
