package out

import (
	"io/fs"

	"github.com/2cd/getctr/internal/domain"
)

// ArtifactStore persists side-car files and other build artifacts.
type ArtifactStore interface {
	// Save encodes v into path, creating parent directories.
	Save(path string, v any) error

	// Load decodes path into v. A missing file yields a *domain.SidecarError.
	Load(path string, v any) error

	WriteFile(path string, data []byte) error
	MkdirAll(path string) error
	Exists(path string) bool
	Stat(path string) (fs.FileInfo, error)
}

// Hasher computes archive checksums as lowercase hex.
type Hasher interface {
	Blake3(path string) (string, error)
	SHA256(path string) (string, error)
}

// ReportWriter writes a digest report to dst. An empty or extension-less dst
// goes to stdout.
type ReportWriter interface {
	Write(report *domain.Digests, dst string) error
}
