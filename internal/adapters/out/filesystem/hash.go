package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/2cd/getctr/internal/boundaries/out"
)

// FileHasher implements out.Hasher by streaming files from an afero.Fs.
type FileHasher struct {
	fs afero.Fs
}

var _ out.Hasher = (*FileHasher)(nil)

func NewFileHasher(fsys afero.Fs) *FileHasher {
	return &FileHasher{fs: fsys}
}

// Blake3 returns the 256-bit BLAKE3 digest of path.
func (h *FileHasher) Blake3(path string) (string, error) {
	return h.sum(path, blake3.New())
}

// SHA256 returns the SHA-256 digest of path.
func (h *FileHasher) SHA256(path string) (string, error) {
	return h.sum(path, sha256.New())
}

func (h *FileHasher) sum(path string, hasher hash.Hash) (string, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
