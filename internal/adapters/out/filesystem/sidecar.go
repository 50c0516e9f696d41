// Package filesystem stores release artifacts and side-car files.
package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
)

// SidecarStore implements out.ArtifactStore. Values are encoded as YAML.
type SidecarStore struct {
	fs  afero.Fs
	log zerowrap.Logger
}

var _ out.ArtifactStore = (*SidecarStore)(nil)

// NewSidecarStore creates a store on fsys. Use afero.NewOsFs for the real
// filesystem.
func NewSidecarStore(fsys afero.Fs, log zerowrap.Logger) *SidecarStore {
	return &SidecarStore{
		fs:  fsys,
		log: log,
	}
}

// Save encodes v as YAML into path.
func (s *SidecarStore) Save(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := s.WriteFile(path, data); err != nil {
		return err
	}
	s.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "filesystem").
		Str(zerowrap.FieldPath, path).
		Msg("side-car written")
	return nil
}

// Load decodes the YAML file at path into v.
func (s *SidecarStore) Load(path string, v any) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.SidecarError{Path: path, Err: err}
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteFile writes data to path, creating parent directories.
func (s *SidecarStore) WriteFile(path string, data []byte) error {
	if err := s.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// MkdirAll creates path and its parents.
func (s *SidecarStore) MkdirAll(path string) error {
	if err := s.fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (s *SidecarStore) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// Stat returns file information for path.
func (s *SidecarStore) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}
