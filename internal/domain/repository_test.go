package domain

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRepository(t *testing.T, codename, series, version, arch string, opts RepositoryOptions) *Repository {
	t.Helper()
	r, err := NewRepository(codename, series, version, arch, opts)
	require.NoError(t, err)
	return r
}

func TestNewRepository_Defaults(t *testing.T) {
	r := mustRepository(t, "Potato", "Potato", "2.2", "x86", RepositoryOptions{Tag: "   "})

	assert.Equal(t, DefaultOwner, r.Owner)
	assert.Equal(t, DefaultProject, r.Project)
	assert.Equal(t, DefaultOSName, r.OSName)
	assert.Equal(t, UnsetDate, r.Date)
	assert.Equal(t, "potato", r.Series)
	assert.Equal(t, "Potato", r.Codename)
	assert.False(t, r.HasTag(), "blank tag collapses to no tag")
}

func TestNewRepository_RequiredFields(t *testing.T) {
	tests := []struct {
		name                  string
		series, version, arch string
		field                 string
	}{
		{"empty arch", "potato", "2.2", "", "arch"},
		{"blank series", "  ", "2.2", "x86", "series"},
		{"empty version", "potato", "", "x86", "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository("Potato", tt.series, tt.version, tt.arch, RepositoryOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDescriptor))

			var descErr *DescriptorError
			require.ErrorAs(t, err, &descErr)
			assert.Equal(t, tt.field, descErr.Field)
		})
	}
}

func TestRepository_BaseName(t *testing.T) {
	tests := []struct {
		name string
		opts RepositoryOptions
		want string
	}{
		{"no tag no date", RepositoryOptions{}, "2.2_potato_x86"},
		{"sentinel date", RepositoryOptions{Date: UnsetDate}, "2.2_potato_x86"},
		{"tag only", RepositoryOptions{Tag: "base"}, "2.2_potato_x86_base"},
		{"date only", RepositoryOptions{Date: "2001-06-14"}, "2.2_potato_x86_2001-06-14"},
		{"tag and date", RepositoryOptions{Tag: "base", Date: "2001-06-14"}, "2.2_potato_x86_base_2001-06-14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRepository(t, "Potato", "potato", "2.2", "x86", tt.opts)
			assert.Equal(t, tt.want, r.BaseName())
			assert.Equal(t, r.BaseName(), r.BaseName())
		})
	}
}

func TestRepository_Paths(t *testing.T) {
	r := mustRepository(t, "Hamm", "hamm", "2.0", "x86", RepositoryOptions{Date: "1998-07-21"})
	workdir := filepath.Join("/srv", "tmp")

	tar := r.TarFile(workdir)
	assert.Equal(t, "2.0_hamm_x86_1998-07-21.tar", tar.Name)
	assert.Equal(t, filepath.Join(workdir, "2.0_hamm_x86_1998-07-21", "docker"), tar.Dir)
	assert.Equal(t, filepath.Join(tar.Dir, tar.Name), tar.Path)

	assert.Equal(t, filepath.Join(workdir, "2.0_hamm_x86_1998-07-21.tgz"), r.DownloadFile(workdir))
	assert.Equal(t, filepath.Join(workdir, "zstd", "2.0_hamm_x86_1998-07-21.tar.zst"), r.ZstdFile(workdir))

	assert.Equal(t, "2.0-hamm.yaml", r.RepoMapFileName())
	assert.Equal(t, "2.0-hamm.platforms.yaml", r.PlatformsFileName())
	assert.Equal(t, "2.0-hamm.repo-digests", r.RepoDigestsFileName())

	tagged := mustRepository(t, "Potato", "potato", "2.2", "x86", RepositoryOptions{Tag: "base"})
	assert.Equal(t, "2.2-potato-base.yaml", tagged.RepoMapFileName())
}

func TestRepository_TitleAndReleaseTag(t *testing.T) {
	r := mustRepository(t, "Potato", "potato", "2.2", "x86", RepositoryOptions{Tag: "base", TitleDate: "2000-08-15"})
	assert.Equal(t, "2.2 Potato (base, 2000-08-15)", r.Title())
	assert.Equal(t, "2.2-base", r.ReleaseTag())
	assert.Equal(t, 2000, r.TitleYear(2020))

	plain := mustRepository(t, "Bo", "bo", "1.3", "x86", RepositoryOptions{})
	assert.Equal(t, "1.3 Bo", plain.Title())
	assert.Equal(t, "1.3", plain.ReleaseTag())
	assert.Equal(t, 2020, plain.TitleYear(2020))
}

func TestRepository_RequiresXterm(t *testing.T) {
	assert.True(t, mustRepository(t, "Woody", "woody", "3.0", "x86", RepositoryOptions{}).RequiresXterm())
	assert.False(t, mustRepository(t, "Buster", "buster", "10", "x64", RepositoryOptions{}).RequiresXterm())
}

func TestRepository_GitHubRepo(t *testing.T) {
	assert.Equal(t, "debian-museum", mustRepository(t, "Sid", "sid", "sid", "x64", RepositoryOptions{Project: "debian-sid"}).GitHubRepo())
	assert.Equal(t, "ubuntu-museum", mustRepository(t, "Warty", "warty", "4.10", "x64", RepositoryOptions{Project: "ubuntu"}).GitHubRepo())
}
