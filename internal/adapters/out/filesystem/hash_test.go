package filesystem

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHasher(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/w/empty.tar.zst", nil, 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/w/abc.tar.zst", []byte("abc"), 0o644))
	h := NewFileHasher(fsys)

	sum, err := h.Blake3("/w/empty.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", sum)

	sum, err = h.SHA256("/w/empty.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)

	sum, err = h.Blake3("/w/abc.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85", sum)

	sum, err = h.SHA256("/w/abc.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}

func TestFileHasher_MissingFile(t *testing.T) {
	h := NewFileHasher(afero.NewMemMapFs())

	_, err := h.Blake3("/w/missing.tar.zst")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open /w/missing.tar.zst")
}
