package repack

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzipMembers(t *testing.T, path string, members ...[]byte) {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range members {
		w := gzip.NewWriter(&buf)
		_, err := w.Write(m)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestJob_DecodeGzip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "base.tgz")
	dst := filepath.Join(dir, "base.tar")
	writeGzipMembers(t, src, []byte("hello archive"))

	require.NoError(t, New(src, dst).Run())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello archive", string(got))
	assert.FileExists(t, src, "decode must keep the source")
}

func TestJob_DecodeGzip_MultiMember(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "joined.gz")
	dst := filepath.Join(dir, "joined.txt")
	writeGzipMembers(t, src, []byte("first,"), []byte("second,"), []byte("third"))

	require.NoError(t, New(src, dst).Run())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "first,second,third", string(got))
}

func TestJob_EncodeZstd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rootfs.tar")
	dst := filepath.Join(dir, "rootfs.tar.zst")
	payload := bytes.Repeat([]byte("debian potato "), 4096)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	require.NoError(t, New(src, dst).WithOperation(Encode(19)).Run())

	compressed, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(payload))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, plain)
}

func TestJob_EncodeOverwritesTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tar")
	dst := filepath.Join(dir, "a.zst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, bytes.Repeat([]byte("stale"), 1000), 0o644))

	require.NoError(t, New(src, dst).WithOperation(EncodeDefault()).Run())

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	compressed, err := os.ReadFile(dst)
	require.NoError(t, err)
	plain, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	assert.Equal(t, "new", string(plain))
}

func TestJob_EncodeWithMaxLevel(t *testing.T) {
	job := New("a.tar", "a.tar.zst").EncodeWithMaxLevel()
	assert.Equal(t, Encode(22), job.Operation)

	job = New("a.tar", "a.tar").EncodeWithMaxLevel()
	assert.Equal(t, Encode(DefaultLevel), job.Operation)
}

func TestJob_InvalidLevel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tar")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := New(src, filepath.Join(dir, "a.tar.zst")).WithOperation(Encode(23)).Run()
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestJob_Unsupported(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		dst    string
		op     Operation
	}{
		{"encode to gzip", "a.tar", "a.tar.gz", Encode(9)},
		{"decode zstd", "a.tar.zst", "a.tar", Decode()},
		{"full decode", "a.tgz", "a", DecodeFull()},
		{"decode plain tar", "a.tar", "b.tar", Decode()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.src, tt.dst).WithOperation(tt.op).Run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupported))

			var unsupported *UnsupportedError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tt.op, unsupported.Op)
			assert.Equal(t, tt.src, unsupported.Source.Path)
		})
	}
}

func TestEncoderLevel(t *testing.T) {
	testCases := []struct {
		level    int
		expected zstd.EncoderLevel
	}{
		{0, zstd.SpeedFastest},
		{2, zstd.SpeedFastest},
		{3, zstd.SpeedDefault},
		{5, zstd.SpeedDefault},
		{6, zstd.SpeedBetterCompression},
		{9, zstd.SpeedBetterCompression},
		{10, zstd.SpeedBestCompression},
		{19, zstd.SpeedBestCompression},
		{22, zstd.SpeedBestCompression},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, EncoderLevel(tc.level), "level %d", tc.level)
	}
}
