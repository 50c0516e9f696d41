package repack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.zstd", Zstd},
		{"a.zst", Zstd},
		{"a.tar.zst", TarZstd},
		{"x.y.z.tar.zstd", TarZstd},
		{"/tmp/dir/base.TAR.ZST", TarZstd},
		{"tar.zst", TarZstd},
		{"f.tzst", TarZstd},
		{"f.tzstd", TarZstd},
		{"f1.pax.gz", TarGz},
		{"f2.tar.gzip", TarGz},
		{"f3.tgz", TarGz},
		{"f3.tgzip", TarGz},
		{"f4.gzip", Gz},
		{"f4.gz", Gz},
		{"base.tar", Tar},
		{"base.pax", Tar},
		{"README", Unknown},
		{"archive.zip", Unknown},
		{"", Unknown},
		{"/", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path))
		})
	}
}

func TestFormat_MaxLevel(t *testing.T) {
	level, ok := TarZstd.MaxLevel()
	assert.True(t, ok)
	assert.Equal(t, 22, level)

	level, ok = Gz.MaxLevel()
	assert.True(t, ok)
	assert.Equal(t, 9, level)

	_, ok = Tar.MaxLevel()
	assert.False(t, ok)
	_, ok = Unknown.MaxLevel()
	assert.False(t, ok)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "Encode{level: 19}", Encode(19).String())
	assert.Equal(t, "Encode{level: 9}", EncodeDefault().String())
	assert.Equal(t, "Decode(outermost)", Decode().String())
	assert.Equal(t, "Decode(full)", DecodeFull().String())
}
