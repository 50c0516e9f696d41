package domain

import "time"

// Digests is the release digest report.
type Digests struct {
	OS []OSDigest `yaml:"os" json:"os"`
}

// OSDigest describes one OS release and its per-architecture images.
type OSDigest struct {
	Name     string     `yaml:"name" json:"name"`
	Codename string     `yaml:"codename" json:"codename"`
	Series   string     `yaml:"series,omitempty" json:"series,omitempty"`
	Version  string     `yaml:"version" json:"version"`
	Docker   DockerInfo `yaml:"docker" json:"docker"`
	Tag      []MainTag  `yaml:"tag" json:"tag"`
}

// DockerInfo is the container metadata of an OS release or of one tag.
type DockerInfo struct {
	Platform     string         `yaml:"platform,omitempty" json:"platform,omitempty"`
	OCIPlatforms []string       `yaml:"oci-platforms,omitempty" json:"oci-platforms,omitempty"`
	RepoDigests  []string       `yaml:"repo-digests,omitempty" json:"repo-digests,omitempty"`
	Comment      string         `yaml:"cmt,omitempty" json:"cmt,omitempty"`
	Mirror       []DockerMirror `yaml:"mirror" json:"mirror"`
}

// DockerMirror lists the repositories of one registry.
type DockerMirror struct {
	Name         string   `yaml:"name" json:"name"`
	Repositories []string `yaml:"repositories" json:"repositories"`
	RepoDigests  []string `yaml:"repo-digests,omitempty" json:"repo-digests,omitempty"`
}

// MainTag describes the image and archive of one architecture.
type MainTag struct {
	Name     string      `yaml:"name" json:"name"`
	Arch     string      `yaml:"arch" json:"arch"`
	DateTime DateTime    `yaml:"datetime" json:"datetime"`
	Docker   DockerInfo  `yaml:"docker" json:"docker"`
	File     ArchiveFile `yaml:"file" json:"file"`
}

// DateTime pairs the build time with the report generation time.
type DateTime struct {
	Build  *time.Time `yaml:"build,omitempty" json:"build,omitempty"`
	Update *time.Time `yaml:"update,omitempty" json:"update,omitempty"`
}

// ArchiveFile describes a compressed release archive.
type ArchiveFile struct {
	Name         string       `yaml:"name" json:"name"`
	Size         FileSize     `yaml:"size" json:"size"`
	ModifiedTime *time.Time   `yaml:"modified-time,omitempty" json:"modified-time,omitempty"`
	Zstd         *ZstdInfo    `yaml:"zstd,omitempty" json:"zstd,omitempty"`
	Digest       []HashDigest `yaml:"digest" json:"digest"`
	Mirror       []FileMirror `yaml:"mirror" json:"mirror"`
}

// FileSize records compressed and uncompressed sizes.
type FileSize struct {
	Bytes       uint64 `yaml:"bytes" json:"bytes"`
	Readable    string `yaml:"readable" json:"readable"`
	TarBytes    uint64 `yaml:"tar-bytes" json:"tar-bytes"`
	TarReadable string `yaml:"tar-readable" json:"tar-readable"`
	Comment     string `yaml:"cmt,omitempty" json:"cmt,omitempty"`
}

// ZstdInfo records the compression parameters of an archive.
type ZstdInfo struct {
	Level        int  `yaml:"level" json:"level"`
	LongDistance bool `yaml:"long-distance" json:"long-distance"`
	Dict         bool `yaml:"dict" json:"dict"`
}

// HashDigest is one checksum of an archive.
type HashDigest struct {
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	Hex       string `yaml:"hex" json:"hex"`
	Comment   string `yaml:"cmt,omitempty" json:"cmt,omitempty"`
}

// FileMirror is a download location of an archive.
type FileMirror struct {
	Name    string `yaml:"name" json:"name"`
	URL     string `yaml:"url" json:"url"`
	Comment string `yaml:"cmt,omitempty" json:"cmt,omitempty"`
}
