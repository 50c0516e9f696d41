package domain

import "time"

// Side-car file names inside a descriptor's build directory.
const (
	SidecarGHCRTags    = "ghcr.yaml"
	SidecarRegTags     = "reg.yaml"
	SidecarTagName     = "tag.yaml"
	SidecarZstd        = "zstd.yaml"
	SidecarBuildTime   = "build-time.yaml"
	SidecarGHCRDigests = "ghcr.repo-digests"
	SidecarRegDigests  = "reg.repo-digests"
	DockerfileName     = "Dockerfile"
	DockerIgnoreName   = ".dockerignore"
	RootfsDirName      = "rootfs"
	MirrorsDirName     = "mirrors"
)

// DefaultZstdLevel is the release pipeline's compression level.
const DefaultZstdLevel = 19

// TarFile locates a descriptor's uncompressed archive.
type TarFile struct {
	Name string
	Path string
	// Dir is the build directory that also holds side-cars and the Dockerfile.
	Dir string
}

// ZstdOp records how an archive was compressed.
type ZstdOp struct {
	Path  string `yaml:"path" json:"path"`
	Level int    `yaml:"level" json:"level"`
}

// BuildTime is the side-car recording when acquisition started.
type BuildTime struct {
	Time time.Time `yaml:"time" json:"time"`
}

// RepoDigestMap groups pushed manifest digests ("repo@sha256:...") by
// registry kind name.
type RepoDigestMap map[string][]string
