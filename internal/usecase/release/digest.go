package release

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/pkg/archmap"
)

const githubReleases = "https://github.com/%s/%s/releases/download/%s/%s"

// digest assembles the report from the side-cars of the live batch and
// writes it to every requested destination.
func (p *pipeline) digest(_ context.Context) error {
	report, err := p.report(p.live)
	if err != nil {
		return err
	}
	dsts := p.plan.DigestFiles
	if len(dsts) == 0 {
		dsts = []string{""}
	}
	for _, dst := range dsts {
		if err := p.reports.Write(report, dst); err != nil {
			return fmt.Errorf("failed to write digest report: %w", err)
		}
	}
	return nil
}

func (s *Service) report(repos []*domain.Repository) (*domain.Digests, error) {
	osDigest, err := s.osDigest(repos[0])
	if err != nil {
		return nil, err
	}
	for _, r := range repos {
		tag, err := s.mainTag(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.BaseName(), err)
		}
		osDigest.Tag = append(osDigest.Tag, tag)
	}
	return &domain.Digests{OS: []domain.OSDigest{osDigest}}, nil
}

// osDigest builds the release-level block from the batch side-cars.
func (s *Service) osDigest(r *domain.Repository) (domain.OSDigest, error) {
	m := domain.NewRepoMap()
	if err := s.store.Load(s.batchFile(r.RepoMapFileName()), m); err != nil {
		return domain.OSDigest{}, err
	}
	var pushed domain.RepoDigestMap
	if err := s.store.Load(s.batchFile(r.RepoDigestsFileName()), &pushed); err != nil {
		return domain.OSDigest{}, err
	}
	var platforms []string
	if err := s.store.Load(s.batchFile(r.PlatformsFileName()), &platforms); err != nil {
		return domain.OSDigest{}, err
	}

	var ghcr, reg []string
	for _, key := range m.Keys() {
		if key.Kind == domain.KindGHCR {
			ghcr = append(ghcr, key.Name)
		} else {
			reg = append(reg, key.Name)
		}
	}

	docker := domain.DockerInfo{
		OCIPlatforms: platforms,
		Mirror: []domain.DockerMirror{
			{Name: domain.KindGHCR.String(), Repositories: ghcr, RepoDigests: sortedUnique(pushed[domain.KindGHCR.String()])},
			{Name: domain.KindReg.String(), Repositories: reg, RepoDigests: sortedUnique(pushed[domain.KindReg.String()])},
		},
	}
	if run := firstOf(ghcr, reg); run != "" {
		docker.Comment = "Usage:\n    docker run -it --rm " + run
	}

	return domain.OSDigest{
		Name:     r.OSName,
		Codename: r.Codename,
		Series:   r.Series,
		Version:  r.Version,
		Docker:   docker,
	}, nil
}

// mainTag builds the per-architecture block of r.
func (s *Service) mainTag(r *domain.Repository) (domain.MainTag, error) {
	tf := r.TarFile(s.cfg.Workdir)
	sidecar := func(name string) string { return filepath.Join(tf.Dir, name) }

	var tagName string
	if err := s.store.Load(sidecar(domain.SidecarTagName), &tagName); err != nil {
		return domain.MainTag{}, err
	}
	var built domain.BuildTime
	if err := s.store.Load(sidecar(domain.SidecarBuildTime), &built); err != nil {
		return domain.MainTag{}, err
	}

	docker := domain.DockerInfo{}
	if platform, ok := archmap.OCIPlatform(r.Arch); ok {
		docker.Platform = platform
	}
	for _, kind := range []struct{ name, file string }{
		{domain.KindGHCR.String(), domain.SidecarGHCRTags},
		{domain.KindReg.String(), domain.SidecarRegTags},
	} {
		var repos []string
		if err := s.store.Load(sidecar(kind.file), &repos); err != nil {
			return domain.MainTag{}, err
		}
		docker.Mirror = append(docker.Mirror, domain.DockerMirror{Name: kind.name, Repositories: repos})
	}
	if path := sidecar(domain.SidecarGHCRDigests); s.store.Exists(path) {
		var digests []string
		if err := s.store.Load(path, &digests); err != nil {
			return domain.MainTag{}, err
		}
		docker.RepoDigests = digests
	}

	file, err := s.archiveFile(r, tf, tagName)
	if err != nil {
		return domain.MainTag{}, err
	}

	buildTime := built.Time
	now := s.cfg.Now().UTC()
	return domain.MainTag{
		Name:     tagName,
		Arch:     r.Arch,
		DateTime: domain.DateTime{Build: &buildTime, Update: &now},
		Docker:   docker,
		File:     file,
	}, nil
}

func (s *Service) archiveFile(r *domain.Repository, tf domain.TarFile, tagName string) (domain.ArchiveFile, error) {
	var op domain.ZstdOp
	if err := s.store.Load(filepath.Join(tf.Dir, domain.SidecarZstd), &op); err != nil {
		return domain.ArchiveFile{}, err
	}
	tarInfo, err := s.store.Stat(tf.Path)
	if err != nil {
		return domain.ArchiveFile{}, fmt.Errorf("failed to stat %s: %w", tf.Path, err)
	}
	zstInfo, err := s.store.Stat(op.Path)
	if err != nil {
		return domain.ArchiveFile{}, fmt.Errorf("failed to stat %s: %w", op.Path, err)
	}
	name := filepath.Base(op.Path)

	b3, err := s.hasher.Blake3(op.Path)
	if err != nil {
		return domain.ArchiveFile{}, err
	}
	sha, err := s.hasher.SHA256(op.Path)
	if err != nil {
		return domain.ArchiveFile{}, err
	}

	url := fmt.Sprintf(githubReleases, r.Owner, r.GitHubRepo(), r.ReleaseTag(), name)
	modified := zstInfo.ModTime().UTC()
	return domain.ArchiveFile{
		Name:         name,
		Size:         fileSize(uint64(zstInfo.Size()), uint64(tarInfo.Size())),
		ModifiedTime: &modified,
		Zstd:         &domain.ZstdInfo{Level: op.Level},
		Digest: []domain.HashDigest{
			{Algorithm: "blake3", Hex: b3, Comment: blake3Usage(b3, name)},
			{Algorithm: "sha256", Hex: sha, Comment: sha256Usage(sha, name)},
		},
		Mirror: []domain.FileMirror{
			{Name: "github", URL: url, Comment: mirrorUsage(r, tagName, url, name)},
		},
	}, nil
}

func fileSize(zst, tar uint64) domain.FileSize {
	readable := humanize.IBytes(zst)
	tarReadable := humanize.IBytes(tar)
	return domain.FileSize{
		Bytes:       zst,
		Readable:    readable,
		TarBytes:    tar,
		TarReadable: tarReadable,
		Comment: fmt.Sprintf(`Ideally:
    zstd size => download size (i.e. Consumes %s of traffic)
    tar size => uncompressed size (Actually, the extracted content is >= %s)
    zstd + tar size ~= space occupation for initial installation
        (i.e., Requires at least %s of disk storage space, but actually needs more)
`, readable, tarReadable, humanize.IBytes(zst+tar)),
	}
}

func blake3Usage(hex, name string) string {
	return fmt.Sprintf(`Usage:
    # run apt as root (i.e., +sudo/+doas)
    apt install b3sum

    # check blake3 hash
    echo '%s  %s' > blake3.txt
    b3sum --check blake3.txt
`, hex, name)
}

func sha256Usage(hex, name string) string {
	return fmt.Sprintf(`Usage:
    # check sha256 hash
    echo '%s  %s' > sha256.txt
    sha256sum --check sha256.txt
`, hex, name)
}

func mirrorUsage(r *domain.Repository, tagName, url, name string) string {
	env := ""
	if r.RequiresXterm() {
		env = "-E TERM=xterm "
	}
	return fmt.Sprintf(`Usage:
    mkdir -p ./tmp/%[1]s
    cd tmp
    curl -LO '%[2]s'

    # run gnutar or bsdtar (libarchive-tools) as root (e.g., doas tar -xvf file.tar.zst)
    tar -C %[1]s -xf %[3]q

    # run apt as root (i.e., +sudo/+doas)
    apt install systemd-container qemu-user-static

    # run nspawn as root (i.e., +sudo/+doas)
    systemd-nspawn -D %[1]s %[4]s-E LANG=$LANG
`, tagName, url, name, env)
}

func sortedUnique(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}

func firstOf(lists ...[]string) string {
	for _, l := range lists {
		if len(l) > 0 {
			return l[0]
		}
	}
	return ""
}
