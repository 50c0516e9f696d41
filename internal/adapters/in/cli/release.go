package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2cd/getctr/internal/domain"
)

// stdoutDigest as a --digest destination prints the report.
const stdoutDigest = "-"

type releaseFlags struct {
	os  string
	ver string
	tag string

	obtain    bool
	repack    bool
	zstdLevel int

	build            bool
	push             bool
	createManifest   bool
	updateRepoDigest bool

	digest     []string
	title      bool
	releaseTag bool
}

func newReleaseCmd(root *rootFlags) *cobra.Command {
	f := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Run release stages for one OS version",
		Long: `Resolve the repository descriptors of one OS version from the catalog and
run the selected stages over them, in pipeline order:
obtain, repack, build, push, create-manifest, update-repo-digest, digest.`,
		Example: `  get-ctr release --os debian --ver 2.2 --tag base --obtain --repack --build
  get-ctr release --ver 2.2 --tag base --push --create-manifest
  get-ctr release --ver 2.2 --tag base --digest digest.yaml --title`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRelease(cmd, root, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.os, "os", "debian", "OS name, e.g. debian, ubuntu")
	flags.StringVar(&f.ver, "ver", "2.1", "Version, e.g. 1.3, 2.2, bookworm, 24.04")
	flags.StringVar(&f.tag, "tag", "", "Variant tag, e.g. base")

	flags.BoolVar(&f.obtain, "obtain", false, "Download or build the rootfs")
	flags.BoolVar(&f.repack, "repack", false, "Pack to tar and compress to zstd")
	flags.IntVar(&f.zstdLevel, "zstd-level", domain.DefaultZstdLevel, "zstd compression level (0-22), requires --repack")

	flags.BoolVar(&f.build, "build", false, "Build the container images")
	flags.BoolVar(&f.push, "push", false, "Push images to ghcr and reg")
	flags.BoolVar(&f.createManifest, "create-manifest", false, "Create multi-arch manifests, e.g. debian:x86 + debian:arm -> debian:latest")
	flags.BoolVar(&f.updateRepoDigest, "update-repo-digest", false, "Pull images and record their repo digests")

	flags.StringArrayVar(&f.digest, "digest", nil, `Write the digest report to a .yaml or .json file, "-" prints to stdout (repeatable)`)
	flags.BoolVar(&f.title, "title", false, "Print the release title")
	flags.BoolVar(&f.releaseTag, "release-tag", false, "Print the release tag")

	return cmd
}

func runRelease(cmd *cobra.Command, root *rootFlags, f *releaseFlags) error {
	plan, err := f.plan(cmd)
	if err != nil {
		return err
	}

	cp, err := root.open(cmd)
	if err != nil {
		return err
	}
	defer cp.Close()

	if !cmd.Flags().Changed("zstd-level") {
		plan.ZstdLevel = cp.Config().Zstd.Level
	}

	repos, err := cp.Catalog().Repositories(f.os, f.ver, strings.TrimSpace(f.tag))
	if err != nil {
		return err
	}

	svc := cp.Release()
	if plan.Any() {
		if err := svc.Execute(cmd.Context(), repos, plan); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if f.title {
		title, err := svc.Title(repos)
		if err != nil {
			return err
		}
		if err := cliWriteLine(out, title); err != nil {
			return err
		}
	}
	if f.releaseTag {
		tag, err := svc.ReleaseTag(repos)
		if err != nil {
			return err
		}
		if err := cliWriteLine(out, tag); err != nil {
			return err
		}
	}
	return nil
}

// plan turns the stage flags into a release plan.
func (f *releaseFlags) plan(cmd *cobra.Command) (domain.ReleasePlan, error) {
	if cmd.Flags().Changed("zstd-level") {
		if !f.repack {
			return domain.ReleasePlan{}, fmt.Errorf("--zstd-level requires --repack")
		}
		if f.zstdLevel < 0 || f.zstdLevel > 22 {
			return domain.ReleasePlan{}, fmt.Errorf("--zstd-level must be within 0..22, got %d", f.zstdLevel)
		}
	}

	plan := domain.ReleasePlan{
		Obtain:            f.obtain,
		Repack:            f.repack,
		ZstdLevel:         f.zstdLevel,
		Build:             f.build,
		Push:              f.push,
		CreateManifest:    f.createManifest,
		UpdateRepoDigests: f.updateRepoDigest,
		Digest:            cmd.Flags().Changed("digest"),
	}
	for _, dst := range f.digest {
		if dst = strings.TrimSpace(dst); dst != "" && dst != stdoutDigest {
			plan.DigestFiles = append(plan.DigestFiles, dst)
		}
	}
	return plan, nil
}
