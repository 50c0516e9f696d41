// Package cli implements the CLI adapter of get-ctr.
// Commands resolve their flags into domain values and delegate to the
// services wired by the app layer.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/2cd/getctr/internal/app"
	"github.com/2cd/getctr/internal/boundaries/in"
	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/pkg/version"
)

// ControlPlane is the in-process service access the commands run on.
type ControlPlane interface {
	Release() in.ReleaseService
	Catalog() in.CatalogService
	Config() app.Config
	Close()
}

var newControlPlane = func(opts app.Options) (ControlPlane, error) {
	k, err := app.NewKernel(opts)
	if err != nil {
		return nil, err
	}
	return k, nil
}

type rootFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command for the get-ctr CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "get-ctr",
		Short: "Release historical Linux distributions as container images",
		Long: `get-ctr obtains root filesystems of historical Linux releases, packs them
into zstd archives, builds multi-arch container images, publishes them to
GHCR and a second registry, and writes a digest report for the release notes.`,
		Example:       "  get-ctr release --os debian --ver 2.2 --tag base --obtain --build",
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("get-ctr {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file (default: ./get-ctr.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(newReleaseCmd(flags))
	rootCmd.AddCommand(newCatalogCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (f *rootFlags) open(cmd *cobra.Command) (ControlPlane, error) {
	return newControlPlane(app.Options{
		ConfigPath: f.configPath,
		LogLevel:   f.logLevel,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_ = cliWriteLine(cmd.ErrOrStderr(), cliRenderError(err.Error()))
	return exitCode(err)
}

// exitCode propagates the status of a failed external command.
func exitCode(err error) int {
	var cmdErr *domain.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code > 0 {
		return cmdErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

