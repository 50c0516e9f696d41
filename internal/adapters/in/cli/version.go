package cli

import (
	"github.com/spf13/cobra"

	"github.com/2cd/getctr/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				return cliWriteLine(out, version.Version())
			}
			for _, line := range []string{
				"get-ctr " + version.Version(),
				"Commit: " + version.Commit(),
				"Built: " + version.BuildDate(),
			} {
				if err := cliWriteLine(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")

	return cmd
}
