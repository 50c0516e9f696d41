package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/2cd/getctr/internal/adapters/in/cli/ui/styles"
	"github.com/2cd/getctr/internal/domain"
)

func newCatalogCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the release catalog",
	}
	cmd.AddCommand(newCatalogListCmd(root))
	return cmd
}

func newCatalogListCmd(root *rootFlags) *cobra.Command {
	var osName string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the releases known to the catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cp, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer cp.Close()

			var releases []domain.Release
			for _, rel := range cp.Catalog().Releases() {
				if osName == "" || rel.OS == osName {
					releases = append(releases, rel)
				}
			}

			out := cmd.OutOrStdout()
			if len(releases) == 0 {
				return cliWriteLine(out, cliRenderMuted("No releases found"))
			}
			if err := cliWriteLine(out, cliRenderTitle("Releases")); err != nil {
				return err
			}
			return cliWriteLine(out, renderReleases(releases))
		},
	}
	cmd.Flags().StringVar(&osName, "os", "", "Only list releases of this OS")

	return cmd
}

func renderReleases(releases []domain.Release) string {
	rows := make([][]string, 0, len(releases))
	for _, rel := range releases {
		rows = append(rows, []string{
			rel.OS,
			rel.Version,
			rel.Codename,
			rel.Series,
			dash(rel.Date),
			rel.Method,
			strings.Join(rel.Archs, " "),
			dash(strings.Join(rel.Tags, " ")),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Theme.TableBorder).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Theme.TableHeader
			}
			return styles.Theme.TableCell
		}).
		Headers("OS", "VERSION", "CODENAME", "SERIES", "DATE", "METHOD", "ARCHS", "TAGS").
		Rows(rows...).
		Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
