package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/kimkjin/BannerComposer/internal/config"
	"github.com/kimkjin/BannerComposer/internal/formats"
	"github.com/kimkjin/BannerComposer/internal/logging"
)

// loadFormats returns the catalog from path, or the embedded one when path is empty.
func loadFormats(path string) (*formats.Catalog, error) {
	if path == "" {
		return formats.Default(), nil
	}
	c, err := formats.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load formats: %w", err)
	}
	slog.Info("Loaded format catalog", "path", path, "slots", len(c.Slots()))
	return c, nil
}

func newFormatsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the output slots of the format catalog",
		Example: `  # Show the built-in catalog
  composer formats

  # Validate and show a custom catalog
  composer formats --file formats.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Load().FormatsFile
			}
			c, err := loadFormats(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatsTable(c, logging.IsTerminal(out)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML format catalog (defaults to FORMATS_FILE or the built-in catalog)")

	return cmd
}

func formatsTable(c *formats.Catalog, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if colorize {
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
	}
	tw.AppendHeader(table.Row{"#", "Slot", "Size", "Pair", "Composite of"})

	for i, f := range c.Formats() {
		slot := f.Slot()
		pair, _ := c.Pair(slot)
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			slot,
			fmt.Sprintf("%dx%d", f.Width, f.Height),
			pair,
			strings.Join(c.Dependencies(slot), ", "),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
