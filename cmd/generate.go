package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kimkjin/BannerComposer/internal/archive"
	"github.com/kimkjin/BannerComposer/internal/catalog"
	"github.com/kimkjin/BannerComposer/internal/composer"
	"github.com/kimkjin/BannerComposer/internal/config"
	"github.com/kimkjin/BannerComposer/internal/images"
	"github.com/kimkjin/BannerComposer/internal/models"
	"github.com/kimkjin/BannerComposer/internal/render"
)

func newGenerateCmd() *cobra.Command {
	var (
		imageA     string
		imageB     string
		logoFolder string
		logos      []string
		tagline    string
		assignAll  string
		campaignID string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render every slot of a campaign and package the result",
		Long: `Runs a full generation pass without the API: uploads the campaign images,
selects the logos, renders every slot through the rendering service and
writes images_<campaign>.zip with a parquet manifest.`,
		Example: `  composer generate --image-a hero.jpg --image-b square.jpg \
    --logo-folder acme --logo logo.png --output ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.Default()

			c, err := loadFormats(cfg.FormatsFile)
			if err != nil {
				return err
			}
			renderer := render.NewHTTPClient(cfg.RenderURL, cfg.RenderTimeout, logger)
			o := composer.New(c, renderer, composer.Options{
				Concurrency: cfg.RenderConcurrency,
				Logger:      logger,
			})

			fetcher := images.NewFetcher()
			for id, path := range map[models.SourceID]string{models.SourceA: imageA, models.SourceB: imageB} {
				if path == "" {
					continue
				}
				img, err := readSource(cmd, fetcher, id, path)
				if err != nil {
					return err
				}
				if err := o.SetSource(img); err != nil {
					return err
				}
			}

			assets := catalog.New(cfg.LogosDir, cfg.FontsDir, logger)
			for _, filename := range logos {
				logo, err := assets.Logo(logoFolder, filename)
				if err != nil {
					return err
				}
				o.AddLogo(logo)
			}

			if tagline != "" {
				t := models.DefaultTagline()
				t.Enabled = true
				t.Text = tagline
				o.SetTagline(t)
			}
			if assignAll != "" {
				if err := o.AssignAllTo(models.SourceID(assignAll)); err != nil {
					return err
				}
			}

			report, err := o.GenerateAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reportTable(o, report))

			entries, err := archive.Collect(o)
			if err != nil {
				return err
			}
			data, err := archive.Package(entries)
			if err != nil {
				return fmt.Errorf("failed to package previews: %w", err)
			}

			if campaignID == "" {
				campaignID = uuid.NewString()
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outputDir, archive.Filename(campaignID))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nArchive saved to: %s\n", path)

			if !report.OK() {
				return report.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imageA, "image-a", "", "First campaign image (path or http(s) URL)")
	cmd.Flags().StringVar(&imageB, "image-b", "", "Second campaign image (path or http(s) URL)")
	cmd.Flags().StringVar(&logoFolder, "logo-folder", "", "Brand folder under LOGOS_DIR")
	cmd.Flags().StringSliceVar(&logos, "logo", nil, "Logo filename in --logo-folder (repeatable, order is kept)")
	cmd.Flags().StringVar(&tagline, "tagline", "", "Tagline text applied to every slot")
	cmd.Flags().StringVar(&assignAll, "assign-all", "", "Assign every slot to imageA or imageB")
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign ID used in the archive name (random when empty)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory for the archive")

	_ = cmd.MarkFlagRequired("image-a")

	return cmd
}

func readSource(cmd *cobra.Command, fetcher *images.Fetcher, id models.SourceID, path string) (models.SourceImage, error) {
	var (
		data     []byte
		filename string
		err      error
	)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		data, filename, err = fetcher.Fetch(cmd.Context(), path)
	} else {
		data, err = os.ReadFile(path)
		filename = filepath.Base(path)
	}
	if err != nil {
		return models.SourceImage{}, fmt.Errorf("failed to read %s: %w", id, err)
	}

	img := models.SourceImage{ID: id, Filename: filename, Data: data}
	if img.Width, img.Height, err = images.Dimensions(data); err != nil {
		slog.Warn("Failed to get image dimensions", "source", id, "err", err)
	}
	return img, nil
}

func reportTable(o *composer.Orchestrator, report *composer.Report) string {
	status := make(map[string]string)
	for _, slot := range report.Rendered {
		status[slot] = "rendered"
	}
	for _, slot := range report.Composites {
		status[slot] = "rendered"
	}
	for _, slot := range report.Locked {
		status[slot] = "locked"
	}
	for _, slot := range report.Skipped {
		status[slot] = "skipped"
	}
	for slot, msg := range report.Failed {
		status[slot] = "failed: " + msg
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Slot", "Source", "Status"})
	for _, s := range o.Snapshot().Slots {
		st := status[s.Slot]
		if st == "" {
			st = "-"
		}
		tw.AppendRow(table.Row{s.Slot, string(s.Assignment), st})
	}
	return tw.Render()
}
