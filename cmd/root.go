package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kimkjin/BannerComposer/internal/logging"
)

func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "composer",
		Short: "Campaign banner composer",
		Long: `Composer turns two campaign images and a set of brand logos into every
banner format a campaign needs.

Slots are rendered by an external rendering service. Manual edits on a slot
are mirrored to its paired slot, and composite banners are rebuilt whenever
one of their components changes.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if logLevel == "" {
				logLevel = os.Getenv("LOG_LEVEL")
			}
			slog.SetDefault(logging.NewLogger(os.Stderr, logging.ParseLevel(logLevel)))
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFormatsCmd())
	cmd.AddCommand(newGenerateCmd())

	return cmd
}
