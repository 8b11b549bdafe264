package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/config"
	"github.com/storycard/storycard/internal/core/youtube"
	"github.com/storycard/storycard/internal/observability"
	"github.com/storycard/storycard/internal/output"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <video-url>",
	Short: "Resolve a video link and print its metadata",
	Long: `Resolve a watch, short-link, embed or shorts URL into title, channel, thumbnail
and channel avatar, using the keyed provider first and the oEmbed provider as fallback.

Examples:
  storycard metadata https://youtu.be/abc123
  storycard metadata "https://www.youtube.com/watch?v=abc123" --output-format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataCmd.Flags().String("output-format", "table", "Output format: table, json, yaml, markdown")
	metadataCmd.Flags().StringP("out", "o", "", "Write output to file (default stdout)")
	metadataCmd.Flags().Duration("timeout", 30*time.Second, "Overall timeout")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := loadConfig()
	resolver := newResolver(cfg, observability.CLILogger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info, err := resolver.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	observability.CLILogger.Debug("Resolved video",
		zap.String("video_id", info.VideoID),
		zap.Bool("has_avatar", info.HasAvatar()))

	report := &output.VideoReport{
		VideoInfo: info,
		URL:       args[0],
		OpenLink:  youtube.OpenLink(args[0]),
	}
	rendered, err := output.NewFormatter(format).FormatVideo(report)
	if err != nil {
		return err
	}

	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck // best-effort close of output file

	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}

func newResolver(cfg *config.Config, logger *logging.Logger) *youtube.Resolver {
	return youtube.NewResolver(youtube.Options{
		APIKey:         cfg.YouTube.APIKey,
		DataAPIBaseURL: cfg.YouTube.DataAPIBaseURL,
		OEmbedURL:      cfg.YouTube.OEmbedURL,
		Client:         &http.Client{Timeout: cfg.YouTube.Timeout},
		Logger:         logger,
	})
}

// providerNamesForConfig reports the provider chain the current config would build.
func providerNamesForConfig() []string {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil
	}
	return newResolver(cfg, nil).ProviderNames()
}
