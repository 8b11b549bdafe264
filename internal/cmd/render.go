package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core"
	"github.com/storycard/storycard/internal/observability"
)

var renderCmd = &cobra.Command{
	Use:   "render <video-url>",
	Short: "Export a story card PNG for a video",
	Long: `Resolve a video link and export the 1080x1920 story card as PNG.

Images are fetched through the same allow-listed proxy the HTTP service uses;
a thumbnail or avatar that cannot be loaded is drawn as a placeholder.

Examples:
  storycard render https://youtu.be/abc123
  storycard render https://youtu.be/abc123 --message "Out now" --accent "#3b82f6" -o story.png
  storycard render https://youtu.be/abc123 --no-accent-line`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("message", core.DefaultMessage, "Message shown above the thumbnail")
	renderCmd.Flags().String("accent", core.DefaultAccentColor, "Accent color (#rgb or #rrggbb)")
	renderCmd.Flags().Bool("no-accent-line", false, "Hide the accent line at the top")
	renderCmd.Flags().StringP("out", "o", "", "Output file (default from render.filename)")
	renderCmd.Flags().Bool("palette", false, "List the preset accent colors and exit")
	renderCmd.Flags().Duration("timeout", 60*time.Second, "Overall timeout")
}

func runRender(cmd *cobra.Command, args []string) error {
	if showPalette, _ := cmd.Flags().GetBool("palette"); showPalette {
		for _, c := range core.AccentPalette {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", c.Name, c.Value)
		}
		return nil
	}

	message, _ := cmd.Flags().GetString("message")
	accent, _ := cmd.Flags().GetString("accent")
	noAccentLine, _ := cmd.Flags().GetBool("no-accent-line")
	outPath, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	storyCfg := core.NewStoryConfig(nil)
	storyCfg.CustomMessage = message
	storyCfg.AccentColor = strings.TrimSpace(accent)
	storyCfg.ShowAccentLine = !noAccentLine
	if err := storyCfg.Validate(); err != nil {
		return err
	}

	cfg := loadConfig()
	if strings.TrimSpace(outPath) == "" {
		outPath = cfg.Render.Filename
	}

	svc, err := buildServices(cfg, observability.CLILogger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info, err := svc.resolver.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	storyCfg.VideoInfo = &info

	body, err := svc.renderer.RenderPNG(ctx, storyCfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, body, 0644); err != nil {
		return fmt.Errorf("write story image: %w", err)
	}

	observability.CLILogger.Info("Story exported",
		zap.String("path", outPath),
		zap.String("video_id", info.VideoID),
		zap.Int("bytes", len(body)))
	fmt.Fprintln(cmd.OutOrStdout(), outPath)
	return nil
}
