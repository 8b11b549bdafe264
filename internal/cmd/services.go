package cmd

import (
	"github.com/fulmenhq/gofulmen/logging"

	"github.com/storycard/storycard/internal/config"
	"github.com/storycard/storycard/internal/core/imageproxy"
	"github.com/storycard/storycard/internal/core/story"
	"github.com/storycard/storycard/internal/core/youtube"
)

// services are the domain components shared by serve, metadata and render.
type services struct {
	resolver *youtube.Resolver
	proxy    *imageproxy.Proxy
	renderer *story.Renderer
}

func buildServices(cfg *config.Config, logger *logging.Logger) (*services, error) {
	resolver := newResolver(cfg, logger)

	proxy := imageproxy.New(imageproxy.NewClient(cfg.Proxy.Timeout), cfg.Proxy.MaxBytes)

	renderer, err := story.NewRenderer(story.Options{
		Loader:      proxy,
		SettleDelay: cfg.Render.SettleDelay,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &services{resolver: resolver, proxy: proxy, renderer: renderer}, nil
}
