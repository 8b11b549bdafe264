// Package story rasterizes a story card into a 1080x1920 PNG.
//
// Thumbnail and avatar are loaded concurrently through an image loader (normally
// the allow-listed image proxy). A failed load never fails the render; the
// placeholder for that slot is drawn instead.
package story

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/storycard/storycard/internal/core"
	"github.com/storycard/storycard/internal/core/imageproxy"
	"github.com/storycard/storycard/internal/metrics"
)

const (
	// Width and Height are the exported story dimensions.
	Width  = 1080
	Height = 1920

	// Filename is the name under which the PNG is offered for download.
	Filename = "instagram-story.png"

	// DefaultSettleDelay is the pause between the image join and rasterization.
	DefaultSettleDelay = 150 * time.Millisecond
)

var (
	// ErrRender is returned when the card could not be rasterized or encoded.
	ErrRender = errors.New("failed to generate image")

	// ErrInvalidConfig is returned for an unusable story configuration.
	ErrInvalidConfig = errors.New("invalid story configuration")
)

// Loader fetches image bytes for a URL.
type Loader interface {
	Fetch(ctx context.Context, rawURL string) (*imageproxy.Image, error)
}

// Options configures a Renderer.
type Options struct {
	Loader      Loader
	SettleDelay time.Duration
	Logger      *logging.Logger
}

// Renderer draws story cards.
type Renderer struct {
	loader      Loader
	settleDelay time.Duration
	logger      *logging.Logger
	font        *opentype.Font
}

// NewRenderer parses the embedded bold face and returns a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: parse font: %v", ErrRender, err)
	}
	settle := opts.SettleDelay
	if settle < 0 {
		settle = 0
	}
	return &Renderer{
		loader:      opts.Loader,
		settleDelay: settle,
		logger:      opts.Logger,
		font:        f,
	}, nil
}

// loadResult is the settled outcome of one image load.
type loadResult struct {
	img image.Image
	err error
}

func (l loadResult) loaded() bool {
	return l.err == nil && l.img != nil
}

// Render loads the card images, waits for the settle delay and rasterizes.
func (r *Renderer) Render(ctx context.Context, cfg core.StoryConfig) (*image.RGBA, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	start := time.Now()
	thumb, avatar := r.loadImages(ctx, cfg.VideoInfo)

	if err := r.settle(ctx); err != nil {
		return nil, err
	}

	canvas, err := r.rasterize(cfg, thumb, avatar)
	metrics.RecordStoryRender(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	return canvas, nil
}

// RenderPNG renders the card and encodes it as PNG bytes.
func (r *Renderer) RenderPNG(ctx context.Context, cfg core.StoryConfig) ([]byte, error) {
	canvas, err := r.Render(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nothing to encode", ErrRender)
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	return nil
}

// loadImages fetches the thumbnail and avatar concurrently. Every outcome is
// settled before returning; failures come back as nil images.
func (r *Renderer) loadImages(ctx context.Context, info *core.VideoInfo) (image.Image, image.Image) {
	if info == nil {
		return nil, nil
	}

	var thumb, avatar loadResult
	var wg conc.WaitGroup
	wg.Go(func() { thumb = r.load(ctx, info.Thumbnail) })
	wg.Go(func() { avatar = r.load(ctx, info.AvatarURL()) })
	if recovered := wg.WaitAndRecover(); recovered != nil {
		r.warn("image load panicked", zap.Error(recovered.AsError()))
	}

	if !thumb.loaded() && thumb.err != nil {
		r.warn("thumbnail unavailable, drawing placeholder", zap.Error(thumb.err))
	}
	if !avatar.loaded() && avatar.err != nil {
		r.debug("avatar unavailable, drawing initial", zap.Error(avatar.err))
	}

	return thumb.img, avatar.img
}

func (r *Renderer) load(ctx context.Context, rawURL string) loadResult {
	if strings.TrimSpace(rawURL) == "" {
		return loadResult{}
	}
	if r.loader == nil {
		return loadResult{err: errors.New("no image loader configured")}
	}

	fetched, err := r.loader.Fetch(ctx, rawURL)
	if err != nil {
		return loadResult{err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(fetched.Bytes))
	if err != nil {
		return loadResult{err: fmt.Errorf("decode %s: %w", fetched.ContentType, err)}
	}
	return loadResult{img: img}
}

func (r *Renderer) settle(ctx context.Context) error {
	if r.settleDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Renderer) rasterize(cfg core.StoryConfig, thumb, avatar image.Image) (canvas *image.RGBA, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			canvas = nil
			err = fmt.Errorf("%w: %v", ErrRender, rec)
		}
	}()

	faces, err := newFaceSet(r.font)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	defer faces.Close()

	return drawCard(cfg, faces, thumb, avatar), nil
}

func (r *Renderer) warn(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Warn(msg, fields...)
	}
}

func (r *Renderer) debug(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Debug(msg, fields...)
	}
}
