package story

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/storycard/storycard/internal/core"
)

// Card geometry at full resolution.
const (
	sidePadding      = 70
	accentLineHeight = 8
	accentLineRatio  = 0.6

	messageTop        = 350
	messageBottom     = 36
	messageSize       = 38
	messageLineHeight = 1.3

	thumbRadius = 28

	rowTop         = 44
	avatarSize     = 80
	avatarOffset   = 4
	avatarGap      = 24
	initialSize    = 32
	titleSize      = 42
	titleLine      = 1.35
	titleMaxLines  = 3
	placeholderPts = 28

	fallbackTitle   = "Your video title here"
	fallbackChannel = "Channel name"
	thumbMissing    = "Image unavailable"
	thumbEmpty      = "Thumbnail"
	ellipsis        = "..."
)

var (
	backgroundColor  = color.RGBA{0x0a, 0x0a, 0x0a, 0xff}
	placeholderColor = color.RGBA{0x1a, 0x1a, 0x1a, 0xff}
	placeholderText  = color.RGBA{0x33, 0x33, 0x33, 0xff}
	avatarGradientTo = color.RGBA{0x2a, 0x2a, 0x2a, 0xff}
	textColor        = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

type faceSet struct {
	message     font.Face
	title       font.Face
	initial     font.Face
	placeholder font.Face
}

func newFaceSet(f *opentype.Font) (*faceSet, error) {
	if f == nil {
		return nil, errors.New("font not loaded")
	}
	newFace := func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}

	fs := &faceSet{}
	var err error
	if fs.message, err = newFace(messageSize); err != nil {
		return nil, err
	}
	if fs.title, err = newFace(titleSize); err != nil {
		return nil, err
	}
	if fs.initial, err = newFace(initialSize); err != nil {
		return nil, err
	}
	if fs.placeholder, err = newFace(placeholderPts); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *faceSet) Close() {
	for _, face := range []font.Face{fs.message, fs.title, fs.initial, fs.placeholder} {
		if face != nil {
			_ = face.Close()
		}
	}
}

// drawCard lays out the card top to bottom. Nil images draw their placeholder.
func drawCard(cfg core.StoryConfig, faces *faceSet, thumb, avatar image.Image) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	accent := parseHexColor(cfg.AccentColor)
	contentWidth := Width - 2*sidePadding

	y := 0
	if cfg.ShowAccentLine {
		drawAccentLine(canvas, accent)
		y += accentLineHeight
	}

	// Message
	y += messageTop
	lineH := int(math.Round(messageSize * messageLineHeight))
	lines := wrapLines(faces.message, cfg.Message(), contentWidth, 0)
	for i, line := range lines {
		drawText(canvas, faces.message, line, sidePadding, y+i*lineH, lineH, textColor)
	}
	y += len(lines)*lineH + messageBottom

	// Thumbnail
	thumbRect := image.Rect(sidePadding, y, sidePadding+contentWidth, y+int(math.Round(float64(contentWidth)*9/16)))
	drawThumbnail(canvas, faces.placeholder, thumbRect, thumb, cfg.VideoInfo != nil)
	y = thumbRect.Max.Y + rowTop

	title, channel := fallbackTitle, fallbackChannel
	if info := cfg.VideoInfo; info != nil {
		if strings.TrimSpace(info.Title) != "" {
			title = info.Title
		}
		if strings.TrimSpace(info.ChannelTitle) != "" {
			channel = info.ChannelTitle
		}
	}

	// Avatar
	avatarRect := image.Rect(sidePadding, y+avatarOffset, sidePadding+avatarSize, y+avatarOffset+avatarSize)
	drawAvatar(canvas, faces.initial, avatarRect, avatar, accent, channelInitial(channel))

	// Title
	titleX := avatarRect.Max.X + avatarGap
	titleH := int(math.Round(titleSize * titleLine))
	titleLines := wrapLines(faces.title, title, Width-sidePadding-titleX, titleMaxLines)
	for i, line := range titleLines {
		drawText(canvas, faces.title, line, titleX, y+i*titleH, titleH, textColor)
	}

	return canvas
}

func drawAccentLine(dst draw.Image, accent color.RGBA) {
	width := int(Width * accentLineRatio)
	for x := 0; x < width; x++ {
		alpha := 1 - float64(x)/float64(width-1)
		c := color.NRGBA{R: accent.R, G: accent.G, B: accent.B, A: uint8(math.Round(alpha * 255))}
		draw.Draw(dst, image.Rect(x, 0, x+1, accentLineHeight), image.NewUniform(c), image.Point{}, draw.Over)
	}
}

func drawThumbnail(dst draw.Image, face font.Face, rect image.Rectangle, thumb image.Image, hasVideo bool) {
	tile := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(tile, tile.Bounds(), image.NewUniform(placeholderColor), image.Point{}, draw.Src)

	if thumb != nil {
		coverScale(tile, thumb)
	} else {
		label := thumbEmpty
		if hasVideo {
			label = thumbMissing
		}
		width := font.MeasureString(face, label).Ceil()
		lineH := face.Metrics().Height.Ceil()
		drawText(tile, face, label, (rect.Dx()-width)/2, (rect.Dy()-lineH)/2, lineH, placeholderText)
	}

	mask := roundedRectMask(rect.Dx(), rect.Dy(), thumbRadius)
	draw.DrawMask(dst, rect, tile, image.Point{}, mask, image.Point{}, draw.Over)
}

func drawAvatar(dst draw.Image, face font.Face, rect image.Rectangle, avatar image.Image, accent color.RGBA, initial string) {
	size := rect.Dx()
	tile := image.NewRGBA(image.Rect(0, 0, size, rect.Dy()))

	if avatar != nil {
		coverScale(tile, avatar)
	} else {
		diagonalGradient(tile, accent, avatarGradientTo)
		width := font.MeasureString(face, initial).Ceil()
		lineH := face.Metrics().Height.Ceil()
		drawText(tile, face, initial, (size-width)/2, (rect.Dy()-lineH)/2, lineH, textColor)
	}

	mask := roundedRectMask(size, rect.Dy(), float32(size)/2)
	draw.DrawMask(dst, rect, tile, image.Point{}, mask, image.Point{}, draw.Over)
}

// coverScale scales src to fill dst, cropping the overflow around the center.
func coverScale(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	if sb.Empty() {
		return
	}
	db := dst.Bounds()
	scale := math.Max(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	cropW := int(math.Round(float64(db.Dx()) / scale))
	cropH := int(math.Round(float64(db.Dy()) / scale))
	cropW = min(max(cropW, 1), sb.Dx())
	cropH = min(max(cropH, 1), sb.Dy())

	x0 := sb.Min.X + (sb.Dx()-cropW)/2
	y0 := sb.Min.Y + (sb.Dy()-cropH)/2
	draw.CatmullRom.Scale(dst, db, src, image.Rect(x0, y0, x0+cropW, y0+cropH), draw.Src, nil)
}

// diagonalGradient fills dst with a 135 degree gradient from top-left to bottom-right.
func diagonalGradient(dst *image.RGBA, from, to color.RGBA) {
	b := dst.Bounds()
	span := float64(b.Dx() + b.Dy() - 2)
	if span <= 0 {
		span = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := float64(x-b.Min.X+y-b.Min.Y) / span
			dst.SetRGBA(x, y, lerpColor(from, to, t))
		}
	}
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// roundedRectMask returns an anti-aliased alpha mask of a w x h rounded rectangle.
func roundedRectMask(w, h int, radius float32) *image.Alpha {
	fw, fh := float32(w), float32(h)
	radius = min(radius, fw/2, fh/2)
	k := radius * 0.5523 // cubic approximation of a quarter circle

	z := vector.NewRasterizer(w, h)
	z.MoveTo(radius, 0)
	z.LineTo(fw-radius, 0)
	z.CubeTo(fw-radius+k, 0, fw, radius-k, fw, radius)
	z.LineTo(fw, fh-radius)
	z.CubeTo(fw, fh-radius+k, fw-radius+k, fh, fw-radius, fh)
	z.LineTo(radius, fh)
	z.CubeTo(radius-k, fh, 0, fh-radius+k, 0, fh-radius)
	z.LineTo(0, radius)
	z.CubeTo(0, radius-k, radius-k, 0, radius, 0)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// drawText draws a single line vertically centered in a line box starting at top.
func drawText(dst draw.Image, face font.Face, text string, x, top, lineHeight int, c color.Color) {
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	baseline := top + (lineHeight-(ascent+descent))/2 + ascent

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

// wrapLines splits text on spaces into lines no wider than maxWidth. When
// maxLines > 0 and the text needs more, the last kept line ends in an ellipsis.
func wrapLines(face font.Face, text string, maxWidth, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	limit := fixed.I(maxWidth)
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate) <= limit {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = fitWithEllipsis(face, lines[maxLines-1], limit)
	}
	return lines
}

func fitWithEllipsis(face font.Face, line string, limit fixed.Int26_6) string {
	for {
		candidate := strings.TrimRight(line, " ") + ellipsis
		if line == "" || font.MeasureString(face, candidate) <= limit {
			return candidate
		}
		_, size := utf8.DecodeLastRuneInString(line)
		line = line[:len(line)-size]
	}
}

func channelInitial(channel string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(channel))
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// parseHexColor parses #rgb or #rrggbb, falling back to the default accent.
func parseHexColor(value string) color.RGBA {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(value) == 3 {
		value = string([]byte{value[0], value[0], value[1], value[1], value[2], value[2]})
	}
	n, err := strconv.ParseUint(value, 16, 32)
	if len(value) != 6 || err != nil {
		return parseHexColor(core.DefaultAccentColor)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}
}
