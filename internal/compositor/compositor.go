// Package compositor turns a base scene (or a palette gradient) plus the
// variant's overlay spec into the final 1280x720 PNG.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyHeadline  = errors.New("compositor: headline is empty")
	ErrUnreadableBase = errors.New("compositor: base image unreadable")
)

// Compositor renders final thumbnails. It is safe for concurrent use.
type Compositor struct {
	font *opentype.Font
}

func New() (*Compositor, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse headline font: %w", err)
	}
	return &Compositor{font: f}, nil
}

// RenderWithBase cover-scales base to the output size, darkens the headline
// side and draws the overlays.
func (c *Compositor) RenderWithBase(ctx context.Context, base []byte, spec RenderSpec) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Headline) == "" {
		return nil, ErrEmptyHeadline
	}
	if len(base) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnreadableBase)
	}
	src, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableBase, err)
	}
	if src.Bounds().Dx() < 16 || src.Bounds().Dy() < 16 {
		return nil, fmt.Errorf("%w: %dx%d too small", ErrUnreadableBase, src.Bounds().Dx(), src.Bounds().Dy())
	}

	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), src, coverRect(src.Bounds()), xdraw.Src, nil)
	drawScrim(canvas, normalizeLayout(string(spec.Layout)))
	return c.finish(ctx, canvas, spec)
}

// RenderFallback draws the overlays on a palette gradient. It needs no
// external input and is the path of last resort.
func (c *Compositor) RenderFallback(ctx context.Context, spec RenderSpec) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Headline) == "" {
		return nil, ErrEmptyHeadline
	}
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	drawGradient(canvas, paletteFor(spec.Palette))
	return c.finish(ctx, canvas, spec)
}

func (c *Compositor) finish(ctx context.Context, canvas *image.RGBA, spec RenderSpec) ([]byte, error) {
	pal := paletteFor(spec.Palette)
	layout := normalizeLayout(string(spec.Layout))

	if err := c.drawHeadline(canvas, spec.Headline, headlineRect(layout), pal); err != nil {
		return nil, err
	}
	if spec.Badge != "" {
		if err := c.drawBadge(canvas, spec.Badge, layout, pal); err != nil {
			return nil, err
		}
	}
	if spec.Arrow != "" {
		drawArrow(canvas, arrowCenter(layout), spec.Arrow, pal)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// coverRect is the centred 16:9 crop of b.
func coverRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w*Height > h*Width {
		cw := h * Width / Height
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := w * Height / Width
	y0 := b.Min.Y + (h-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

func headlineRect(layout Layout) image.Rectangle {
	const margin = 56
	switch layout {
	case LayoutRight:
		return image.Rect(Width*42/100, margin, Width-margin, Height-margin)
	case LayoutTop:
		return image.Rect(margin, margin, Width-margin, Height*45/100)
	case LayoutBottom:
		return image.Rect(margin, Height*55/100, Width-margin, Height-margin)
	default:
		return image.Rect(margin, margin, Width*58/100, Height-margin)
	}
}

func arrowCenter(layout Layout) image.Point {
	switch layout {
	case LayoutRight:
		return image.Pt(Width*22/100, Height/2)
	case LayoutTop:
		return image.Pt(Width/2, Height*72/100)
	case LayoutBottom:
		return image.Pt(Width/2, Height*28/100)
	default:
		return image.Pt(Width*78/100, Height/2)
	}
}

func drawGradient(dst *image.RGBA, pal palette) {
	b := dst.Bounds()
	span := float64(b.Dx() + b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := float64(x+y) / span
			dst.SetRGBA(x, y, color.RGBA{
				R: lerp(pal.from.R, pal.to.R, t),
				G: lerp(pal.from.G, pal.to.G, t),
				B: lerp(pal.from.B, pal.to.B, t),
				A: 0xff,
			})
		}
	}
}

// drawScrim darkens the headline side with a linear ramp.
func drawScrim(dst *image.RGBA, layout Layout) {
	const maxAlpha = 170.0
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var t float64
			switch layout {
			case LayoutRight:
				t = float64(x-Width*35/100) / float64(Width*65/100)
			case LayoutTop:
				t = 1 - float64(y)/float64(Height*60/100)
			case LayoutBottom:
				t = float64(y-Height*40/100) / float64(Height*60/100)
			default:
				t = 1 - float64(x)/float64(Width*65/100)
			}
			if t <= 0 {
				continue
			}
			if t > 1 {
				t = 1
			}
			keep := 1 - maxAlpha*t/255
			px := dst.RGBAAt(x, y)
			px.R = uint8(float64(px.R) * keep)
			px.G = uint8(float64(px.G) * keep)
			px.B = uint8(float64(px.B) * keep)
			dst.SetRGBA(x, y, px)
		}
	}
}
