package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"thumbgen/internal/domain"
)

const (
	maxHeadlineLines = 3
	maxHeadlineSize  = 132
	minHeadlineSize  = 40
	badgeSize        = 40
	maxBadgeText     = Width / 3
	ellipsis         = "…"
)

// newFace returns a fresh face; opentype faces are not safe for concurrent
// use, so every render builds its own.
func (c *Compositor) newFace(size float64) (font.Face, error) {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("headline face: %w", err)
	}
	return face, nil
}

func (c *Compositor) drawHeadline(dst *image.RGBA, text string, box image.Rectangle, pal palette) error {
	words := strings.Fields(text)
	var (
		face  font.Face
		lines []string
	)
	for size := maxHeadlineSize; size >= minHeadlineSize; size -= 8 {
		f, err := c.newFace(float64(size))
		if err != nil {
			return err
		}
		candidate := wrapWords(f, words, box.Dx())
		lineHeight := f.Metrics().Height.Ceil()
		if len(candidate) <= maxHeadlineLines && fitsWidth(f, candidate, box.Dx()) && len(candidate)*lineHeight <= box.Dy() {
			face, lines = f, candidate
			break
		}
		f.Close()
	}
	if face == nil {
		f, err := c.newFace(minHeadlineSize)
		if err != nil {
			return err
		}
		face = f
		lines = clampLines(f, wrapWords(f, words, box.Dx()), maxHeadlineLines, box.Dx())
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	top := box.Min.Y + (box.Dy()-lineHeight*len(lines))/2
	stroke := max(2, int(metrics.Height.Ceil()/16))
	for i, line := range lines {
		baseline := top + i*lineHeight + metrics.Ascent.Ceil()
		x := box.Min.X
		if box.Dx() > Width*70/100 {
			x = box.Min.X + (box.Dx()-font.MeasureString(face, line).Ceil())/2
		}
		drawStrokedString(dst, face, line, image.Pt(x, baseline), pal.text, pal.stroke, stroke)
	}
	return nil
}

// wrapWords greedily packs words into lines no wider than maxWidth. A single
// overlong word gets a line of its own.
func wrapWords(face font.Face, words []string, maxWidth int) []string {
	var (
		lines   []string
		current string
	)
	for _, w := range words {
		next := w
		if current != "" {
			next = current + " " + w
		}
		if current != "" && font.MeasureString(face, next).Ceil() > maxWidth {
			lines = append(lines, current)
			current = w
			continue
		}
		current = next
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// clampLines keeps at most maxLines lines and marks the cut with an ellipsis
// on the last kept line.
func clampLines(face font.Face, lines []string, maxLines, maxWidth int) []string {
	if len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	lines[maxLines-1] = ellipsize(face, lines[maxLines-1], maxWidth)
	return lines
}

// ellipsize drops trailing runes from s until s plus an ellipsis fits in
// maxWidth.
func ellipsize(face font.Face, s string, maxWidth int) string {
	r := []rune(strings.TrimSpace(s))
	for len(r) > 0 && font.MeasureString(face, string(r)+ellipsis).Ceil() > maxWidth {
		r = r[:len(r)-1]
	}
	return strings.TrimRight(string(r), " ") + ellipsis
}

func fitsWidth(face font.Face, lines []string, maxWidth int) bool {
	for _, l := range lines {
		if font.MeasureString(face, l).Ceil() > maxWidth {
			return false
		}
	}
	return true
}

func drawStrokedString(dst *image.RGBA, face font.Face, s string, at image.Point, fill, stroke color.RGBA, radius int) {
	d := font.Drawer{Dst: dst, Src: image.NewUniform(stroke), Face: face}
	const steps = 16
	for _, r := range []float64{float64(radius), float64(radius) / 2} {
		for i := 0; i < steps; i++ {
			angle := 2 * math.Pi * float64(i) / steps
			dx := int(math.Round(r * math.Cos(angle)))
			dy := int(math.Round(r * math.Sin(angle)))
			d.Dot = fixed.P(at.X+dx, at.Y+dy)
			d.DrawString(s)
		}
	}
	d.Src = image.NewUniform(fill)
	d.Dot = fixed.P(at.X, at.Y)
	d.DrawString(s)
}

func (c *Compositor) drawBadge(dst *image.RGBA, text string, layout Layout, pal palette) error {
	face, err := c.newFace(badgeSize)
	if err != nil {
		return err
	}
	defer face.Close()

	const pad = 18
	text, textW := fitBadgeText(face, text)
	metrics := face.Metrics()
	w := textW + 2*pad
	h := metrics.Height.Ceil() + pad

	var origin image.Point
	switch layout {
	case LayoutRight:
		origin = image.Pt(40, 40)
	case LayoutTop:
		origin = image.Pt(Width-40-w, Height-40-h)
	default:
		origin = image.Pt(Width-40-w, 40)
	}
	rect := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
	fillPolygon(dst, pal.stroke, []vec{
		{float32(rect.Min.X - 4), float32(rect.Min.Y - 4)},
		{float32(rect.Max.X + 4), float32(rect.Min.Y - 4)},
		{float32(rect.Max.X + 4), float32(rect.Max.Y + 4)},
		{float32(rect.Min.X - 4), float32(rect.Max.Y + 4)},
	})
	fillPolygon(dst, pal.badge, []vec{
		{float32(rect.Min.X), float32(rect.Min.Y)},
		{float32(rect.Max.X), float32(rect.Min.Y)},
		{float32(rect.Max.X), float32(rect.Max.Y)},
		{float32(rect.Min.X), float32(rect.Max.Y)},
	})
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(pal.badgeText),
		Face: face,
		Dot:  fixed.P(rect.Min.X+pad, rect.Min.Y+pad/2+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
	return nil
}

type vec struct{ x, y float32 }

// arrowShape points right, centred on the origin.
var arrowShape = []vec{
	{-110, -26}, {20, -26}, {20, -70}, {110, 0}, {20, 70}, {20, 26}, {-110, 26},
}

func drawArrow(dst *image.RGBA, center image.Point, dir domain.ArrowDirection, pal palette) {
	var angle float64
	switch dir {
	case domain.ArrowLeft:
		angle = math.Pi
	case domain.ArrowUp:
		angle = -math.Pi / 2
	case domain.ArrowDown:
		angle = math.Pi / 2
	case domain.ArrowRight:
	default:
		return
	}
	place := func(scale float64) []vec {
		out := make([]vec, len(arrowShape))
		sin, cos := math.Sincos(angle)
		for i, p := range arrowShape {
			x := float64(p.x) * scale
			y := float64(p.y) * scale
			out[i] = vec{
				x: float32(float64(center.X) + x*cos - y*sin),
				y: float32(float64(center.Y) + x*sin + y*cos),
			}
		}
		return out
	}
	fillPolygon(dst, pal.stroke, place(1.12))
	fillPolygon(dst, pal.arrow, place(1))
}

func fillPolygon(dst *image.RGBA, col color.RGBA, pts []vec) {
	if len(pts) < 3 {
		return
	}
	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(pts[0].x, pts[0].y)
	for _, p := range pts[1:] {
		r.LineTo(p.x, p.y)
	}
	r.ClosePath()
	r.Draw(dst, b, image.NewUniform(col), image.Point{})
}

// fitBadgeText shortens text so the badge stays within maxBadgeText.
func fitBadgeText(face font.Face, text string) (string, int) {
	w := font.MeasureString(face, text).Ceil()
	if w <= maxBadgeText {
		return text, w
	}
	text = ellipsize(face, text, maxBadgeText)
	return text, font.MeasureString(face, text).Ceil()
}
