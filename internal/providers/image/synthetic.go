package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
)

const (
	syntheticWidth  = 1280
	syntheticHeight = 720
)

// SyntheticGenerator paints a deterministic abstract scene. It needs no
// credentials and is meant for local runs.
type SyntheticGenerator struct{}

func NewSyntheticGenerator() *SyntheticGenerator { return &SyntheticGenerator{} }

func (SyntheticGenerator) Name() string { return ProviderSynthetic }

func (SyntheticGenerator) GenerateBaseImage(ctx context.Context, req BaseRequest) (*BaseImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := syntheticSeed(req.JobID, req.VariantID, req.Plan.ConceptID, req.Plan.Story.Scene)
	data, err := renderSyntheticScene(syntheticWidth, syntheticHeight, seed)
	if err != nil {
		return nil, err
	}
	return &BaseImage{Data: data, MIMEType: "image/png", Width: syntheticWidth, Height: syntheticHeight}, nil
}

func renderSyntheticScene(width, height int, seed string) ([]byte, error) {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &stdimage.Uniform{base}, stdimage.Point{}, draw.Src)

	stripe := max(32, height/12)
	accent.A = 160
	for y := 0; y < height; y += stripe * 2 {
		band := stdimage.Rect(0, y, width, min(height, y+stripe))
		draw.Draw(img, band, &stdimage.Uniform{accent}, stdimage.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height && x+y < width; y++ {
			img.Set(x+y, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.RGBA {
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: hexByte(segment[0:2]), G: hexByte(segment[2:4]), B: hexByte(segment[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func syntheticSeed(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))[:18]
}

var _ Generator = SyntheticGenerator{}
