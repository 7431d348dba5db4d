package compositor

import "image/color"

type palette struct {
	from, to  color.RGBA
	text      color.RGBA
	stroke    color.RGBA
	badge     color.RGBA
	badgeText color.RGBA
	arrow     color.RGBA
}

const defaultPalette = "bold"

var palettes = map[string]palette{
	"bold": {
		from: rgb(0xd7, 0x26, 0x3d), to: rgb(0x1b, 0x1b, 0x3a),
		text: rgb(0xff, 0xff, 0xff), stroke: rgb(0x0a, 0x0a, 0x0a),
		badge: rgb(0xff, 0xd6, 0x00), badgeText: rgb(0x11, 0x11, 0x11), arrow: rgb(0xff, 0xd6, 0x00),
	},
	"dark": {
		from: rgb(0x0f, 0x17, 0x2a), to: rgb(0x33, 0x0a, 0x4d),
		text: rgb(0xf5, 0xf5, 0xf5), stroke: rgb(0x00, 0x00, 0x00),
		badge: rgb(0xe1, 0x1d, 0x48), badgeText: rgb(0xff, 0xff, 0xff), arrow: rgb(0xe1, 0x1d, 0x48),
	},
	"bright": {
		from: rgb(0xff, 0x9f, 0x1c), to: rgb(0x2e, 0xc4, 0xb6),
		text: rgb(0xff, 0xff, 0xff), stroke: rgb(0x1a, 0x1a, 0x1a),
		badge: rgb(0x1a, 0x1a, 0x1a), badgeText: rgb(0xff, 0xff, 0xff), arrow: rgb(0xff, 0xff, 0xff),
	},
	"pastel": {
		from: rgb(0xff, 0xc8, 0xdd), to: rgb(0xbd, 0xe0, 0xfe),
		text: rgb(0x22, 0x22, 0x3b), stroke: rgb(0xff, 0xff, 0xff),
		badge: rgb(0x4a, 0x4e, 0x69), badgeText: rgb(0xff, 0xff, 0xff), arrow: rgb(0x4a, 0x4e, 0x69),
	},
	"mono": {
		from: rgb(0x20, 0x20, 0x20), to: rgb(0x60, 0x60, 0x60),
		text: rgb(0xff, 0xff, 0xff), stroke: rgb(0x00, 0x00, 0x00),
		badge: rgb(0xff, 0xff, 0xff), badgeText: rgb(0x00, 0x00, 0x00), arrow: rgb(0xff, 0xff, 0xff),
	},
}

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[defaultPalette]
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
