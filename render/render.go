// Package render draws board states as PNG images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/brensch/snekmax/game"
)

// DefaultBlockSize is the cell size in pixels.
const DefaultBlockSize = 32

var palette = []color.RGBA{
	{R: 0xe8, G: 0x59, B: 0x0c, A: 0xff},
	{R: 0x19, G: 0x71, B: 0xc2, A: 0xff},
	{R: 0x2f, G: 0x9e, B: 0x44, A: 0xff},
	{R: 0x98, G: 0x28, B: 0x98, A: 0xff},
	{R: 0xf0, G: 0x8c, B: 0x00, A: 0xff},
	{R: 0x0c, G: 0x85, B: 0x99, A: 0xff},
	{R: 0xc9, G: 0x2a, B: 0x2a, A: 0xff},
	{R: 0x5f, G: 0x3d, B: 0xc4, A: 0xff},
}

// SnakeColor is the colour used for the i-th snake in state order.
func SnakeColor(i int) color.RGBA {
	return palette[i%len(palette)]
}

// Board renders state at blockSize pixels per cell. Row y=0 is drawn at the
// bottom. Eliminated snakes are not drawn.
func Board(state *game.GameState, blockSize int) image.Image {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	w, h := int(state.Width)*blockSize, int(state.Height)*blockSize
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Flip so board coordinates map straight onto cells.
	cell := func(p game.Point) (float64, float64) {
		return float64(int(p.X) * blockSize), float64((int(state.Height) - 1 - int(p.Y)) * blockSize)
	}
	bs := float64(blockSize)

	dc.SetRGBA(0.55, 0.2, 0.2, 0.35)
	for _, p := range state.Hazards {
		x, y := cell(p)
		dc.DrawRectangle(x, y, bs, bs)
		dc.Fill()
	}

	renderGrid(dc, w, h, blockSize)

	dc.SetRGB(0.9, 0.1, 0.3)
	for _, p := range state.Food {
		x, y := cell(p)
		dc.DrawCircle(x+bs/2, y+bs/2, bs/4)
		dc.Fill()
	}

	for i := range state.Snakes {
		s := &state.Snakes[i]
		if !s.Alive() {
			continue
		}
		col := SnakeColor(i)
		dc.SetColor(col)
		for j := len(s.Body) - 1; j >= 0; j-- {
			x, y := cell(s.Body[j])
			inset := bs * 0.1
			dc.DrawRectangle(x+inset, y+inset, bs-2*inset, bs-2*inset)
			dc.Fill()
		}
		// Head marker.
		x, y := cell(s.Head())
		dc.SetRGB(1, 1, 1)
		dc.DrawCircle(x+bs/2, y+bs/2, bs/6)
		dc.Fill()
		if s.Id == state.YouId {
			dc.SetRGB(0, 0, 0)
			dc.SetLineWidth(2)
			dc.DrawRectangle(x+1, y+1, bs-2, bs-2)
			dc.Stroke()
		}
	}
	return dc.Image()
}

func renderGrid(dc *gg.Context, width, height, blockSize int) {
	dc.SetRGB(0.9, 0.9, 0.9)
	dc.SetLineWidth(1)
	for x := 0; x <= width; x += blockSize {
		dc.DrawLine(float64(x), 0, float64(x), float64(height))
		dc.Stroke()
	}
	for y := 0; y <= height; y += blockSize {
		dc.DrawLine(0, float64(y), float64(width), float64(y))
		dc.Stroke()
	}
}

// SavePNG renders state and writes it to path, scaled to fit within maxSide
// pixels when maxSide is positive. The format follows the file extension.
func SavePNG(state *game.GameState, path string, blockSize, maxSide int) error {
	img := Board(state, blockSize)
	if maxSide > 0 {
		b := img.Bounds()
		if b.Dx() > maxSide || b.Dy() > maxSide {
			img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
