package utils

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"

	"github.com/setanarut/geocluster"
)

// goldenAngle spaces consecutive hues so that any prefix of the ring stays
// spread around the hue circle.
const goldenAngle = 137.50776405003785

// LabelPalette returns k distinct colors, one per cluster. Hues step by the
// golden angle and lightness cycles through three bands, so neighboring
// cluster indices never get similar colors.
func LabelPalette(k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	lightness := [3]float64{0.55, 0.75, 0.4}
	out := make([]colorful.Color, k)
	for i := range out {
		h := math.Mod(float64(i)*goldenAngle, 360)
		out[i] = colorful.Hcl(h, 0.45, lightness[i%3]).Clamped()
	}
	return out
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// LabelImage paints every pixel with its cluster color. Unassigned pixels
// stay black.
func LabelImage(g *geocluster.LabelGrid, palette []colorful.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.W, g.H))
	black := color.NRGBA{A: 255}
	for v := range g.H {
		for u := range g.W {
			l := g.At(v, u)
			if l < 0 || l >= len(palette) {
				img.SetNRGBA(u, v, black)
				continue
			}
			img.SetNRGBA(u, v, toNRGBA(palette[l]))
		}
	}
	return img
}

// BlendImage mixes the cluster colors of each pixel by its label-function
// weights. The last column (no valid depth) contributes black.
func BlendImage(funcs *mat.Dense, w, h int, palette []colorful.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	_, cols := funcs.Dims()
	n := min(cols-1, len(palette))
	for v := range h {
		for u := range w {
			row := funcs.RawRowView(v*w + u)
			var r, g, b float64
			for l := range n {
				if row[l] == 0 {
					continue
				}
				r += row[l] * palette[l].R
				g += row[l] * palette[l].G
				b += row[l] * palette[l].B
			}
			img.SetRGBA(u, v, color.RGBA{
				uint8(max(0, min(255, r*255))),
				uint8(max(0, min(255, g*255))),
				uint8(max(0, min(255, b*255))),
				255,
			})
		}
	}
	return img
}

// DepthImage maps depth linearly onto 16-bit gray, maxDepth being white.
func DepthImage(lvl *geocluster.Level, maxDepth float64) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, lvl.W, lvl.H))
	if maxDepth <= 0 {
		return img
	}
	for v := range lvl.H {
		for u := range lvl.W {
			d := lvl.Depth.At(v, u) / maxDepth
			img.SetGray16(u, v, color.Gray16{Y: uint16(max(0, min(1, d)) * math.MaxUint16)})
		}
	}
	return img
}

// SaveFrameImages writes the hard and soft segmentation of every level of f
// into dir.
func SaveFrameImages(f *geocluster.Frame, palette []colorful.Color, dir string) error {
	for i, g := range f.Labels {
		if g == nil {
			continue
		}
		if err := SaveImage(LabelImage(g, palette), filepath.Join(dir, fmt.Sprintf("labels_%02d.png", i))); err != nil {
			return err
		}
		soft := BlendImage(f.LabelFuncs[i], g.W, g.H, palette)
		if err := SaveImage(soft, filepath.Join(dir, fmt.Sprintf("soft_%02d.png", i))); err != nil {
			return err
		}
	}
	return nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	w := tileSize * len(palette)
	h := tileSize
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, c := range palette {
		col := toNRGBA(c)
		x0 := i * tileSize
		for y := range h {
			for x := x0; x < x0+tileSize; x++ {
				img.SetNRGBA(x, y, col)
			}
		}
	}
	return SaveImage(img, filename)
}
