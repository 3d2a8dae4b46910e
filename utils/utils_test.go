package utils

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/setanarut/geocluster"
)

func TestLabelPalette(t *testing.T) {
	assert.Nil(t, LabelPalette(0))

	for _, k := range []int{1, 6, geocluster.MaxClusters} {
		p := LabelPalette(k)
		require.Len(t, p, k)
		for i := range p {
			assert.True(t, p[i].IsValid())
			for j := range i {
				assert.Greater(t, p[i].DistanceLab(p[j]), 1e-3, "colors %d and %d", i, j)
			}
		}
	}
}

func TestLabelPalette_StableAcrossSizes(t *testing.T) {
	small := LabelPalette(4)
	large := LabelPalette(24)
	assert.Equal(t, small, large[:4], "cluster colors do not depend on K")
	for i := 1; i < len(large); i++ {
		assert.Greater(t, large[i].DistanceLab(large[i-1]), 0.05, "colors %d and %d", i-1, i)
	}
}

func TestLabelImage(t *testing.T) {
	g := geocluster.NewLabelGrid(2, 1)
	g.Labels = []int{0, 2}
	palette := []colorful.Color{{R: 1}, {G: 1}}

	img := LabelImage(g, palette)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(1, 0))
}

func TestBlendImage(t *testing.T) {
	funcs := mat.NewDense(2, 3, []float64{
		1, 0, 0,
		0.5, 0.5, 0,
	})
	palette := []colorful.Color{{R: 1}, {G: 1}}

	img := BlendImage(funcs, 2, 1, palette)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(0, 0))
	mixed := img.RGBAAt(1, 0)
	assert.InDelta(t, 127, int(mixed.R), 1)
	assert.InDelta(t, 127, int(mixed.G), 1)
	assert.Zero(t, mixed.B)
}

func TestSaveFrameImages(t *testing.T) {
	depth := mat.NewDense(16, 16, nil)
	for v := range 16 {
		for u := range 16 {
			depth.Set(v, u, 1+float64(u/8))
		}
	}
	p, err := geocluster.NewPyramid(depth, 1, 3)
	require.NoError(t, err)

	opt := geocluster.DefaultOptions()
	opt.NumClusters = 2
	opt.FOVHorizontal = 1
	c, err := geocluster.NewClusterer(opt)
	require.NoError(t, err)
	f, err := c.Segment(p)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, SaveFrameImages(f, LabelPalette(2), dir))
	for i := range 3 {
		for _, name := range []string{"labels_%02d.png", "soft_%02d.png"} {
			_, err := os.Stat(filepath.Join(dir, fmt.Sprintf(name, i)))
			assert.NoError(t, err)
		}
	}

	require.NoError(t, SavePalette(LabelPalette(2), 8, filepath.Join(dir, "palette.png")))
	assert.Error(t, SavePalette(nil, 8, filepath.Join(dir, "empty.png")))
}
