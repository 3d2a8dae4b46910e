package geocluster

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const testFOV = 1.0

func testOptions(k int) Options {
	opt := DefaultOptions()
	opt.NumClusters = k
	opt.FOVHorizontal = testFOV
	return opt
}

func testPyramid(t *testing.T, depth *mat.Dense, levels int) *Pyramid {
	t.Helper()
	p, err := NewPyramid(depth, testFOV, levels)
	require.NoError(t, err)
	return p
}

func flatDepth(w, h int, d float64) *mat.Dense {
	m := mat.NewDense(h, w, nil)
	for v := range h {
		for u := range w {
			m.Set(v, u, d)
		}
	}
	return m
}

// twoPlanesDepth puts the left half of the image at near and the right half at far.
func twoPlanesDepth(w, h int, near, far float64) *mat.Dense {
	m := mat.NewDense(h, w, nil)
	for v := range h {
		for u := range w {
			if u < w/2 {
				m.Set(v, u, near)
			} else {
				m.Set(v, u, far)
			}
		}
	}
	return m
}

// sceneDepth is an asymmetric scene: a slightly slanted wall, a box, a floor
// rising towards the camera and a patch of missing depth.
func sceneDepth(w, h int) *mat.Dense {
	m := mat.NewDense(h, w, nil)
	for v := range h {
		for u := range w {
			switch {
			case v < h/2 && (u/4+v/4)%7 == 3:
			case u >= w/5 && u < w/2 && v >= h/4 && v < 3*h/4:
				m.Set(v, u, 1.5+0.002*float64(u))
			case v > 2*h/3:
				m.Set(v, u, 4-2*float64(v-2*h/3)/float64(h/3))
			default:
				m.Set(v, u, 4+0.01*float64(u))
			}
		}
	}
	return m
}

func requireFinite(t *testing.T, centers []r3.Vector) {
	t.Helper()
	for l, c := range centers {
		for _, x := range []float64{c.X, c.Y, c.Z} {
			require.False(t, math.IsNaN(x) || math.IsInf(x, 0), "center %d is %v", l, c)
		}
	}
}

// requireFrameInvariants checks labels, label functions and connectivity on
// every level from the base level down.
func requireFrameInvariants(t *testing.T, p *Pyramid, f *Frame) {
	t.Helper()
	k := f.K
	requireFinite(t, f.Centers)

	for a := range k {
		require.True(t, f.Connectivity.Connected(a, a))
		for b := range k {
			require.Equal(t, f.Connectivity.Connected(a, b), f.Connectivity.Connected(b, a))
		}
	}

	for level := f.BaseLevel; level < len(p.Levels); level++ {
		lvl := p.Levels[level]
		g := f.Labels[level]
		require.Equal(t, lvl.W, g.W)
		require.Equal(t, lvl.H, g.H)
		for v := range lvl.H {
			for u := range lvl.W {
				lab := g.At(v, u)
				row := f.LabelFunc(level, v, u)
				require.Len(t, row, k+1)

				sum := 0.0
				for _, w := range row {
					require.False(t, math.IsNaN(w) || math.IsInf(w, 0))
					require.GreaterOrEqual(t, w, 0.0)
					sum += w
				}
				require.InDelta(t, 1.0, sum, 1e-4, "level %d pixel (%d,%d)", level, v, u)

				if !lvl.Valid(v, u) {
					require.Equal(t, k, lab)
					require.Equal(t, 1.0, row[k])
					continue
				}
				require.GreaterOrEqual(t, lab, 0)
				require.Less(t, lab, k)
				require.Zero(t, row[k])
				for l := range k {
					if row[l] != 0 {
						require.True(t, f.Connectivity.Connected(lab, l),
							"level %d pixel (%d,%d) weighs %d but its label %d is not connected to it", level, v, u, l, lab)
					}
				}
			}
		}
	}
}
