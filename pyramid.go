package geocluster

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Level holds the camera-space planes of one pyramid level. A pixel is
// invalid when its depth is zero.
type Level struct {
	W, H  int
	Depth *mat.Dense
	X     *mat.Dense
	Y     *mat.Dense
}

// Pyramid is indexed by downsampling exponent: Levels[i] has half the
// resolution of Levels[i-1].
type Pyramid struct {
	Levels []*Level
}

func NewLevel(depth, x, y *mat.Dense) (*Level, error) {
	if depth == nil || x == nil || y == nil {
		return nil, errors.New("level needs depth, x and y planes")
	}
	h, w := depth.Dims()
	if xr, xc := x.Dims(); xr != h || xc != w {
		return nil, errors.Errorf("x plane is %dx%d, depth plane is %dx%d", xc, xr, w, h)
	}
	if yr, yc := y.Dims(); yr != h || yc != w {
		return nil, errors.Errorf("y plane is %dx%d, depth plane is %dx%d", yc, yr, w, h)
	}
	return &Level{W: w, H: h, Depth: depth, X: x, Y: y}, nil
}

// BackProject builds a level from a depth plane with a pinhole model centered
// on the image. Invalid pixels keep x = y = 0.
func BackProject(depth *mat.Dense, fovh float64) *Level {
	h, w := depth.Dims()
	x := mat.NewDense(h, w, nil)
	y := mat.NewDense(h, w, nil)
	invF := inverseFocal(fovh, w)
	dispU := 0.5 * float64(w-1)
	dispV := 0.5 * float64(h-1)

	draw := depth.RawMatrix()
	xraw := x.RawMatrix()
	yraw := y.RawMatrix()
	for v := range h {
		for u := range w {
			d := draw.Data[v*draw.Stride+u]
			if d == 0 {
				continue
			}
			xraw.Data[v*xraw.Stride+u] = (float64(u) - dispU) * d * invF
			yraw.Data[v*yraw.Stride+u] = (float64(v) - dispV) * d * invF
		}
	}
	return &Level{W: w, H: h, Depth: depth, X: x, Y: y}
}

// NewPyramid downsamples depth by averaging the valid pixels of each 2x2
// block and back-projects every level at its own resolution.
func NewPyramid(depth *mat.Dense, fovh float64, levels int) (*Pyramid, error) {
	if depth == nil {
		return nil, errors.New("nil depth plane")
	}
	if levels < 1 {
		return nil, errors.Errorf("pyramid needs at least one level, got %d", levels)
	}
	if fovh <= 0 || fovh >= math.Pi {
		return nil, errors.Errorf("horizontal field of view must be in (0, pi), got %v", fovh)
	}
	h, w := depth.Dims()
	if h>>(levels-1) < 1 || w>>(levels-1) < 1 {
		return nil, errors.Errorf("%dx%d image is too small for %d levels", w, h, levels)
	}

	p := &Pyramid{Levels: make([]*Level, levels)}
	cur := mat.DenseCopyOf(depth)
	p.Levels[0] = BackProject(cur, fovh)
	for i := 1; i < levels; i++ {
		cur = downsampleDepth(cur)
		p.Levels[i] = BackProject(cur, fovh)
	}
	return p, nil
}

func downsampleDepth(src *mat.Dense) *mat.Dense {
	sh, sw := src.Dims()
	h, w := sh/2, sw/2
	dst := mat.NewDense(h, w, nil)
	sraw := src.RawMatrix()
	draw := dst.RawMatrix()
	for v := range h {
		for u := range w {
			sum := 0.0
			n := 0
			for dv := range 2 {
				row := (2*v + dv) * sraw.Stride
				for du := range 2 {
					d := sraw.Data[row+2*u+du]
					if d != 0 {
						sum += d
						n++
					}
				}
			}
			if n > 0 {
				draw.Data[v*draw.Stride+u] = sum / float64(n)
			}
		}
	}
	return dst
}

func inverseFocal(fovh float64, w int) float64 {
	return 2 * math.Tan(0.5*fovh) / float64(w)
}

func (l *Level) Valid(v, u int) bool {
	raw := l.Depth.RawMatrix()
	return raw.Data[v*raw.Stride+u] != 0
}

// Point returns the camera-space point of a pixel with Z holding the depth.
func (l *Level) Point(v, u int) r3.Vector {
	d := l.Depth.RawMatrix()
	x := l.X.RawMatrix()
	y := l.Y.RawMatrix()
	return r3.Vector{
		X: x.Data[v*x.Stride+u],
		Y: y.Data[v*y.Stride+u],
		Z: d.Data[v*d.Stride+u],
	}
}

func (l *Level) ValidCount() int {
	raw := l.Depth.RawMatrix()
	n := 0
	for v := range l.H {
		row := raw.Data[v*raw.Stride : v*raw.Stride+l.W]
		for _, d := range row {
			if d != 0 {
				n++
			}
		}
	}
	return n
}

// levelView caches the raw planes of a level for the per-pixel loops.
type levelView struct {
	w, h                      int
	depth, xx, yy             []float64
	dStride, xStride, yStride int
}

func viewOf(l *Level) levelView {
	d := l.Depth.RawMatrix()
	x := l.X.RawMatrix()
	y := l.Y.RawMatrix()
	return levelView{
		w: l.W, h: l.H,
		depth: d.Data, xx: x.Data, yy: y.Data,
		dStride: d.Stride, xStride: x.Stride, yStride: y.Stride,
	}
}

func (lv *levelView) depthAt(v, u int) float64 {
	return lv.depth[v*lv.dStride+u]
}

func (lv *levelView) point(v, u int) r3.Vector {
	return r3.Vector{
		X: lv.xx[v*lv.xStride+u],
		Y: lv.yy[v*lv.yStride+u],
		Z: lv.depth[v*lv.dStride+u],
	}
}
