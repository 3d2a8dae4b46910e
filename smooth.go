package geocluster

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Smooth writes the label functions of lvl into funcs, one row per pixel
// (row v*W+u) and K+1 columns. A valid pixel spreads its membership over the
// clusters connected to its hard label, weighted by how close each center is
// compared to its own; invalid pixels are one-hot on column K.
func Smooth(lvl *Level, labels *LabelGrid, centers []r3.Vector, conn *Connectivity, sharpness, cutoff float64, funcs *mat.Dense) {
	lv := viewOf(lvl)
	k := len(centers)
	funcs.Zero()

	for v := range lv.h {
		for u := range lv.w {
			row := funcs.RawRowView(labelOffset(lv.w, u, v))
			lab := labels.At(v, u)
			if lab >= k {
				row[k] = 1
				continue
			}

			p := lv.point(v, u)
			ref := centers[lab].Sub(p).Norm2()
			for l := range k {
				if !conn.Connected(lab, l) {
					continue
				}
				e := sharpness * math.Abs(ref-centers[l].Sub(p).Norm2())
				// Anything past the cutoff is negligible after normalization.
				if e < cutoff {
					row[l] = math.Exp(-e)
				}
			}
			// row[lab] is exp(0) = 1, so the sum never vanishes.
			floats.Scale(1/floats.Sum(row[:k]), row[:k])
		}
	}
}
