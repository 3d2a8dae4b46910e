package geocluster

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// pairwiseDistances returns the squared distances between all centers.
func pairwiseDistances(centers []r3.Vector) *mat.SymDense {
	k := len(centers)
	d := mat.NewSymDense(k, nil)
	for a := range k {
		for b := a + 1; b < k; b++ {
			d.SetSym(a, b, centers[a].Sub(centers[b]).Norm2())
		}
	}
	return d
}

// AssignLevel labels every valid pixel of lvl with its nearest center.
func AssignLevel(lvl *Level, centers []r3.Vector, prune float64, labels *LabelGrid) {
	assignLevel(lvl, centers, pairwiseDistances(centers), prune, labels)
}

// assignLevel scans the labels in index order from label 0 and skips a
// candidate whose center is too far from the current best one to win.
func assignLevel(lvl *Level, centers []r3.Vector, dist *mat.SymDense, prune float64, labels *LabelGrid) {
	lv := viewOf(lvl)
	k := len(centers)
	if k == 0 {
		return
	}
	raw := dist.RawSymmetric()

	labels.Fill(k)
	for v := range lv.h {
		for u := range lv.w {
			if lv.depthAt(v, u) == 0 {
				continue
			}
			p := lv.point(v, u)
			best := 0
			minDist := centers[0].Sub(p).Norm2()
			for l := 1; l < k; l++ {
				// best < l always, so the upper triangle holds the entry.
				if raw.Data[best*raw.Stride+l] > prune*minDist {
					continue
				}
				if d := centers[l].Sub(p).Norm2(); d < minDist {
					best = l
					minDist = d
				}
			}
			labels.Set(v, u, best)
		}
	}
}

// propagate relabels levels from..len(levels)-1 with the final centers and
// smooths each of them with the base-level connectivity.
func propagate(p *Pyramid, from int, centers []r3.Vector, conn *Connectivity, opt Options, f *Frame) {
	dist := pairwiseDistances(centers)
	for i := from; i < len(p.Levels); i++ {
		lvl := p.Levels[i]
		assignLevel(lvl, centers, dist, opt.PruneFactor, f.Labels[i])
		Smooth(lvl, f.Labels[i], centers, conn, opt.Sharpness, opt.SharpnessCutoff, f.LabelFuncs[i])
	}
}
