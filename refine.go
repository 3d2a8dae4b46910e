package geocluster

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/geo/r3"
)

type neighbor struct {
	idx  int
	dist float64 // squared distance between the two centers
}

// neighborTable lists, for every cluster, all clusters sorted by increasing
// center distance.
type neighborTable [][]neighbor

func newNeighborTable(k int) neighborTable {
	t := make(neighborTable, k)
	for l := range t {
		t[l] = make([]neighbor, k)
	}
	return t
}

func (t neighborTable) update(centers []r3.Vector) {
	for l, row := range t {
		for li := range row {
			row[li] = neighbor{idx: li, dist: centers[l].Sub(centers[li]).Norm2()}
		}
		slices.SortFunc(row, func(a, b neighbor) int {
			if c := cmp.Compare(a.dist, b.dist); c != 0 {
				return c
			}
			return cmp.Compare(a.idx, b.idx)
		})
	}
}

// nearest finds the closest center to p starting from seed. Once a neighbor
// of the seed lies farther than prune times the squared seed distance, the
// triangle inequality rules it and every later neighbor out (for prune <= 4).
func (t neighborTable) nearest(centers []r3.Vector, seed int, p r3.Vector, prune float64) (int, float64) {
	seedDist := centers[seed].Sub(p).Norm2()
	limit := prune * seedDist
	best, bestDist := seed, seedDist
	for _, nb := range t[seed] {
		if nb.idx == seed {
			continue
		}
		if nb.dist > limit {
			break
		}
		if d := centers[nb.idx].Sub(p).Norm2(); d < bestDist {
			best = nb.idx
			bestDist = d
		}
	}
	return best, bestDist
}

type RefineStats struct {
	Iterations int
	Converged  bool
	// MaxShift is the largest per-coordinate center displacement of the last iteration.
	MaxShift float64
	Shifts   []float64
}

// Refine runs k-means iterations on lvl. centers and labels are updated in
// place; the label of each valid pixel seeds its nearest-center search in the
// next iteration. A cluster that receives no pixels gets a zero center for
// the following round.
func Refine(lvl *Level, centers []r3.Vector, labels *LabelGrid, opt Options) RefineStats {
	lv := viewOf(lvl)
	k := len(centers)
	table := newNeighborTable(k)
	sums := make([]r3.Vector, k)
	counts := make([]int, k)
	next := make([]r3.Vector, k)

	var stats RefineStats
	for it := 1; it <= opt.MaxIterations; it++ {
		table.update(centers)
		clear(sums)
		clear(counts)

		for v := range lv.h {
			for u := range lv.w {
				if lv.depthAt(v, u) == 0 {
					continue
				}
				seed := labels.At(v, u)
				if seed >= k {
					seed = 0
				}
				p := lv.point(v, u)
				best, _ := table.nearest(centers, seed, p, opt.PruneFactor)
				labels.Set(v, u, best)
				sums[best] = sums[best].Add(p)
				counts[best]++
			}
		}

		for l := range k {
			if counts[l] == 0 {
				next[l] = r3.Vector{}
				continue
			}
			n := float64(counts[l])
			next[l] = r3.Vector{X: sums[l].X / n, Y: sums[l].Y / n, Z: sums[l].Z / n}
		}

		shift := maxShift(centers, next)
		copy(centers, next)
		stats.Iterations = it
		stats.MaxShift = shift
		stats.Shifts = append(stats.Shifts, shift)
		if shift < opt.Tolerance {
			stats.Converged = true
			break
		}
	}
	return stats
}

// maxShift is the infinity norm of the center displacement.
func maxShift(a, b []r3.Vector) float64 {
	m := 0.0
	for l := range a {
		d := a[l].Sub(b[l])
		m = max(m, math.Abs(d.X), math.Abs(d.Y), math.Abs(d.Z))
	}
	return m
}

// AssignFromCoarse labels the valid pixels of fine, seeding each search with
// the label of the coarse pixel covering it (label 0 when that one is
// unassigned). counts receives the pixels per cluster.
func AssignFromCoarse(fine *Level, coarse *LabelGrid, centers []r3.Vector, prune float64, labels *LabelGrid, counts []int) {
	lv := viewOf(fine)
	k := len(centers)
	table := newNeighborTable(k)
	table.update(centers)

	labels.Fill(k)
	clear(counts)
	for v := range lv.h {
		cv := min(v/2, coarse.H-1)
		for u := range lv.w {
			if lv.depthAt(v, u) == 0 {
				continue
			}
			seed := 0
			if cv >= 0 && coarse.W > 0 {
				seed = coarse.At(cv, min(u/2, coarse.W-1))
			}
			if seed >= k {
				seed = 0
			}
			best, _ := table.nearest(centers, seed, lv.point(v, u), prune)
			labels.Set(v, u, best)
			counts[best]++
		}
	}
}
