package geocluster

import (
	"math"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/pkg/errors"
)

// SeedGridCenters lays k seeds out on a near-square grid of lvl, labels every
// valid pixel with its nearest seed and places each center at the median depth
// of its pixels, back-projected through the seed's pixel. Clusters without
// pixels get a zero center. labels must match the level's shape.
func SeedGridCenters(lvl *Level, k int, fovh float64, labels *LabelGrid) []r3.Vector {
	lv := viewOf(lvl)
	w, h := lv.w, lv.h
	seedU, seedV := gridSeeds(w, h, k)

	labels.Fill(k)
	for v := range h {
		for u := range w {
			if lv.depthAt(v, u) == 0 {
				continue
			}
			best := k
			minDist := math.MaxInt
			for l := range k {
				du := u - seedU[l]
				dv := v - seedV[l]
				// Strict comparison: the lowest seed index wins ties.
				if d := du*du + dv*dv; d < minDist {
					best = l
					minDist = d
				}
			}
			labels.Set(v, u, best)
		}
	}

	// Median depth: a seed region crossing a depth edge lands on one surface.
	depths := make([][]float64, k)
	for v := range h {
		for u := range w {
			if l := labels.At(v, u); l < k {
				depths[l] = append(depths[l], lv.depthAt(v, u))
			}
		}
	}

	invF := inverseFocal(fovh, w)
	dispU := 0.5 * float64(w-1)
	dispV := 0.5 * float64(h-1)
	centers := make([]r3.Vector, k)
	for l := range k {
		n := len(depths[l])
		if n == 0 {
			continue
		}
		slices.Sort(depths[l])
		d := depths[l][n/2]
		centers[l] = r3.Vector{
			X: (float64(seedU[l]) - dispU) * d * invF,
			Y: (float64(seedV[l]) - dispV) * d * invF,
			Z: d,
		}
	}
	return centers
}

// gridSeeds spreads k seeds over k+1 column slots and ceil(sqrt(k))+1 row
// slots, cycling through the rows, so no seed sits on the border.
func gridSeeds(w, h, k int) (seedU, seedV []int) {
	vertDiv := int(math.Ceil(math.Sqrt(float64(k))))
	uDiv := float64(w) / float64(k+1)
	vDiv := float64(h) / float64(vertDiv+1)
	seedU = make([]int, k)
	seedV = make([]int, k)
	for i := range k {
		seedU[i] = int(math.Round(float64(i+1) * uDiv))
		seedV[i] = int(math.Round(float64(i%vertDiv+1) * vDiv))
	}
	return seedU, seedV
}

const maxKMeansSamples = 12000

// seedKMeansCenters partitions a subsample of the valid points with Lloyd's
// k-means and labels lvl by nearest center.
func seedKMeansCenters(lvl *Level, k int, prune float64, labels *LabelGrid) ([]r3.Vector, error) {
	lv := viewOf(lvl)
	w, h := lv.w, lv.h

	// Subsample to keep kmeans tractable on large images.
	step := 1
	if w*h > maxKMeansSamples {
		step = int(math.Sqrt(float64(w*h)/float64(maxKMeansSamples))) + 1
	}
	dataset := make(clusters.Observations, 0, min(w*h, maxKMeansSamples))
	for v := 0; v < h; v += step {
		for u := 0; u < w; u += step {
			if lv.depthAt(v, u) == 0 {
				continue
			}
			p := lv.point(v, u)
			dataset = append(dataset, clusters.Coordinates{p.X, p.Y, p.Z})
		}
	}
	if len(dataset) < k {
		return nil, errors.Errorf("%d sampled points cannot seed %d clusters", len(dataset), k)
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, errors.Wrap(err, "partitioning sampled points")
	}
	if len(cc) != k {
		return nil, errors.Errorf("partition returned %d clusters, want %d", len(cc), k)
	}

	centers := make([]r3.Vector, k)
	for i, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		centers[i] = r3.Vector{X: c.Center[0], Y: c.Center[1], Z: c.Center[2]}
	}
	AssignLevel(lvl, centers, prune, labels)
	return centers, nil
}
