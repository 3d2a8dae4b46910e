package geocluster

// LabelGrid holds one hard label per pixel, row-major. The value K marks a
// pixel without valid depth.
type LabelGrid struct {
	W, H   int
	Labels []int // len = W*H
}

// NewLabelGrid returns a w x h grid with every pixel on label 0.
func NewLabelGrid(w, h int) *LabelGrid {
	return &LabelGrid{W: w, H: h, Labels: make([]int, w*h)}
}

func labelOffset(w, u, v int) int {
	return v*w + u
}

func (g *LabelGrid) At(v, u int) int {
	return g.Labels[labelOffset(g.W, u, v)]
}

func (g *LabelGrid) Set(v, u, label int) {
	g.Labels[labelOffset(g.W, u, v)] = label
}

func (g *LabelGrid) Fill(label int) {
	for i := range g.Labels {
		g.Labels[i] = label
	}
}

// Counts returns the number of pixels per label in [0, k); unassigned pixels
// are not counted.
func (g *LabelGrid) Counts(k int) []int {
	counts := make([]int, k)
	for _, l := range g.Labels {
		if l >= 0 && l < k {
			counts[l]++
		}
	}
	return counts
}

func (g *LabelGrid) sameShape(w, h int) bool {
	return g != nil && g.W == w && g.H == h
}
