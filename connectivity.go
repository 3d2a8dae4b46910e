package geocluster

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Connectivity is a symmetric, reflexive adjacency relation between clusters.
type Connectivity struct {
	K   int
	adj []bool
}

// NewConnectivity returns a relation over k clusters in which every cluster is
// connected only to itself.
func NewConnectivity(k int) *Connectivity {
	c := &Connectivity{K: k, adj: make([]bool, k*k)}
	c.Reset()
	return c
}

// Reset leaves only the diagonal set.
func (c *Connectivity) Reset() {
	clear(c.adj)
	for l := range c.K {
		c.adj[l*c.K+l] = true
	}
}

func (c *Connectivity) Connected(a, b int) bool {
	return c.adj[a*c.K+b]
}

// Connect links a and b in both directions.
func (c *Connectivity) Connect(a, b int) {
	c.adj[a*c.K+b] = true
	c.adj[b*c.K+a] = true
}

// Neighbors returns the clusters connected to l, l included.
func (c *Connectivity) Neighbors(l int) []int {
	var out []int
	for j := range c.K {
		if c.adj[l*c.K+j] {
			out = append(out, j)
		}
	}
	return out
}

// Graph returns the adjacency as an undirected graph with one node per cluster.
func (c *Connectivity) Graph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for l := range c.K {
		g.AddNode(simple.Node(int64(l)))
	}
	for a := range c.K {
		for b := a + 1; b < c.K; b++ {
			if c.Connected(a, b) {
				g.SetEdge(g.NewEdge(simple.Node(int64(a)), simple.Node(int64(b))))
			}
		}
	}
	return g
}

// Components groups clusters that are linked through soft boundaries.
func (c *Connectivity) Components() [][]int {
	cc := topo.ConnectedComponents(c.Graph())
	out := make([][]int, len(cc))
	for i, nodes := range cc {
		for _, n := range nodes {
			out[i] = append(out[i], int(n.ID()))
		}
	}
	return out
}

// discontinuityThreshold is the squared distance below which a label change
// between neighboring pixels is treated as a boundary on a single surface.
func discontinuityThreshold(scale float64, rows int) float64 {
	d := scale * 120 / float64(rows)
	return d * d
}

// BuildConnectivity marks two clusters adjacent when some pair of 4-neighbors
// carrying their labels is closer than threshold in depth and in the
// coordinate along the neighbor direction.
func BuildConnectivity(lvl *Level, labels *LabelGrid, threshold float64, conn *Connectivity) {
	lv := viewOf(lvl)
	k := conn.K
	conn.Reset()

	for v := range lv.h {
		for u := range lv.w {
			la := labels.At(v, u)
			if la >= k {
				continue
			}
			d := lv.depthAt(v, u)

			if u+1 < lv.w {
				if lb := labels.At(v, u+1); lb != la && lb < k {
					dd := d - lv.depthAt(v, u+1)
					dx := lv.xx[v*lv.xStride+u] - lv.xx[v*lv.xStride+u+1]
					if dd*dd+dx*dx < threshold {
						conn.Connect(la, lb)
					}
				}
			}
			if v+1 < lv.h {
				if lb := labels.At(v+1, u); lb != la && lb < k {
					dd := d - lv.depthAt(v+1, u)
					dy := lv.yy[v*lv.yStride+u] - lv.yy[(v+1)*lv.yStride+u]
					if dd*dd+dy*dy < threshold {
						conn.Connect(la, lb)
					}
				}
			}
		}
	}
}
