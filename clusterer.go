package geocluster

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Frame is the clustering of one RGB-D frame. Labels and LabelFuncs are
// indexed by pyramid level and are nil below BaseLevel.
type Frame struct {
	K         int
	BaseLevel int
	Centers   []r3.Vector
	// Sizes counts the pixels of each cluster at BaseLevel.
	Sizes        []int
	Labels       []*LabelGrid
	LabelFuncs   []*mat.Dense // (W*H) x (K+1) per level
	Connectivity *Connectivity
	Refine       RefineStats
}

func newFrame(k, base int) *Frame {
	return &Frame{
		K:            k,
		BaseLevel:    base,
		Centers:      make([]r3.Vector, k),
		Sizes:        make([]int, k),
		Connectivity: NewConnectivity(k),
	}
}

// LabelFunc returns the K+1 membership weights of a pixel. The slice aliases
// the frame's storage.
func (f *Frame) LabelFunc(level, v, u int) []float64 {
	g := f.Labels[level]
	return f.LabelFuncs[level].RawRowView(labelOffset(g.W, u, v))
}

// EmptyClusters counts the clusters without pixels at the base level.
func (f *Frame) EmptyClusters() int {
	n := 0
	for _, s := range f.Sizes {
		if s == 0 {
			n++
		}
	}
	return n
}

// ensure (re)allocates per-level buffers whose shape no longer matches p.
func (f *Frame) ensure(p *Pyramid) {
	n := len(p.Levels)
	if len(f.Labels) != n {
		f.Labels = make([]*LabelGrid, n)
		f.LabelFuncs = make([]*mat.Dense, n)
	}
	for i, lvl := range p.Levels {
		if i < f.BaseLevel {
			f.Labels[i] = nil
			f.LabelFuncs[i] = nil
			continue
		}
		if f.Labels[i].sameShape(lvl.W, lvl.H) {
			continue
		}
		f.Labels[i] = NewLabelGrid(lvl.W, lvl.H)
		f.LabelFuncs[i] = mat.NewDense(lvl.W*lvl.H, f.K+1, nil)
	}
}

// Clusterer segments frames into Options.NumClusters geometric clusters. It
// keeps its result buffers between frames and is not safe for concurrent use.
type Clusterer struct {
	Options Options
	Logger  zerolog.Logger

	frame *Frame
}

// NewClusterer validates opt; the result logs nothing until Logger is set.
func NewClusterer(opt Options) (*Clusterer, error) {
	if err := opt.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid clustering options")
	}
	return &Clusterer{Options: opt, Logger: zerolog.Nop()}, nil
}

// Segment seeds the clusters from the image grid and runs the full pipeline.
// The returned frame is reused by the next call.
func (c *Clusterer) Segment(p *Pyramid) (*Frame, error) {
	f, err := c.prepare(p)
	if err != nil {
		return nil, err
	}
	opt := c.Options
	reduced := p.Levels[opt.BaseLevel+1]
	labels := f.Labels[opt.BaseLevel+1]

	var centers []r3.Vector
	if opt.Seed == SeedKMeans {
		centers, err = seedKMeansCenters(reduced, opt.NumClusters, opt.PruneFactor, labels)
		if err != nil {
			c.Logger.Warn().Err(err).Str("seed", opt.Seed.String()).Msg("falling back to grid seeds")
		}
	}
	if centers == nil {
		centers = SeedGridCenters(reduced, opt.NumClusters, opt.FOVHorizontal, labels)
	}
	copy(f.Centers, centers)

	c.run(p, f)
	return f, nil
}

// SegmentFrom runs the pipeline from the given centers instead of grid seeds.
func (c *Clusterer) SegmentFrom(p *Pyramid, centers []r3.Vector) (*Frame, error) {
	if len(centers) != c.Options.NumClusters {
		return nil, errors.Errorf("got %d centers for %d clusters", len(centers), c.Options.NumClusters)
	}
	f, err := c.prepare(p)
	if err != nil {
		return nil, err
	}
	opt := c.Options
	copy(f.Centers, centers)
	AssignLevel(p.Levels[opt.BaseLevel+1], f.Centers, opt.PruneFactor, f.Labels[opt.BaseLevel+1])

	c.run(p, f)
	return f, nil
}

func (c *Clusterer) prepare(p *Pyramid) (*Frame, error) {
	opt := c.Options
	if p == nil {
		return nil, errors.New("nil pyramid")
	}
	if len(p.Levels) < opt.BaseLevel+2 {
		return nil, errors.Errorf("pyramid has %d levels, base level %d needs %d", len(p.Levels), opt.BaseLevel, opt.BaseLevel+2)
	}
	for i, lvl := range p.Levels[opt.BaseLevel:] {
		if lvl == nil || lvl.Depth == nil || lvl.X == nil || lvl.Y == nil {
			return nil, errors.Errorf("pyramid level %d is incomplete", opt.BaseLevel+i)
		}
		if lvl.W < 1 || lvl.H < 1 {
			return nil, errors.Errorf("pyramid level %d is empty", opt.BaseLevel+i)
		}
	}

	if c.frame == nil || c.frame.K != opt.NumClusters || c.frame.BaseLevel != opt.BaseLevel {
		c.frame = newFrame(opt.NumClusters, opt.BaseLevel)
	}
	c.frame.ensure(p)
	return c.frame, nil
}

func (c *Clusterer) run(p *Pyramid, f *Frame) {
	opt := c.Options
	base := opt.BaseLevel
	reduced := p.Levels[base+1]

	f.Refine = Refine(reduced, f.Centers, f.Labels[base+1], opt)
	for i, s := range f.Refine.Shifts {
		c.Logger.Debug().Int("iteration", i+1).Float64("max_shift", s).Msg("kmeans iteration")
	}

	lvl := p.Levels[base]
	AssignFromCoarse(lvl, f.Labels[base+1], f.Centers, opt.PruneFactor, f.Labels[base], f.Sizes)
	BuildConnectivity(lvl, f.Labels[base], discontinuityThreshold(opt.DiscontinuityScale, lvl.H), f.Connectivity)
	Smooth(lvl, f.Labels[base], f.Centers, f.Connectivity, opt.Sharpness, opt.SharpnessCutoff, f.LabelFuncs[base])

	propagate(p, base+1, f.Centers, f.Connectivity, opt, f)

	c.logFrame(lvl, f)
}

func (c *Clusterer) logFrame(lvl *Level, f *Frame) {
	if c.Logger.GetLevel() > zerolog.InfoLevel {
		return
	}
	sizes := make([]float64, len(f.Sizes))
	for i, s := range f.Sizes {
		sizes[i] = float64(s)
	}
	ev := c.Logger.Info().
		Int("clusters", f.K).
		Int("iterations", f.Refine.Iterations).
		Bool("converged", f.Refine.Converged).
		Int("valid_pixels", lvl.ValidCount()).
		Int("empty_clusters", f.EmptyClusters()).
		Int("components", len(f.Connectivity.Components()))
	if len(sizes) > 1 {
		mean, std := stat.MeanStdDev(sizes, nil)
		ev = ev.Float64("size_mean", mean).Float64("size_std", std)
	}
	ev.Msg("frame clustered")
}
