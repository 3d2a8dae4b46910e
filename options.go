package geocluster

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// MaxClusters is the largest cluster count a Clusterer accepts.
const MaxClusters = 64

// SeedMethod selects how the first centers of a frame are placed.
type SeedMethod int

const (
	SeedGrid SeedMethod = iota
	SeedKMeans
)

func (m SeedMethod) String() string {
	switch m {
	case SeedKMeans:
		return "kmeans"
	default:
		return "grid"
	}
}

type Options struct {
	// Number of geometric clusters K, at most MaxClusters.
	// Ideal start: 24 for a 320x240 working resolution.
	// Too low => large rigid pieces that straddle independently moving objects.
	NumClusters int
	// Horizontal field of view of the camera in radians.
	FOVHorizontal float64
	// Pyramid level the clusters are reported at. Seeding and k-means run one level coarser.
	BaseLevel int
	// k-means iteration budget.
	MaxIterations int
	// Convergence threshold on the largest per-coordinate center shift (meters).
	Tolerance float64
	// Nearest-center pruning factor on squared distances. 4 is the exact
	// triangle-inequality bound; lower values prune more aggressively and lose exactness.
	PruneFactor float64
	// Depth-discontinuity distance at 120 rows (meters). It is rescaled by 120/rows
	// and squared. Higher values connect clusters across larger depth jumps.
	DiscontinuityScale float64
	// Sharpness of the soft label functions. Ideal start: 100.
	// Lower => wider blending bands between neighboring clusters.
	Sharpness float64
	// Exponent above which a soft weight is treated as zero.
	SharpnessCutoff float64
	// Seeding strategy for every frame.
	Seed SeedMethod
}

func DefaultOptions() Options {
	return Options{
		NumClusters:        24,
		FOVHorizontal:      58.6 * math.Pi / 180,
		BaseLevel:          0,
		MaxIterations:      10,
		Tolerance:          0.01,
		PruneFactor:        4,
		DiscontinuityScale: 0.03,
		Sharpness:          100,
		SharpnessCutoff:    6,
		Seed:               SeedGrid,
	}
}

// OptionsFromSize picks the base level so that the clusters are computed near
// 320 columns, whatever the sensor resolution.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	w := size.X
	for w > 400 && size.Y>>(opt.BaseLevel+2) > 0 {
		w /= 2
		opt.BaseLevel++
	}
	return opt
}

// Validate rejects settings the pipeline cannot run with: K outside
// [1, MaxClusters], a field of view outside (0, pi), and non-finite or
// out-of-range numeric parameters.
func (o Options) Validate() error {
	if o.NumClusters < 1 {
		return errors.Errorf("cluster count must be positive, got %d", o.NumClusters)
	}
	if o.NumClusters > MaxClusters {
		return errors.Errorf("cluster count %d exceeds maximum %d", o.NumClusters, MaxClusters)
	}
	if !(o.FOVHorizontal > 0 && o.FOVHorizontal < math.Pi) {
		return errors.Errorf("horizontal field of view must be in (0, pi), got %v", o.FOVHorizontal)
	}
	if o.BaseLevel < 0 {
		return errors.Errorf("base level must not be negative, got %d", o.BaseLevel)
	}
	if o.MaxIterations < 1 {
		return errors.Errorf("iteration budget must be positive, got %d", o.MaxIterations)
	}
	if !(o.Tolerance >= 0) || math.IsInf(o.Tolerance, 1) {
		return errors.Errorf("tolerance must be finite and not negative, got %v", o.Tolerance)
	}
	if !positiveFinite(o.PruneFactor) {
		return errors.Errorf("prune factor must be positive and finite, got %v", o.PruneFactor)
	}
	if !positiveFinite(o.DiscontinuityScale) {
		return errors.Errorf("discontinuity scale must be positive and finite, got %v", o.DiscontinuityScale)
	}
	if !positiveFinite(o.Sharpness) || !positiveFinite(o.SharpnessCutoff) {
		return errors.Errorf("sharpness and cutoff must be positive and finite, got %v and %v", o.Sharpness, o.SharpnessCutoff)
	}
	switch o.Seed {
	case SeedGrid, SeedKMeans:
	default:
		return errors.Errorf("unknown seed method %d", int(o.Seed))
	}
	return nil
}

// positiveFinite is false for NaN as well.
func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
