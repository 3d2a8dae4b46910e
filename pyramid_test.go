package geocluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewPyramid_Shapes(t *testing.T) {
	p := testPyramid(t, flatDepth(64, 48, 1), 3)
	require.Len(t, p.Levels, 3)

	want := [][2]int{{64, 48}, {32, 24}, {16, 12}}
	for i, lvl := range p.Levels {
		assert.Equal(t, want[i][0], lvl.W, "level %d width", i)
		assert.Equal(t, want[i][1], lvl.H, "level %d height", i)
		assert.Equal(t, lvl.W*lvl.H, lvl.ValidCount())
	}
}

func TestNewPyramid_AveragesOnlyValidDepths(t *testing.T) {
	depth := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		3, 0, 0, 0,
	})
	p := testPyramid(t, depth, 2)

	coarse := p.Levels[1]
	assert.Equal(t, 2.0, coarse.Depth.At(0, 0))
	assert.Equal(t, 0.0, coarse.Depth.At(0, 1))
	assert.False(t, coarse.Valid(0, 1))
	assert.Equal(t, 1, coarse.ValidCount())
}

func TestNewPyramid_DoesNotAliasInput(t *testing.T) {
	depth := flatDepth(8, 8, 2)
	p := testPyramid(t, depth, 2)
	depth.Set(0, 0, 7)
	assert.Equal(t, 2.0, p.Levels[0].Depth.At(0, 0))
}

func TestBackProject_Pinhole(t *testing.T) {
	lvl := BackProject(flatDepth(5, 3, 2), testFOV)
	invF := 2 * math.Tan(0.5*testFOV) / 5

	c := lvl.Point(1, 2)
	assert.Equal(t, 2.0, c.Z)
	assert.InDelta(t, 0, c.X, 1e-12)
	assert.InDelta(t, 0, c.Y, 1e-12)

	right := lvl.Point(1, 4)
	assert.InDelta(t, 2*2*invF, right.X, 1e-12)
	top := lvl.Point(0, 2)
	assert.InDelta(t, -1*2*invF, top.Y, 1e-12)
}

func TestBackProject_InvalidPixelsStayAtOrigin(t *testing.T) {
	depth := flatDepth(4, 4, 1)
	depth.Set(0, 0, 0)
	lvl := BackProject(depth, testFOV)
	p := lvl.Point(0, 0)
	assert.Zero(t, p.X)
	assert.Zero(t, p.Y)
	assert.Zero(t, p.Z)
}

func TestNewPyramid_Errors(t *testing.T) {
	_, err := NewPyramid(flatDepth(8, 8, 1), testFOV, 0)
	assert.Error(t, err)

	_, err = NewPyramid(flatDepth(8, 8, 1), 0, 2)
	assert.Error(t, err)

	_, err = NewPyramid(flatDepth(4, 4, 1), testFOV, 4)
	assert.Error(t, err)

	_, err = NewPyramid(nil, testFOV, 1)
	assert.Error(t, err)
}

func TestNewLevel_ShapeMismatch(t *testing.T) {
	d := mat.NewDense(4, 4, nil)
	_, err := NewLevel(d, mat.NewDense(4, 3, nil), mat.NewDense(4, 4, nil))
	assert.Error(t, err)

	_, err = NewLevel(d, mat.NewDense(4, 4, nil), mat.NewDense(3, 4, nil))
	assert.Error(t, err)

	lvl, err := NewLevel(d, mat.NewDense(4, 4, nil), mat.NewDense(4, 4, nil))
	require.NoError(t, err)
	assert.Equal(t, 4, lvl.W)
	assert.Equal(t, 0, lvl.ValidCount())
}
