package kinematics

import (
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

func TestReplicateAnchors(t *testing.T) {
	ref := DefaultGeometry()
	b, err := Replicate(ref, DefaultHipSpacing)
	require.NoError(t, err)
	require.Equal(t, []string{"rear", "front"}, b.Names())

	rear, ok := b.Leg("rear")
	require.True(t, ok)
	assert.Equal(t, ref.Upper.Pivot, rear.Geometry.Upper.Pivot)
	assert.Equal(t, ref.Lower.Pivot, rear.Geometry.Lower.Pivot)
	assert.Same(t, rear, b.Reference())

	front, ok := b.Leg("front")
	require.True(t, ok)
	fg := front.Geometry
	assert.InDelta(t, 0.18, fg.Upper.Pivot.X, 1e-12)
	assert.InDelta(t, 0.0, fg.Upper.Pivot.Y, 1e-12)
	assert.InDelta(t, 0.2186, fg.Lower.Pivot.X, 1e-12)
	assert.InDelta(t, -0.0268, fg.Lower.Pivot.Y, 1e-12)
	assert.InDelta(t, 0.2226, fg.Fixed.X, 1e-12)
	assert.InDelta(t, -0.0155, fg.Fixed.Y, 1e-12)
}

func TestFrontLegBaseline(t *testing.T) {
	b, err := Replicate(DefaultGeometry(), DefaultHipSpacing)
	require.NoError(t, err)

	front, _ := b.Leg("front")
	p, err := front.Solve(Angles{Upper: 10, Lower: 5})
	require.NoError(t, err)
	assertPose(t, map[string]v2.Vec{
		UpperTip:    {X: 0.148872222317, Y: 0.021795904581},
		LowerTip:    {X: 0.237883628291, Y: -0.049781333294},
		Joint1:      {X: 0.143845013769, Y: -0.008793753380},
		BlueOrange:  {X: 0.118975018117, Y: -0.006675991290},
		Foot:        {X: 0.142078444689, Y: -0.128504689390},
		GreenAttach: {X: 0.127918280016, Y: -0.053835487328},
	}, p)
}

func TestReplicatedLegIsTranslatedCopy(t *testing.T) {
	b, err := Replicate(DefaultGeometry(), DefaultHipSpacing)
	require.NoError(t, err)
	rear, _ := b.Leg("rear")
	front, _ := b.Leg("front")

	in := Angles{Upper: 25, Lower: 12}
	rp, err := rear.Solve(in)
	require.NoError(t, err)
	fp, err := front.Solve(in)
	require.NoError(t, err)

	shifted := rp.Translate(v2.Vec{X: DefaultHipSpacing})
	assert.Less(t, shifted.MaxDisplacement(fp), 1e-12)
}

func TestBodySolveIndependentLegs(t *testing.T) {
	b, err := Replicate(DefaultGeometry(), DefaultHipSpacing)
	require.NoError(t, err)

	res := b.Solve(map[string]Angles{
		"rear":  {Upper: 200, Lower: 0},
		"front": {Upper: 10, Lower: 5},
	})
	require.Len(t, res, 2)

	assert.True(t, legerr.Is(res["rear"].Err, legerr.ErrCodeUnreachable))
	assert.True(t, res["rear"].Pose.IsZero())

	require.NoError(t, res["front"].Err)
	assert.Equal(t, 6, res["front"].Pose.Len())
}

func TestBodySolveMissingAngles(t *testing.T) {
	b, err := Replicate(DefaultGeometry(), DefaultHipSpacing)
	require.NoError(t, err)

	res := b.Solve(map[string]Angles{"rear": {}})
	assert.NoError(t, res["rear"].Err)
	assert.True(t, legerr.Is(res["front"].Err, legerr.ErrCodeInvalidInput))
}

func TestReplicateErrors(t *testing.T) {
	_, err := Replicate(DefaultGeometry(), DefaultHipSpacing, "rear", "rear")
	assert.Error(t, err)

	_, err = Replicate(DefaultGeometry(), DefaultHipSpacing, "Rear")
	assert.Error(t, err)

	bad := DefaultGeometry()
	bad.Blue = 0
	_, err = Replicate(bad, DefaultHipSpacing)
	assert.Error(t, err)
}

func TestReplicateFourLegs(t *testing.T) {
	b, err := Replicate(DefaultGeometry(), 0.1, "l0", "l1", "l2", "l3")
	require.NoError(t, err)
	for i, l := range b.Legs {
		assert.InDelta(t, float64(i)*0.1, l.Geometry.Upper.Pivot.X, 1e-12)
	}
}
