package pipeline

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/legsim/pkg/cache"
	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/observability"
	"github.com/matzehuels/legsim/pkg/physics"
)

func newRunner(t *testing.T, cached bool) *Runner {
	t.Helper()
	var c cache.Cache
	if cached {
		fc, err := cache.NewFileCache(t.TempDir())
		require.NoError(t, err)
		c = fc
	}
	return NewRunner(nil, c, nil, nil)
}

func TestSolveRestPose(t *testing.T) {
	r := newRunner(t, false)
	res, err := r.Solve(context.Background(), Options{})
	require.NoError(t, err)

	require.True(t, res.OK())
	require.Len(t, res.Legs, 2)
	assert.Equal(t, "rear", res.Legs[0].Name)
	assert.Equal(t, "front", res.Legs[1].Name)

	rear, ok := res.Leg("rear")
	require.True(t, ok)
	require.Len(t, rear.Points, 6)
	foot := rear.Points[4]
	assert.Equal(t, kinematics.Foot, foot.Name)
	assert.InDelta(t, -0.040178514274, foot.X, 1e-9)
	assert.InDelta(t, -0.121345709116, foot.Y, 1e-9)

	poses := res.Poses()
	assert.Len(t, poses, 2)
	assert.InDelta(t, -0.026870057685, poses["rear"][kinematics.UpperTip][0], 1e-9)
}

func TestSolveReportsFailedLeg(t *testing.T) {
	r := newRunner(t, false)
	res, err := r.Solve(context.Background(), Options{
		Angles: map[string]kinematics.Angles{"front": {Upper: 200}},
	})
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Failed())
	front, _ := res.Leg("front")
	assert.Equal(t, string(legerr.ErrCodeUnreachable), front.Code)
	assert.NotEmpty(t, front.Error)
	assert.Empty(t, front.Points)
	assert.NotContains(t, res.Poses(), "front")
}

func TestSolveClamp(t *testing.T) {
	r := newRunner(t, false)
	res, err := r.Solve(context.Background(), Options{
		Angles: map[string]kinematics.Angles{"front": {Upper: 200, Lower: -5}},
		Clamp:  true,
	})
	require.NoError(t, err)
	require.True(t, res.OK())
	front, _ := res.Leg("front")
	assert.Equal(t, kinematics.Angles{Upper: 40, Lower: 0}, front.Angles)
}

func TestSolveRejectsInput(t *testing.T) {
	r := newRunner(t, false)
	tests := []struct {
		name   string
		angles map[string]kinematics.Angles
	}{
		{"unknown leg", map[string]kinematics.Angles{"middle": {}}},
		{"empty name", map[string]kinematics.Angles{"": {}}},
		{"nan", map[string]kinematics.Angles{"rear": {Upper: math.NaN()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Solve(context.Background(), Options{Angles: tt.angles})
			assert.True(t, legerr.Is(err, legerr.ErrCodeInvalidInput), "got %v", err)
		})
	}
}

func TestSolveCache(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, true)
	opts := Options{Angles: map[string]kinematics.Angles{"rear": {Upper: 15, Lower: 20}}}

	first, hit, err := r.SolveWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := r.SolveWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs (-want +got):\n%s", diff)
	}

	opts.Refresh = true
	_, hit, err = r.SolveWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.False(t, hit)

	// omitted legs solve at zero input and share the key
	_, hit, err = r.SolveWithCacheInfo(ctx, Options{Angles: map[string]kinematics.Angles{
		"rear": {Upper: 15, Lower: 20}, "front": {},
	}})
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, true)

	rep, hit, err := r.SweepWithCacheInfo(ctx, SweepOptions{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, kinematics.AxisUpper, rep.Axis)
	assert.Equal(t, 0.0, rep.From)
	assert.Equal(t, 40.0, rep.To)
	assert.Equal(t, 401, rep.Samples)
	failed := 0
	for _, n := range rep.Failures {
		failed += n
	}
	assert.Equal(t, rep.Samples, rep.Reachable+failed)

	again, hit, err := r.SweepWithCacheInfo(ctx, SweepOptions{Axis: "upper", Step: DefaultSweepStep})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, rep, again)

	lower, err := r.Sweep(ctx, SweepOptions{Leg: "front", Axis: "lower", From: 10, To: 20, Step: 5})
	require.NoError(t, err)
	assert.Equal(t, kinematics.AxisLower, lower.Axis)
	assert.Equal(t, 3, lower.Samples)
}

func TestSweepRejects(t *testing.T) {
	r := newRunner(t, false)
	tests := []struct {
		name string
		opts SweepOptions
		code legerr.Code
	}{
		{"unknown leg", SweepOptions{Leg: "middle"}, legerr.ErrCodeNotFound},
		{"bad axis", SweepOptions{Axis: "sideways"}, legerr.ErrCodeInvalidInput},
		{"negative step", SweepOptions{Step: -1}, legerr.ErrCodeInvalidInput},
		{"reversed", SweepOptions{From: 30, To: 10}, legerr.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Sweep(context.Background(), tt.opts)
			assert.True(t, legerr.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, true)
	opts := Options{Angles: map[string]kinematics.Angles{"front": {Upper: 10, Lower: 5}}}

	c, hit, err := r.CommitWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, c.Spec.Links, 12)
	assert.Len(t, c.Spec.Joints, 16)
	assert.Len(t, c.Poses, 2)
	require.NoError(t, c.Spec.Validate())

	cached, hit, err := r.CommitWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	if diff := cmp.Diff(c, cached); diff != "" {
		t.Errorf("cached commit differs (-want +got):\n%s", diff)
	}

	// body parameters are part of the key
	r.Config.Body.LinkMass = 0.3
	_, hit, err = r.CommitWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCommitRefusesFailedLeg(t *testing.T) {
	r := newRunner(t, false)
	_, err := r.Commit(context.Background(), Options{
		Angles: map[string]kinematics.Angles{"front": {Upper: 200}},
	})
	assert.True(t, legerr.Is(err, legerr.ErrCodeInvalidPose), "got %v", err)
	assert.Contains(t, err.Error(), "UNREACHABLE")
}

func TestBuildAndSimulate(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, false)
	c, err := r.Commit(ctx, Options{})
	require.NoError(t, err)

	scene := physics.NewScene()
	m, err := r.Build(ctx, c.Spec, scene, nil)
	require.NoError(t, err)
	assert.Len(t, m.Motors(), 4)
	assert.Empty(t, m.Servos)
	pivots, limits, motors := scene.Counts()
	assert.Equal(t, [3]int{16, 4, 4}, [3]int{pivots, limits, motors})

	res, err := r.Simulate(ctx, c.Spec, SimOptions{Duration: time.Second, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, 240, res.Stats.Steps)
	assert.Equal(t, 1, res.Stats.Resamples)
	assert.Len(t, res.Mechanism.Servos, 2)
	assert.IsType(t, &physics.Scene{}, res.World)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	r := newRunner(t, false)
	c, err := r.Commit(context.Background(), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	res, err := r.Simulate(ctx, c.Spec, SimOptions{
		Duration: 5 * time.Second,
		OnTick: func(t float64) error {
			if t >= 0.5-1e-9 {
				cancel()
			}
			return nil
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 120, res.Stats.Steps)
}

func TestGraph(t *testing.T) {
	r := newRunner(t, false)
	c, err := r.Commit(context.Background(), Options{})
	require.NoError(t, err)

	dot, err := r.Graph(c.Spec, FormatDOT, false)
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"torso" -> "rear_crank_upper"`)

	_, err = r.Graph(c.Spec, "png", false)
	assert.True(t, legerr.Is(err, legerr.ErrCodeUnsupported), "got %v", err)
	_, err = r.Graph(nil, FormatDOT, false)
	assert.True(t, legerr.Is(err, legerr.ErrCodeInvalidInput), "got %v", err)
}

type recorder struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnSolveStart(context.Context, int)                                  { r.add("solve") }
func (r *recorder) OnCompile(context.Context, int, int, error)                         { r.add("compile") }
func (r *recorder) OnBuildComplete(context.Context, int, int, time.Duration, error)    { r.add("build") }
func (r *recorder) OnSimulateComplete(context.Context, int, int, time.Duration, error) { r.add("simulate") }
func (r *recorder) OnCacheHit(_ context.Context, kind string)                          { r.add("hit " + kind) }
func (r *recorder) OnCacheMiss(_ context.Context, kind string)                         { r.add("miss " + kind) }

func TestHooks(t *testing.T) {
	rec := &recorder{}
	observability.SetPipelineHooks(rec)
	observability.SetCacheHooks(rec)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	r := newRunner(t, true)
	c, err := r.Commit(ctx, Options{})
	require.NoError(t, err)
	_, err = r.Commit(ctx, Options{})
	require.NoError(t, err)
	_, err = r.Simulate(ctx, c.Spec, SimOptions{Duration: 100 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, []string{"miss spec", "solve", "compile", "hit spec", "build", "simulate"}, rec.events)
}
