package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/legsim/pkg/cache"
	"github.com/matzehuels/legsim/pkg/config"
	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/mechanism"
	"github.com/matzehuels/legsim/pkg/observability"
	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/render/nodelink"
	"github.com/matzehuels/legsim/pkg/servo"
	"github.com/matzehuels/legsim/pkg/sim"
)

// Runner executes pipeline stages with caching.
//
// The Runner holds only the config, the cache and the logger; every call
// builds fresh solver state, so one Runner can serve concurrent requests.
type Runner struct {
	Config *config.Config
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cfg uses [config.Default], a nil
// cache disables caching and a nil keyer uses the default keyer.
func NewRunner(cfg *config.Config, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Config: cfg, Cache: c, Keyer: keyer, Logger: logger}
}

// Body replicates the configured reference leg.
func (r *Runner) Body() (*kinematics.Body, error) {
	return r.Config.NewBody()
}

// GeometryHash identifies everything that shapes a solve.
func (r *Runner) GeometryHash() string {
	h, _ := cache.HashJSON(struct {
		Geometry config.Geometry
		Legs     config.Legs
	}{r.Config.Geometry, r.Config.Legs})
	return h
}

// SolveWithCacheInfo solves every leg and reports whether the result came
// from the cache. Leg failures are part of the result, not errors.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, opts Options) (*SolveResult, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	body, err := r.Body()
	if err != nil {
		return nil, false, err
	}
	if err := r.resolveAngles(body, &opts); err != nil {
		return nil, false, err
	}

	key := r.Keyer.SolveKey(r.GeometryHash(), cache.SolveKeyOpts{Angles: opts.angleKey(), Clamp: opts.Clamp})
	var res SolveResult
	if r.lookup(ctx, key, opts.Refresh, &res) {
		return &res, true, nil
	}

	results := r.solve(ctx, body, opts.Angles)
	for _, name := range body.Names() {
		rep := LegReport{Name: name, Angles: opts.Angles[name]}
		if lr := results[name]; lr.Err != nil {
			rep.Code, rep.Error = describe(lr.Err)
		} else {
			rep.Points = pointsOf(lr.Pose)
		}
		res.Legs = append(res.Legs, rep)
	}
	r.store(ctx, key, &res, cache.TTLSolve)
	return &res, false, nil
}

// Solve is SolveWithCacheInfo without the cache hit flag.
func (r *Runner) Solve(ctx context.Context, opts Options) (*SolveResult, error) {
	res, _, err := r.SolveWithCacheInfo(ctx, opts)
	return res, err
}

// SweepWithCacheInfo sweeps one actuator of one leg.
func (r *Runner) SweepWithCacheInfo(ctx context.Context, opts SweepOptions) (*kinematics.SweepReport, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	body, err := r.Body()
	if err != nil {
		return nil, false, err
	}
	if opts.Leg == "" {
		opts.Leg = body.Reference().Name
	}
	leg, ok := body.Leg(opts.Leg)
	if !ok {
		return nil, false, legerr.New(legerr.ErrCodeNotFound, "unknown leg %q", opts.Leg)
	}
	axis, _ := ParseAxis(opts.Axis)
	if opts.From == 0 && opts.To == 0 {
		act := leg.Geometry.Upper
		if axis == kinematics.AxisLower {
			act = leg.Geometry.Lower
		}
		opts.From, opts.To = act.MinDeg, act.MaxDeg
	}

	key := r.Keyer.SweepKey(r.GeometryHash(), cache.SweepKeyOpts{
		Leg: opts.Leg, Axis: opts.Axis, Other: opts.Other, From: opts.From, To: opts.To, Step: opts.Step,
	})
	var rep kinematics.SweepReport
	if r.lookup(ctx, key, opts.Refresh, &rep) {
		return &rep, true, nil
	}

	start := time.Now()
	rep, err = leg.Chain().Sweep(axis, opts.Other, opts.From, opts.To, opts.Step)
	if err != nil {
		return nil, false, err
	}
	r.Logger.Debug("swept actuator", "leg", opts.Leg, "axis", opts.Axis,
		"samples", rep.Samples, "reachable", rep.Reachable, "duration", time.Since(start))
	r.store(ctx, key, &rep, cache.TTLSweep)
	return &rep, false, nil
}

// Sweep is SweepWithCacheInfo without the cache hit flag.
func (r *Runner) Sweep(ctx context.Context, opts SweepOptions) (*kinematics.SweepReport, error) {
	rep, _, err := r.SweepWithCacheInfo(ctx, opts)
	return rep, err
}

// CommitWithCacheInfo solves and compiles the current pose into a spec.
// Any failed leg refuses the commit with INVALID_POSE.
func (r *Runner) CommitWithCacheInfo(ctx context.Context, opts Options) (*Commit, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	body, err := r.Body()
	if err != nil {
		return nil, false, err
	}
	if err := r.resolveAngles(body, &opts); err != nil {
		return nil, false, err
	}

	bodyHash, _ := cache.HashJSON(struct {
		Body   config.Body
		Ground config.Ground
	}{r.Config.Body, r.Config.Ground})
	key := r.Keyer.SpecKey(r.GeometryHash(), cache.SpecKeyOpts{Angles: opts.angleKey(), Body: bodyHash})
	var c Commit
	if r.lookup(ctx, key, opts.Refresh, &c) {
		return &c, true, nil
	}

	results := r.solve(ctx, body, opts.Angles)
	spec, err := r.Config.NewCompiler(body).Compile(opts.Angles, results)
	if err != nil {
		observability.Pipeline().OnCompile(ctx, 0, 0, err)
		return nil, false, err
	}
	observability.Pipeline().OnCompile(ctx, len(spec.Links), len(spec.Joints), nil)
	r.Logger.Info("compiled spec", "links", len(spec.Links), "joints", len(spec.Joints))

	c = Commit{Spec: spec, Poses: geomspec.NewPoseDump(results)}
	r.store(ctx, key, &c, cache.TTLSpec)
	return &c, false, nil
}

// Commit is CommitWithCacheInfo without the cache hit flag.
func (r *Runner) Commit(ctx context.Context, opts Options) (*Commit, error) {
	c, _, err := r.CommitWithCacheInfo(ctx, opts)
	return c, err
}

// Build instantiates spec in world. Driven motors are registered with ctrl
// when it is not nil. Orphan links are logged as warnings.
func (r *Runner) Build(ctx context.Context, spec *geomspec.Spec, world physics.World, ctrl *servo.Controller) (*mechanism.Mechanism, error) {
	opts := r.Config.BuildOptions()
	opts.Servo = ctrl
	opts.Logger = r.Logger

	links := 0
	if spec != nil {
		links = len(spec.Links)
	}
	observability.Pipeline().OnBuildStart(ctx, links)
	start := time.Now()
	m, err := mechanism.Build(ctx, spec, r.Config.Base(), world, opts)
	if err != nil {
		observability.Pipeline().OnBuildComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	observability.Pipeline().OnBuildComplete(ctx, len(m.Links)+1, len(m.Warnings), time.Since(start), nil)

	for _, w := range m.Warnings {
		r.Logger.Warn("link skipped", "code", legerr.GetCode(w), "reason", legerr.UserMessage(w))
	}
	r.Logger.Info("built mechanism", "links", len(m.Links), "joints", len(m.Joints), "servos", len(m.Servos))
	return m, nil
}

// Simulate builds spec and runs the servo loop on it.
func (r *Runner) Simulate(ctx context.Context, spec *geomspec.Spec, opts SimOptions) (*SimResult, error) {
	cfg := r.Config.ServoConfig()
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	if opts.Duration == 0 {
		opts.Duration = r.Config.Duration()
	}
	world := opts.World
	if world == nil {
		world = physics.NewScene()
	}

	ctrl := servo.New(cfg, r.Logger)
	m, err := r.Build(ctx, spec, world, ctrl)
	if err != nil {
		return nil, err
	}
	loop := &sim.Loop{
		World:    world,
		Servo:    ctrl,
		Timestep: r.Config.Sim.Timestep,
		Logger:   r.Logger,
		OnTick:   opts.OnTick,
	}
	stats, err := loop.Run(ctx, opts.Duration)
	res := &SimResult{Mechanism: m, World: world, Stats: stats}
	if err != nil {
		return res, err
	}
	r.Logger.Info("simulation complete", "steps", stats.Steps, "resamples", stats.Resamples,
		"max_error", stats.MaxError)
	return res, nil
}

// Graph draws the link topology of spec.
func (r *Runner) Graph(spec *geomspec.Spec, format string, detailed bool) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, legerr.New(legerr.ErrCodeInvalidInput, "no spec")
	}
	g, err := spec.Graph()
	if err != nil {
		return nil, err
	}
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed})
	if format == FormatDOT {
		return []byte(dot), nil
	}
	return nodelink.RenderSVG(dot)
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// resolveAngles rejects unknown legs, fills missing legs with zero input
// and clamps when asked. opts.Angles is replaced, never mutated.
func (r *Runner) resolveAngles(body *kinematics.Body, opts *Options) error {
	for name := range opts.Angles {
		if _, ok := body.Leg(name); !ok {
			return legerr.New(legerr.ErrCodeInvalidInput, "unknown leg %q", name)
		}
	}
	out := make(map[string]kinematics.Angles, len(body.Legs))
	for _, leg := range body.Legs {
		a := opts.Angles[leg.Name]
		if opts.Clamp {
			a = leg.Geometry.Clamp(a)
		}
		out[leg.Name] = a
	}
	opts.Angles = out
	return nil
}

func (r *Runner) solve(ctx context.Context, body *kinematics.Body, angles map[string]kinematics.Angles) map[string]kinematics.LegResult {
	observability.Pipeline().OnSolveStart(ctx, len(body.Legs))
	start := time.Now()
	results := body.Solve(angles)
	failed := 0
	for name, lr := range results {
		if lr.Err != nil {
			failed++
			r.Logger.Debug("leg failed", "leg", name, "code", legerr.GetCode(lr.Err))
		}
	}
	observability.Pipeline().OnSolveComplete(ctx, len(body.Legs), failed, time.Since(start))
	return results
}

// lookup decodes a cached value into v. Undecodable entries count as misses.
func (r *Runner) lookup(ctx context.Context, key string, refresh bool, v any) bool {
	if refresh {
		return false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit || json.Unmarshal(data, v) != nil {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return false
	}
	observability.Cache().OnCacheHit(ctx, keyType(key))
	return true
}

func (r *Runner) store(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
}

// keyType strips the hash from a cache key, leaving any scope prefix and
// the kind, e.g. "solve".
func keyType(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[:i]
	}
	return key
}
