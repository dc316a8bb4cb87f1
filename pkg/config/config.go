// Package config loads the robot description from a TOML file.
//
// A config file only needs the keys it changes; everything else keeps the
// values from [Default]. Unknown keys are rejected so typos do not silently
// fall back to defaults.
//
//	[geometry]
//	red = 0.033
//
//	[servo]
//	range_deg = 15
//	driven = ["rear_upper_motor"]
package config

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/mechanism"
	"github.com/matzehuels/legsim/pkg/servo"
	"github.com/matzehuels/legsim/pkg/sim"
)

const (
	// AppName names the config and cache directories.
	AppName = "legsim"

	// FileName is the config file looked up in the config directory.
	FileName = "legsim.toml"

	// DefaultStallTorque is the motor force used when building, N·m.
	DefaultStallTorque = 1.416
)

// Config is the whole robot description.
type Config struct {
	Geometry Geometry `toml:"geometry"`
	Legs     Legs     `toml:"legs"`
	Body     Body     `toml:"body"`
	Ground   Ground   `toml:"ground"`
	Servo    Servo    `toml:"servo"`
	Sim      Sim      `toml:"sim"`
	Build    Build    `toml:"build"`
	Server   Server   `toml:"server"`
	Cache    Cache    `toml:"cache"`
}

// Actuator mirrors [kinematics.Actuator].
type Actuator struct {
	Pivot   [2]float64 `toml:"pivot"`
	Radius  float64    `toml:"radius"`
	BaseDeg float64    `toml:"base_deg"`
	Sign    float64    `toml:"sign"`
	MinDeg  float64    `toml:"min_deg"`
	MaxDeg  float64    `toml:"max_deg"`
}

// Geometry is the reference leg. The fixed pivot is given as an offset
// from the lower actuator pivot.
type Geometry struct {
	Upper       Actuator   `toml:"upper"`
	Lower       Actuator   `toml:"lower"`
	FixedOffset [2]float64 `toml:"fixed_offset"`
	Red         float64    `toml:"red"`
	Blue        float64    `toml:"blue"`
	JointRatio  float64    `toml:"joint_ratio"`
	Orange      float64    `toml:"orange"`
	Attach      float64    `toml:"attach"`
}

// Legs places copies of the reference leg.
type Legs struct {
	Names      []string `toml:"names"`
	HipSpacing float64  `toml:"hip_spacing"`
}

// Body holds the torso and link parameters written into compiled specs.
type Body struct {
	TorsoWidth    float64 `toml:"torso_width"`
	TorsoMass     float64 `toml:"torso_mass"`
	TorsoInertia  float64 `toml:"torso_inertia"`
	TorsoFriction float64 `toml:"torso_friction"`
	TopOffset     float64 `toml:"top_offset"`
	BottomOffset  float64 `toml:"bottom_offset"`
	FrontOffset   float64 `toml:"front_offset"`
	LinkMass      float64 `toml:"link_mass"`
	MotorMaxForce float64 `toml:"motor_max_force"`
}

// Ground is a horizontal ground segment.
type Ground struct {
	Y         float64 `toml:"y"`
	FromX     float64 `toml:"from_x"`
	ToX       float64 `toml:"to_x"`
	Thickness float64 `toml:"thickness"`
	Friction  float64 `toml:"friction"`
}

// Servo tunes the target-tracking controller.
type Servo struct {
	Gain     float64  `toml:"gain"`
	RangeDeg float64  `toml:"range_deg"`
	Interval float64  `toml:"interval"` // seconds
	Driven   []string `toml:"driven"`   // motor joint names; empty drives every upper motor
}

// Sim controls the simulation loop.
type Sim struct {
	Timestep float64    `toml:"timestep"` // seconds
	Duration float64    `toml:"duration"` // seconds
	Base     [2]float64 `toml:"base"`     // world position of the reference upper pivot
	Seed     uint64     `toml:"seed"`
}

// Build sets the constraint forces used by the mechanism builder.
type Build struct {
	MotorMaxForce float64 `toml:"motor_max_force"` // overrides spec motors when positive
	PivotMaxForce float64 `toml:"pivot_max_force"`
	LimitMaxForce float64 `toml:"limit_max_force"`
	RodRadius     float64 `toml:"rod_radius"`
	RodFriction   float64 `toml:"rod_friction"`
	Tolerance     float64 `toml:"tolerance"`
}

// Server configures "legsim serve".
type Server struct {
	Addr          string `toml:"addr"`
	Store         string `toml:"store"` // "file" or "mongo"
	StoreDir      string `toml:"store_dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Cache selects the result cache backend.
type Cache struct {
	Backend   string  `toml:"backend"` // "file", "redis" or "none"
	Dir       string  `toml:"dir"`
	RedisAddr string  `toml:"redis_addr"`
	TTL       float64 `toml:"ttl"` // seconds; zero keeps entries forever
}

// Default returns the built-in robot.
func Default() *Config {
	g := kinematics.DefaultGeometry()
	return &Config{
		Geometry: Geometry{
			Upper:       fromActuator(g.Upper),
			Lower:       fromActuator(g.Lower),
			FixedOffset: pair(kinematics.DefaultFixedOffset),
			Red:         g.Red,
			Blue:        g.Blue,
			JointRatio:  g.JointRatio,
			Orange:      g.Orange,
			Attach:      g.Attach,
		},
		Legs: Legs{
			Names:      append([]string(nil), kinematics.DefaultLegNames...),
			HipSpacing: kinematics.DefaultHipSpacing,
		},
		Body: Body{
			TorsoWidth:    geomspec.DefaultTorsoWidth,
			TorsoMass:     geomspec.DefaultTorsoMass,
			TorsoInertia:  geomspec.DefaultTorsoInertia,
			TorsoFriction: geomspec.DefaultTorsoFriction,
			TopOffset:     geomspec.DefaultTopOffset,
			BottomOffset:  geomspec.DefaultBottomOffset,
			FrontOffset:   geomspec.DefaultFrontOffset,
			LinkMass:      geomspec.DefaultLinkMass,
			MotorMaxForce: geomspec.DefaultMotorMaxForce,
		},
		Ground: Ground{
			Y:         geomspec.DefaultGroundY,
			FromX:     -2,
			ToX:       6,
			Thickness: geomspec.DefaultGroundThick,
			Friction:  geomspec.DefaultGroundFrict,
		},
		Servo: Servo{
			Gain:     servo.DefaultGain,
			RangeDeg: servo.DefaultRangeDeg,
			Interval: servo.DefaultInterval.Seconds(),
		},
		Sim: Sim{
			Timestep: sim.DefaultTimestep,
			Duration: 10,
			Base:     pair(mechanism.DefaultBase),
		},
		Build: Build{
			MotorMaxForce: DefaultStallTorque,
			PivotMaxForce: mechanism.DefaultPivotMaxForce,
			LimitMaxForce: mechanism.DefaultLimitMaxForce,
			RodRadius:     mechanism.DefaultRodRadius,
			RodFriction:   mechanism.DefaultRodFriction,
			Tolerance:     mechanism.DefaultTolerance,
		},
		Server: Server{
			Addr:          ":8080",
			Store:         "file",
			MongoDatabase: AppName,
		},
		Cache: Cache{
			Backend: "file",
			TTL:     7 * 24 * 3600,
		},
	}
}

// Load reads path on top of [Default] and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, legerr.Wrap(legerr.ErrCodeNotFound, err, "config %s", path)
		}
		return nil, legerr.Wrap(legerr.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return finish(cfg, md)
}

// Decode reads a TOML document from r on top of [Default].
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInvalidConfig, err, "parse config")
	}
	return finish(cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, legerr.New(legerr.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or the file at [DefaultPath] when path is
// empty. A missing default file yields [Default]; a missing explicit path
// is an error.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	p, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(p); err != nil {
		return Default(), nil
	}
	return Load(p)
}

// DefaultPath returns $XDG_CONFIG_HOME/legsim/legsim.toml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, FileName), nil
}

// Write encodes cfg as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks the values the solver and builder cannot cope with.
// Geometry is checked by the same rules the solver applies.
func (c *Config) Validate() error {
	if err := c.LegGeometry().Validate(); err != nil {
		return legerr.Wrap(legerr.ErrCodeInvalidConfig, err, "geometry")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"body.torso_width", c.Body.TorsoWidth},
		{"body.torso_mass", c.Body.TorsoMass},
		{"body.torso_inertia", c.Body.TorsoInertia},
		{"body.link_mass", c.Body.LinkMass},
		{"body.motor_max_force", c.Body.MotorMaxForce},
		{"ground.thickness", c.Ground.Thickness},
		{"servo.gain", c.Servo.Gain},
		{"sim.timestep", c.Sim.Timestep},
	} {
		if err := legerr.ValidatePositive(f.name, f.v); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidConfig, err, "%s", f.name)
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"legs.hip_spacing", c.Legs.HipSpacing},
		{"servo.range_deg", c.Servo.RangeDeg},
		{"servo.interval", c.Servo.Interval},
		{"sim.duration", c.Sim.Duration},
		{"build.motor_max_force", c.Build.MotorMaxForce},
		{"cache.ttl", c.Cache.TTL},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return legerr.New(legerr.ErrCodeInvalidConfig, "%s must be finite and not negative, got %v", f.name, f.v)
		}
	}
	if c.Ground.FromX >= c.Ground.ToX {
		return legerr.New(legerr.ErrCodeInvalidConfig, "ground.from_x must be below ground.to_x")
	}
	if len(c.Legs.Names) == 0 {
		return legerr.New(legerr.ErrCodeInvalidConfig, "legs.names must not be empty")
	}
	switch c.Server.Store {
	case "file", "mongo":
	default:
		return legerr.New(legerr.ErrCodeInvalidConfig, "server.store must be file or mongo, got %q", c.Server.Store)
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return legerr.New(legerr.ErrCodeInvalidConfig, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	return nil
}

// LegGeometry returns the reference leg.
func (c *Config) LegGeometry() kinematics.LegGeometry {
	g := c.Geometry
	lower := toActuator(g.Lower)
	return kinematics.LegGeometry{
		Upper:      toActuator(g.Upper),
		Lower:      lower,
		Fixed:      lower.Pivot.Add(vec(g.FixedOffset)),
		Red:        g.Red,
		Blue:       g.Blue,
		JointRatio: g.JointRatio,
		Orange:     g.Orange,
		Attach:     g.Attach,
	}
}

// NewBody replicates the reference leg for every configured leg name.
func (c *Config) NewBody() (*kinematics.Body, error) {
	return kinematics.Replicate(c.LegGeometry(), c.Legs.HipSpacing, c.Legs.Names...)
}

// NewCompiler returns a spec compiler for body using the body and ground
// sections.
func (c *Config) NewCompiler(body *kinematics.Body) *geomspec.Compiler {
	comp := geomspec.NewCompiler(body, c.Legs.HipSpacing)
	comp.LinkDefaults.Mass = c.Body.LinkMass
	comp.Torso = geomspec.Torso{
		Size:      geomspec.Size{Width: c.Body.TorsoWidth, Height: c.Body.TopOffset + c.Body.BottomOffset},
		Mass:      c.Body.TorsoMass,
		InertiaZZ: c.Body.TorsoInertia,
		Friction:  c.Body.TorsoFriction,
	}
	comp.FixedOffsets.TopOffset = c.Body.TopOffset
	comp.FixedOffsets.BottomOffset = c.Body.BottomOffset
	comp.FixedOffsets.FrontOffset = c.Body.FrontOffset
	comp.Ground = geomspec.Ground{
		Segment:   [2]geomspec.Vec2{{c.Ground.FromX, c.Ground.Y}, {c.Ground.ToX, c.Ground.Y}},
		Thickness: c.Ground.Thickness,
		Friction:  c.Ground.Friction,
	}
	comp.MotorMaxForce = c.Body.MotorMaxForce
	return comp
}

// ServoConfig returns the controller settings.
func (c *Config) ServoConfig() servo.Config {
	return servo.Config{
		Gain:     c.Servo.Gain,
		Range:    kinematics.Radians(c.Servo.RangeDeg),
		Interval: seconds(c.Servo.Interval),
		Seed:     c.Sim.Seed,
	}
}

// BuildOptions returns builder options without servo or logger. Driven
// defaults to the upper motor of every leg.
func (c *Config) BuildOptions() mechanism.Options {
	driven := c.Servo.Driven
	if len(driven) == 0 {
		driven = mechanism.DrivenUpperMotors(c.Legs.Names...)
	}
	return mechanism.Options{
		Driven:        append([]string(nil), driven...),
		Tolerance:     c.Build.Tolerance,
		PivotMaxForce: c.Build.PivotMaxForce,
		LimitMaxForce: c.Build.LimitMaxForce,
		MotorMaxForce: c.Build.MotorMaxForce,
		RodRadius:     c.Build.RodRadius,
		RodFriction:   c.Build.RodFriction,
	}
}

// Base returns the world position of the reference upper pivot.
func (c *Config) Base() v2.Vec { return vec(c.Sim.Base) }

// Duration returns the simulated run time.
func (c *Config) Duration() time.Duration { return seconds(c.Sim.Duration) }

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration { return seconds(c.Cache.TTL) }

func fromActuator(a kinematics.Actuator) Actuator {
	return Actuator{
		Pivot:   pair(a.Pivot),
		Radius:  a.Radius,
		BaseDeg: a.BaseDeg,
		Sign:    a.Sign,
		MinDeg:  a.MinDeg,
		MaxDeg:  a.MaxDeg,
	}
}

func toActuator(a Actuator) kinematics.Actuator {
	return kinematics.Actuator{
		Pivot:   vec(a.Pivot),
		Radius:  a.Radius,
		BaseDeg: a.BaseDeg,
		Sign:    a.Sign,
		MinDeg:  a.MinDeg,
		MaxDeg:  a.MaxDeg,
	}
}

func pair(v v2.Vec) [2]float64 { return [2]float64{v.X, v.Y} }
func vec(p [2]float64) v2.Vec  { return v2.Vec{X: p[0], Y: p[1]} }
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
