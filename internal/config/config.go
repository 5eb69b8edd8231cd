// Package config loads server settings from an optional config file and
// environment overrides, with working defaults for every key.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Role       sim.Role `mapstructure:"role"`
	ListenAddr string   `mapstructure:"listenAddr"`
	ServerURL  string   `mapstructure:"serverUrl"`
	LogLevel   string   `mapstructure:"logLevel"`

	TickRate        int `mapstructure:"tickRate"`
	CatchupMaxTicks int `mapstructure:"catchupMaxTicks"`
	CommandCapacity int `mapstructure:"commandCapacity"`
	PerActorLimit   int `mapstructure:"perActorLimit"`

	KeyframeIntervalTicks int           `mapstructure:"keyframeIntervalTicks"`
	HeartbeatInterval     time.Duration `mapstructure:"heartbeatInterval"`
	HeartbeatTimeout      time.Duration `mapstructure:"heartbeatTimeout"`

	Tuning  TuningConfig   `mapstructure:"tuning"`
	Doodads []DoodadConfig `mapstructure:"doodads"`
}

// DoodadConfig describes one static scenery body placed at startup.
type DoodadConfig struct {
	ID     string  `mapstructure:"id"`
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Z      float64 `mapstructure:"z"`
	Yaw    float64 `mapstructure:"yaw"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
	Depth  float64 `mapstructure:"depth"`
}

// Snapshot converts the config entry into the replicated doodad record.
// Unset dimensions default to a unit cube.
func (d DoodadConfig) Snapshot() sim.DoodadSnapshot {
	size := vec.Vec3{X: d.Width, Y: d.Height, Z: d.Depth}
	if size.X <= 0 {
		size.X = 1
	}
	if size.Y <= 0 {
		size.Y = 1
	}
	if size.Z <= 0 {
		size.Z = 1
	}
	return sim.DoodadSnapshot{
		ID:       d.ID,
		Position: vec.Vec3{X: d.X, Y: d.Y, Z: d.Z},
		Yaw:      d.Yaw,
		Size:     size,
	}
}

// TuningConfig carries the movement tuning overrides exposed to operators.
type TuningConfig struct {
	Acceleration  float64 `mapstructure:"acceleration"`
	JumpImpulse   float64 `mapstructure:"jumpImpulse"`
	MaxSlopeAngle float64 `mapstructure:"maxSlopeAngleDegrees"`
	YawGain       float64 `mapstructure:"yawGain"`
}

// SimTuning folds the configured overrides into the built-in tuning.
func (c Config) SimTuning() sim.Tuning {
	tuning := sim.DefaultTuning()
	if c.Tuning.Acceleration > 0 {
		tuning.Acceleration = c.Tuning.Acceleration
	}
	if c.Tuning.JumpImpulse > 0 {
		tuning.JumpImpulse = c.Tuning.JumpImpulse
	}
	if c.Tuning.MaxSlopeAngle > 0 {
		tuning.MaxSlopeAngle = c.Tuning.MaxSlopeAngle * math.Pi / 180
	}
	if c.Tuning.YawGain > 0 {
		tuning.YawGain = c.Tuning.YawGain
	}
	return tuning
}

// Load reads configuration from the named file when path is non-empty,
// otherwise from movement.cfg.yaml in the working directory if present.
// MERLO_* environment variables override file values either way.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("merlo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("movement.cfg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if !c.Role.Valid() {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tickRate must be positive, got %d", c.TickRate)
	}
	if c.CommandCapacity <= 0 {
		return fmt.Errorf("commandCapacity must be positive, got %d", c.CommandCapacity)
	}
	if c.KeyframeIntervalTicks <= 0 {
		return fmt.Errorf("keyframeIntervalTicks must be positive, got %d", c.KeyframeIntervalTicks)
	}
	if c.Role == sim.RoleClient && c.ServerURL == "" {
		return fmt.Errorf("client role requires serverUrl")
	}
	for i, d := range c.Doodads {
		if d.ID == "" {
			return fmt.Errorf("doodads[%d] requires an id", i)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("role", string(sim.RoleServer))
	v.SetDefault("listenAddr", ":8080")
	v.SetDefault("serverUrl", "")
	v.SetDefault("logLevel", "info")

	v.SetDefault("tickRate", 60)
	v.SetDefault("catchupMaxTicks", 4)
	v.SetDefault("commandCapacity", 1024)
	v.SetDefault("perActorLimit", 32)

	v.SetDefault("keyframeIntervalTicks", 120)
	v.SetDefault("heartbeatInterval", "2s")
	v.SetDefault("heartbeatTimeout", "10s")

	v.SetDefault("tuning.acceleration", 0)
	v.SetDefault("tuning.jumpImpulse", 0)
	v.SetDefault("tuning.maxSlopeAngleDegrees", 0)
	v.SetDefault("tuning.yawGain", 0)
}
