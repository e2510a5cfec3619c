// Package config loads the YAML file shared by the relay, display and
// controller binaries.
package config

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/gesture"
	"github.com/cybre/backdrop-sync/internal/palette"
	"github.com/cybre/backdrop-sync/internal/scene"
	"github.com/cybre/backdrop-sync/internal/stage"
	"github.com/cybre/backdrop-sync/internal/tween"
)

var ErrInvalid = eris.New("invalid configuration")

// Duration reads Go duration strings such as "1100ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return eris.Wrapf(err, "line %d: duration %q", value.Line, value.Value)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type GestureConfig struct {
	WheelScale  float64 `yaml:"wheel_scale"`
	TouchScale  float64 `yaml:"touch_scale"`
	Friction    float64 `yaml:"friction"`
	MinVelocity float64 `yaml:"min_velocity"`
}

type StageConfig struct {
	Initial           string   `yaml:"initial"`
	HoldEpsilon       float64  `yaml:"hold_epsilon"`
	HoldStages        []string `yaml:"hold_stages"`
	SettleDelay       Duration `yaml:"settle_delay"`
	RandomizeDuration Duration `yaml:"randomize_duration"`
	FinalizeDuration  Duration `yaml:"finalize_duration"`
}

// PaletteConfig overrides the startup/default palette. Empty stops keep
// the built-in one.
type PaletteConfig struct {
	Stops     []string `yaml:"stops,omitempty"`
	Accent    string   `yaml:"accent,omitempty"`
	BandStart float64  `yaml:"band_start,omitempty"`
	BandEnd   float64  `yaml:"band_end,omitempty"`
}

type SceneConfig struct {
	FPS             int              `yaml:"fps"`
	OverlayCount    int              `yaml:"overlay_count"`
	OpacityDuration Duration         `yaml:"opacity_duration"`
	CameraDuration  Duration         `yaml:"camera_duration"`
	FlashDuration   Duration         `yaml:"flash_duration"`
	Easing          string           `yaml:"easing"`
	Waypoints       []scene.Waypoint `yaml:"waypoints,omitempty"`
}

type BusConfig struct {
	URL            string   `yaml:"url"`
	ReconnectDelay Duration `yaml:"reconnect_delay"`
	SendBuffer     int      `yaml:"send_buffer"`
}

type RelayConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Gesture GestureConfig `yaml:"gesture"`
	Stage   StageConfig   `yaml:"stage"`
	Palette PaletteConfig `yaml:"palette"`
	Scene   SceneConfig   `yaml:"scene"`
	Bus     BusConfig     `yaml:"bus"`
	Relay   RelayConfig   `yaml:"relay"`
}

// Default mirrors the tuning the packages fall back to on their own.
func Default() *Config {
	g := gesture.DefaultOptions()
	st := stage.DefaultConfig()
	sc := scene.DefaultOptions()

	holdStages := make([]string, len(st.HoldStages))
	for i, s := range st.HoldStages {
		holdStages[i] = s.String()
	}

	return &Config{
		Gesture: GestureConfig{
			WheelScale:  g.WheelScale,
			TouchScale:  g.TouchScale,
			Friction:    g.Friction,
			MinVelocity: g.MinVelocity,
		},
		Stage: StageConfig{
			Initial:           st.Initial.String(),
			HoldEpsilon:       st.HoldEpsilon,
			HoldStages:        holdStages,
			SettleDelay:       Duration(sc.SettleDelay),
			RandomizeDuration: Duration(st.RandomizeDuration),
			FinalizeDuration:  Duration(st.FinalizeDuration),
		},
		Scene: SceneConfig{
			FPS:             60,
			OverlayCount:    sc.OverlayCount,
			OpacityDuration: Duration(sc.OpacityDuration),
			CameraDuration:  Duration(sc.CameraDuration),
			FlashDuration:   Duration(sc.FlashDuration),
			Easing:          "easeInOut",
		},
		Bus: BusConfig{
			URL:            "ws://127.0.0.1:8787/ws",
			ReconnectDelay: Duration(2 * time.Second),
			SendBuffer:     64,
		},
		Relay: RelayConfig{
			Addr: ":8787",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, eris.Wrapf(err, "parse config %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c as YAML.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "write config %s", path)
	}
	return nil
}

// Validate checks ranges and that every name resolves.
func (c *Config) Validate() error {
	switch {
	case c.Gesture.WheelScale <= 0 || c.Gesture.TouchScale <= 0:
		return eris.Wrap(ErrInvalid, "gesture scales must be positive")
	case c.Gesture.Friction <= 0 || c.Gesture.Friction >= 1:
		return eris.Wrapf(ErrInvalid, "gesture friction %v must be in (0, 1)", c.Gesture.Friction)
	case c.Gesture.MinVelocity <= 0:
		return eris.Wrap(ErrInvalid, "gesture min_velocity must be positive")
	case c.Stage.HoldEpsilon <= 0:
		return eris.Wrap(ErrInvalid, "stage hold_epsilon must be positive")
	case c.Scene.FPS <= 0 || c.Scene.FPS > 240:
		return eris.Wrapf(ErrInvalid, "scene fps %d out of range", c.Scene.FPS)
	case c.Scene.OverlayCount <= 0:
		return eris.Wrap(ErrInvalid, "scene overlay_count must be positive")
	case c.Bus.SendBuffer <= 0:
		return eris.Wrap(ErrInvalid, "bus send_buffer must be positive")
	}

	if _, err := stage.Parse(c.Stage.Initial); err != nil {
		return eris.Wrap(err, "stage initial")
	}
	for _, name := range c.Stage.HoldStages {
		if _, err := stage.Parse(name); err != nil {
			return eris.Wrap(err, "stage hold_stages")
		}
	}
	if _, err := c.DefaultPalette(); err != nil {
		return err
	}
	return nil
}

// GestureOptions converts the gesture section.
func (c *Config) GestureOptions() gesture.Options {
	return gesture.Options{
		WheelScale:  c.Gesture.WheelScale,
		TouchScale:  c.Gesture.TouchScale,
		Friction:    c.Gesture.Friction,
		MinVelocity: c.Gesture.MinVelocity,
	}
}

// DefaultPalette returns the configured palette, or nil for the built-in one.
func (c *Config) DefaultPalette() (*palette.Palette, error) {
	if len(c.Palette.Stops) == 0 {
		return nil, nil
	}
	p, err := palette.FromHex(c.Palette.Stops, c.Palette.Accent, c.Palette.BandStart, c.Palette.BandEnd)
	if err != nil {
		return nil, eris.Wrap(err, "palette")
	}
	return &p, nil
}

// StageConfig converts the stage and palette sections.
func (c *Config) StageConfig() (stage.Config, error) {
	initial, err := stage.Parse(c.Stage.Initial)
	if err != nil {
		return stage.Config{}, eris.Wrap(err, "stage initial")
	}
	holds := make([]stage.Stage, 0, len(c.Stage.HoldStages))
	for _, name := range c.Stage.HoldStages {
		s, err := stage.Parse(name)
		if err != nil {
			return stage.Config{}, eris.Wrap(err, "stage hold_stages")
		}
		holds = append(holds, s)
	}
	def, err := c.DefaultPalette()
	if err != nil {
		return stage.Config{}, err
	}
	return stage.Config{
		Initial:           initial,
		HoldEpsilon:       c.Stage.HoldEpsilon,
		HoldStages:        holds,
		RandomizeDuration: c.Stage.RandomizeDuration.Std(),
		FinalizeDuration:  c.Stage.FinalizeDuration.Std(),
		Default:           def,
	}, nil
}

// SceneOptions assembles everything a display scene needs.
func (c *Config) SceneOptions() (scene.Options, error) {
	st, err := c.StageConfig()
	if err != nil {
		return scene.Options{}, err
	}
	return scene.Options{
		Gesture:         c.GestureOptions(),
		Stage:           st,
		SettleDelay:     c.Stage.SettleDelay.Std(),
		OverlayCount:    c.Scene.OverlayCount,
		OpacityDuration: c.Scene.OpacityDuration.Std(),
		CameraDuration:  c.Scene.CameraDuration.Std(),
		FlashDuration:   c.Scene.FlashDuration.Std(),
		Easing:          tween.ByName(c.Scene.Easing),
		Waypoints:       c.Scene.Waypoints,
	}, nil
}

// ClientOptions builds bus client options for role.
func (c *Config) ClientOptions(role bus.Role) bus.ClientOptions {
	return bus.ClientOptions{
		URL:            c.Bus.URL,
		Role:           role,
		ReconnectDelay: c.Bus.ReconnectDelay.Std(),
	}
}

// HubOptions builds relay options.
func (c *Config) HubOptions() bus.HubOptions {
	return bus.HubOptions{SendBuffer: c.Bus.SendBuffer}
}
