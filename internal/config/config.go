// Package config loads airmouse settings from a YAML file, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ayusman/airmouse/internal/dispatch"
	"github.com/ayusman/airmouse/internal/gesture"
	"github.com/ayusman/airmouse/internal/pointer"
	"github.com/ayusman/airmouse/internal/session"
)

// EnvPrefix prefixes every environment override, e.g. AIRMOUSE_ADDR.
const EnvPrefix = "AIRMOUSE"

// Tunables are the pipeline parameters that can be changed at runtime.
// Mirrored reverses the thumb test to tip.x < ip.x; MirrorOutput flips the
// pointer x on output and only applies to frames not mirrored at capture.
type Tunables struct {
	Inset              float64 `mapstructure:"inset" json:"inset"`
	Smoothing          float64 `mapstructure:"smoothing" json:"smoothing"`
	ClickDistance      float64 `mapstructure:"click_distance" json:"click_distance"`
	ZoomDelta          float64 `mapstructure:"zoom_delta" json:"zoom_delta"`
	Cooldown           int     `mapstructure:"cooldown" json:"cooldown"`
	ZoomScroll         int     `mapstructure:"zoom_scroll" json:"zoom_scroll"`
	Mirrored           bool    `mapstructure:"mirrored" json:"mirrored"`
	MirrorOutput       bool    `mapstructure:"mirror_output" json:"mirror_output"`
	SuppressZoomRepeat bool    `mapstructure:"suppress_zoom_repeat" json:"suppress_zoom_repeat"`
	SpanAnchor         string  `mapstructure:"span_anchor" json:"span_anchor"`
	BaselineLabel      string  `mapstructure:"baseline_label" json:"baseline_label"`
	ClearSpanOnLoss    bool    `mapstructure:"clear_span_on_loss" json:"clear_span_on_loss"`
	MoveOnNone         bool    `mapstructure:"move_on_none" json:"move_on_none"`
}

// DefaultTunables returns the stock pipeline parameters.
func DefaultTunables() Tunables {
	return Tunables{
		Inset:         pointer.DefaultInset,
		Smoothing:     pointer.DefaultSmoothing,
		ClickDistance: gesture.DefaultClickDistance,
		ZoomDelta:     gesture.DefaultZoomDelta,
		Cooldown:      dispatch.DefaultCooldown,
		ZoomScroll:    dispatch.DefaultZoomScroll,
		SpanAnchor:    string(gesture.AnchorFired),
		BaselineLabel: string(gesture.LabelNone),
		MoveOnNone:    true,
	}
}

// Validate reports the first out-of-range tunable.
func (t Tunables) Validate() error {
	switch {
	case t.Inset < 0:
		return fmt.Errorf("inset must be non-negative, got %v", t.Inset)
	case t.Smoothing < 1:
		return fmt.Errorf("smoothing must be at least 1, got %v", t.Smoothing)
	case t.ClickDistance <= 0:
		return fmt.Errorf("click_distance must be positive, got %v", t.ClickDistance)
	case t.ZoomDelta <= 0:
		return fmt.Errorf("zoom_delta must be positive, got %v", t.ZoomDelta)
	case t.Cooldown < 1:
		return fmt.Errorf("cooldown must be at least 1, got %d", t.Cooldown)
	case t.ZoomScroll <= 0:
		return fmt.Errorf("zoom_scroll must be positive, got %d", t.ZoomScroll)
	}

	switch gesture.SpanAnchor(t.SpanAnchor) {
	case gesture.AnchorFired, gesture.AnchorObserved:
	default:
		return fmt.Errorf("span_anchor must be %q or %q, got %q", gesture.AnchorFired, gesture.AnchorObserved, t.SpanAnchor)
	}

	switch gesture.Label(t.BaselineLabel) {
	case gesture.LabelNone, gesture.LabelMove:
	default:
		return fmt.Errorf("baseline_label must be %q or %q, got %q", gesture.LabelNone, gesture.LabelMove, t.BaselineLabel)
	}

	return nil
}

// ForFrames returns t adjusted to the frame source. Frames mirrored at
// capture already carry the one horizontal flip, so output mirroring is
// turned off for them.
func (t Tunables) ForFrames(framesMirrored bool) Tunables {
	if framesMirrored {
		t.MirrorOutput = false
	}
	return t
}

// Session builds the per-session pipeline configuration for a screen.
func (t Tunables) Session(screenW, screenH int) session.Config {
	cfg := session.DefaultConfig(screenW, screenH)
	cfg.Classifier = gesture.Config{
		ClickDistance: t.ClickDistance,
		ZoomDelta:     t.ZoomDelta,
		Mirrored:      t.Mirrored,
		SpanAnchor:    gesture.SpanAnchor(t.SpanAnchor),
		BaselineLabel: gesture.Label(t.BaselineLabel),
	}
	cfg.Pointer.Inset = t.Inset
	cfg.Pointer.Smoothing = t.Smoothing
	cfg.Pointer.MirrorOutput = t.MirrorOutput
	cfg.Dispatch = dispatch.Config{
		Cooldown:           t.Cooldown,
		SuppressZoomRepeat: t.SuppressZoomRepeat,
		ZoomScroll:         t.ZoomScroll,
	}
	cfg.ClearSpanOnLoss = t.ClearSpanOnLoss
	cfg.MoveOnNone = t.MoveOnNone
	return cfg
}

// CameraConfig selects and shapes the local video source.
type CameraConfig struct {
	ID int `mapstructure:"id"`
	// Source overrides ID with a device path, file or stream URL.
	Source string `mapstructure:"source"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	FPS    int    `mapstructure:"fps"`
	// MirrorFrames flips every frame horizontally before detection.
	MirrorFrames bool `mapstructure:"mirror_frames"`
}

// DetectorConfig tunes the landmark model.
type DetectorConfig struct {
	ScriptPath    string  `mapstructure:"script_path"`
	MaxHands      int     `mapstructure:"max_hands"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	// Mock skips MediaPipe and uses the scripted detector.
	Mock bool `mapstructure:"mock"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the full application configuration.
type Config struct {
	Addr   string `mapstructure:"addr"`
	DBPath string `mapstructure:"db_path"`
	// Local runs the camera loop in-process; the HTTP /frame path works either way.
	Local bool `mapstructure:"local"`
	// PerformMouse starts with pointer control enabled.
	PerformMouse bool          `mapstructure:"perform_mouse"`
	Tray         bool          `mapstructure:"tray"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	// FrameSuppressZoomRepeat applies to sessions fed through POST /frame.
	FrameSuppressZoomRepeat bool `mapstructure:"frame_suppress_zoom_repeat"`

	Camera   CameraConfig   `mapstructure:"camera"`
	Detector DetectorConfig `mapstructure:"detector"`
	Log      LogConfig      `mapstructure:"log"`
	Tunables Tunables       `mapstructure:"tunables"`
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands)
	}
	if err := c.Tunables.Validate(); err != nil {
		return fmt.Errorf("tunables: %w", err)
	}
	return nil
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	t := DefaultTunables()

	v.SetDefault("addr", ":5000")
	v.SetDefault("db_path", filepath.Join(home, ".airmouse", "airmouse.db"))
	v.SetDefault("local", true)
	v.SetDefault("perform_mouse", true)
	v.SetDefault("tray", false)
	v.SetDefault("session_ttl", 5*time.Minute)
	v.SetDefault("frame_suppress_zoom_repeat", true)

	v.SetDefault("camera.id", 0)
	v.SetDefault("camera.source", "")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.mirror_frames", true)

	v.SetDefault("detector.script_path", "")
	v.SetDefault("detector.max_hands", 1)
	v.SetDefault("detector.min_confidence", 0.5)
	v.SetDefault("detector.mock", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("tunables.inset", t.Inset)
	v.SetDefault("tunables.smoothing", t.Smoothing)
	v.SetDefault("tunables.click_distance", t.ClickDistance)
	v.SetDefault("tunables.zoom_delta", t.ZoomDelta)
	v.SetDefault("tunables.cooldown", t.Cooldown)
	v.SetDefault("tunables.zoom_scroll", t.ZoomScroll)
	v.SetDefault("tunables.mirrored", t.Mirrored)
	v.SetDefault("tunables.mirror_output", t.MirrorOutput)
	v.SetDefault("tunables.suppress_zoom_repeat", t.SuppressZoomRepeat)
	v.SetDefault("tunables.span_anchor", t.SpanAnchor)
	v.SetDefault("tunables.baseline_label", t.BaselineLabel)
	v.SetDefault("tunables.clear_span_on_loss", t.ClearSpanOnLoss)
	v.SetDefault("tunables.move_on_none", t.MoveOnNone)
}

// Load reads configuration. configFile may be empty to search the default
// locations; a missing config file is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("airmouse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".airmouse"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing launch scripts.
	_ = v.BindEnv("camera.source", EnvPrefix+"_CAMERA_SOURCE", "VIDEO_SOURCE")
	_ = v.BindEnv("perform_mouse", EnvPrefix+"_PERFORM_MOUSE", "PERFORM_MOUSE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
