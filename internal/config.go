package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lumina/internal/editor"
	"github.com/starford/lumina/internal/export"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Assets AssetsConfig      `yaml:"assets"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Editor EditorConfig      `yaml:"editor"`
	Export ExportConfig      `yaml:"export"`
	Fonts  FontsConfig       `yaml:"fonts"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Assets, &c.SQLite, &c.Auth, &c.Editor, &c.Export} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AssetsConfig holds the directory for source images and exports.
type AssetsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the assets configuration.
func (c *AssetsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig bounds each editor session.
type EditorConfig struct {
	MaxLayers     int           `yaml:"max_layers"`
	HistoryLimit  int           `yaml:"history_limit"`
	Premium       bool          `yaml:"premium"`
	MaxCanvasSize float64       `yaml:"max_canvas_size"`
	MaxStrokes    int           `yaml:"max_strokes"`
	DragInterval  time.Duration `yaml:"drag_interval"`
	// ChangeThrottle bounds editor.changed events per session.
	ChangeThrottle time.Duration `yaml:"change_throttle"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxLayers, validation.Required, validation.Min(1)),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxCanvasSize, validation.Required, validation.Min(1.0)),
		validation.Field(&c.MaxStrokes, validation.Min(0)),
		validation.Field(&c.DragInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.ChangeThrottle, validation.Min(time.Duration(0))),
	)
}

// Limits converts the section into per-session limits.
func (c *EditorConfig) Limits() editor.Limits {
	return editor.Limits{
		MaxLayers:    c.MaxLayers,
		MaxStrokes:   c.MaxStrokes,
		HistoryLimit: c.HistoryLimit,
		Premium:      c.Premium,
		MaxCanvas:    c.MaxCanvasSize,
		DragInterval: c.DragInterval,
	}
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	DefaultFormat  string `yaml:"default_format"`
	DefaultQuality int    `yaml:"default_quality"`
	TempDir        string `yaml:"temp_dir"`
	MaxSize        int    `yaml:"max_size"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultFormat, validation.Required, validation.In(
			string(export.FormatJPG), string(export.FormatPNG), string(export.FormatHEIC),
			string(export.FormatTIFF), string(export.FormatBMP))),
		validation.Field(&c.DefaultQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.MaxSize, validation.Min(0)),
	)
}

// Defaults returns the options used when a request leaves them empty.
func (c *ExportConfig) Defaults() export.Options {
	return export.Options{Format: export.Format(c.DefaultFormat), Quality: c.DefaultQuality}
}

// FontsConfig points at optional font files. The bundled Go fonts are always
// available.
type FontsConfig struct {
	EmojiPath string `yaml:"emoji_path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	lim := editor.DefaultLimits()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Assets: AssetsConfig{
			Path: "./assets",
		},
		SQLite: SQLiteConfig{
			Path: "./lumina.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			MaxLayers:      lim.MaxLayers,
			HistoryLimit:   lim.HistoryLimit,
			MaxCanvasSize:  lim.MaxCanvas,
			MaxStrokes:     lim.MaxStrokes,
			DragInterval:   lim.DragInterval,
			ChangeThrottle: 100 * time.Millisecond,
		},
		Export: ExportConfig{
			DefaultFormat:  string(export.FormatJPG),
			DefaultQuality: 85,
		},
	}
}
