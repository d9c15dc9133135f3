package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/lumina/internal/export"
	pkgconfig "github.com/starford/lumina/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	lim := cfg.Editor.Limits()
	if lim.MaxLayers != 20 || lim.HistoryLimit != 50 || lim.MaxCanvas != 4096 || lim.DragInterval != 16*time.Millisecond {
		t.Errorf("limits = %+v", lim)
	}
}

func TestEditorConfig_Invalid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Editor.MaxLayers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max_layers should fail validation")
	}
}

func TestExportConfig_UnknownFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Export.DefaultFormat = "gif"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown default format should fail validation")
	}
}

func TestLoadYAMLWithEnv(t *testing.T) {
	t.Setenv("LUMINA_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  http:
    port: 9090
assets:
  path: /tmp/assets
sqlite:
  path: /tmp/lumina.db
auth:
  mode: token
  token: ${LUMINA_TEST_TOKEN}
editor:
  max_layers: 30
  history_limit: 10
  max_canvas_size: 2048
  drag_interval: 32ms
export:
  default_format: png
  default_quality: 95
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Auth.Token != "s3cret" {
		t.Errorf("app/auth = %+v / %+v", cfg.App, cfg.Auth)
	}
	if cfg.Editor.MaxLayers != 30 || cfg.Editor.DragInterval != 32*time.Millisecond {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.Editor.MaxStrokes != 1000 {
		t.Errorf("max_strokes default lost: %d", cfg.Editor.MaxStrokes)
	}
	if d := cfg.Export.Defaults(); d.Format != export.FormatPNG || d.Quality != 95 {
		t.Errorf("export defaults = %+v", d)
	}
}
