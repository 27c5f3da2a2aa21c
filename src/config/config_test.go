package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("GEMINI_API_KEY", "test_api_key")
	os.Setenv("MODEL", "test_model")
	os.Setenv("ENABLE_FILE_LOGGING", "true")
	os.Setenv("HOTKEY", "Ctrl+Shift+T")
	os.Setenv("DISPLAY_MODE", "preview")

	defer func() {
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("MODEL")
		os.Unsetenv("ENABLE_FILE_LOGGING")
		os.Unsetenv("HOTKEY")
		os.Unsetenv("DISPLAY_MODE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.Model != "test_model" {
		t.Errorf("Expected Model to be 'test_model', got '%s'", cfg.Model)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkey)
	}
	if cfg.DisplayMode != DisplayModePreview {
		t.Errorf("Expected DisplayMode to be preview, got '%s'", cfg.DisplayMode)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "MODEL", "HOTKEY", "DISPLAY_MODE", "SETTLE_DELAY_MS", "OVERLAY_DISMISS_SEC", "WINDOW_TITLE_MARKERS"} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Model != DefaultModel {
		t.Errorf("Expected default model %q, got %q", DefaultModel, cfg.Model)
	}
	if cfg.DisplayMode != DisplayModeToken {
		t.Errorf("Expected default display mode token, got %q", cfg.DisplayMode)
	}
	if cfg.SettleDelayMs != 500 {
		t.Errorf("Expected default settle delay 500ms, got %d", cfg.SettleDelayMs)
	}
	if cfg.OverlayDismissSec != 6 {
		t.Errorf("Expected default overlay dismiss 6s, got %d", cfg.OverlayDismissSec)
	}
	if len(cfg.WindowTitleMarkers) == 0 {
		t.Error("Expected default window title markers, got none")
	}
}

func TestSettleDelayZeroDisables(t *testing.T) {
	os.Setenv("SETTLE_DELAY_MS", "0")
	defer os.Unsetenv("SETTLE_DELAY_MS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.SettleDelayMs != 0 {
		t.Errorf("Expected settle delay 0 (disabled), got %d", cfg.SettleDelayMs)
	}
}

func TestAPIKeyFromFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "gemini.key")
	if err := os.WriteFile(keyPath, []byte("  file_key\n"), 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}

	os.Unsetenv("GEMINI_API_KEY")
	cfg, err := LoadWithOptions(LoadOptions{APIKeyPathOverride: keyPath})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "file_key" {
		t.Errorf("Expected trimmed key from file, got %q", cfg.APIKey)
	}
	if cfg.APIKeyPath != keyPath {
		t.Errorf("Expected APIKeyPath %q, got %q", keyPath, cfg.APIKeyPath)
	}
}

func TestParseTitleMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "Empty uses defaults", in: "", want: []string{"localhost:", "Screen MCQ"}},
		{name: "Splits and trims", in: "localhost:5173, app://main ,", want: []string{"localhost:5173", "app://main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTitleMarkers(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d markers, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("marker[%d] = %q, expected %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveDisplayMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"token", DisplayModeToken},
		{"preview", DisplayModePreview},
		{"full", DisplayModePreview},
		{"PREVIEW", DisplayModePreview},
		{"bogus", DisplayModeToken},
		{"", DisplayModeToken},
	}

	for _, tt := range tests {
		if got := resolveDisplayMode(tt.in); got != tt.want {
			t.Errorf("resolveDisplayMode(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}
