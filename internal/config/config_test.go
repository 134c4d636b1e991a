package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Compression != "deflate" {
		t.Errorf("Compression = %q, expected %q", cfg.Compression, "deflate")
	}
	if cfg.OutputDir != "." {
		t.Errorf("OutputDir = %q, expected %q", cfg.OutputDir, ".")
	}
	if cfg.PasswordLength != 16 {
		t.Errorf("PasswordLength = %d, expected 16", cfg.PasswordLength)
	}

	// Default exclusions should cover common junk files
	expectedExclusions := []string{".DS_Store", "Thumbs.db", "*.tmp"}
	for _, pattern := range expectedExclusions {
		found := false
		for _, exc := range cfg.Exclude {
			if exc == pattern {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected exclusion %q not found in defaults", pattern)
		}
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if path == "" {
		t.Fatal("ConfigPath returned empty string")
	}
	if !strings.Contains(path, ".zipman") {
		t.Errorf("ConfigPath should contain .zipman, got %s", path)
	}
	if !strings.HasSuffix(path, "config.yaml") {
		t.Errorf("ConfigPath should end with config.yaml, got %s", path)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	// Missing file falls back to defaults
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed for missing config: %v", err)
	}
	if cfg.Compression != "deflate" {
		t.Errorf("Expected default compression, got %q", cfg.Compression)
	}
}

func TestLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configDir := filepath.Join(tempDir, ".zipman")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `
compression: bzip2
output_dir: /custom/output
password_length: 24
exclude:
  - "*.log"
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Compression != "bzip2" {
		t.Errorf("Compression = %q, expected %q", cfg.Compression, "bzip2")
	}
	if cfg.OutputDir != "/custom/output" {
		t.Errorf("OutputDir = %q, expected %q", cfg.OutputDir, "/custom/output")
	}
	if cfg.PasswordLength != 24 {
		t.Errorf("PasswordLength = %d, expected 24", cfg.PasswordLength)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "*.log" {
		t.Errorf("Exclude = %v, expected [*.log]", cfg.Exclude)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configDir := filepath.Join(tempDir, ".zipman")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("compression: lzma"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Overridden field
	if cfg.Compression != "lzma" {
		t.Errorf("Compression = %q, expected %q", cfg.Compression, "lzma")
	}
	// Other fields keep defaults
	if cfg.PasswordLength != 16 {
		t.Errorf("PasswordLength = %d, expected default 16", cfg.PasswordLength)
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configDir := filepath.Join(tempDir, ".zipman")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("this: is: not: valid: yaml: [[["), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load should fail for malformed YAML")
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	cfg := &Config{
		Compression:    "store",
		OutputDir:      "/my/output",
		PasswordLength: 8,
		Exclude:        []string{"test_exclude"},
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	configPath := filepath.Join(tempDir, ".zipman", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.Compression != cfg.Compression {
		t.Error("Compression mismatch after save/load")
	}
	if loaded.OutputDir != cfg.OutputDir {
		t.Error("OutputDir mismatch after save/load")
	}
	if loaded.PasswordLength != cfg.PasswordLength {
		t.Error("PasswordLength mismatch after save/load")
	}
}

func TestSaveMkdirAllError(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	// A file where the config directory should be makes MkdirAll fail
	if err := os.WriteFile(filepath.Join(tempDir, ".zipman"), []byte("not a directory"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := DefaultConfig().Save(); err == nil {
		t.Error("Save should fail when the config dir cannot be created")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home dir, skipping test")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/archives", filepath.Join(home, "archives")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ExpandPath(tt.input); result != tt.expected {
				t.Errorf("ExpandPath(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}
