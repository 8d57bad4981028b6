package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/sandily/bidskit/internal/config"
)

func TestLoadDefaultConfigDerivesSiblingDirectories(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	root := filepath.Dir(cfg.Paths.SourceDir)
	if cfg.Paths.WorkDir != filepath.Join(root, "work", "conversion") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Paths.DerivativesDir != filepath.Join(root, "derivatives", "conversion") {
		t.Fatalf("unexpected derivatives dir: %q", cfg.Paths.DerivativesDir)
	}
	if cfg.Ledger.Path != filepath.Join(cfg.Paths.DerivativesDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "bidskit", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if !cfg.Conversion.Sessions {
		t.Fatal("expected sessions enabled by default")
	}
	if cfg.Conversion.Overwrite || cfg.Conversion.CleanupWork {
		t.Fatal("expected overwrite and cleanup disabled by default")
	}
	if cfg.MappingPath() != filepath.Join(cfg.Paths.DerivativesDir, "Protocol_Translator.json") {
		t.Fatalf("unexpected mapping path: %q", cfg.MappingPath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"dicom_dir":       "~/study/dicom",
			"source_dir":      "~/study/source",
			"derivatives_dir": filepath.Join(base, "derived"),
		},
		"conversion": map[string]any{
			"sessions":  false,
			"overwrite": true,
		},
		"logging": map[string]any{
			"format": "json",
			"level":  "debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DicomDir != filepath.Join(tempHome, "study", "dicom") {
		t.Fatalf("unexpected dicom dir: %q", cfg.Paths.DicomDir)
	}
	if cfg.Paths.DerivativesDir != filepath.Join(base, "derived") {
		t.Fatalf("explicit derivatives dir not kept: %q", cfg.Paths.DerivativesDir)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "study", "work", "conversion") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Conversion.Sessions || !cfg.Conversion.Overwrite {
		t.Fatalf("conversion flags not applied: %+v", cfg.Conversion)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not applied: %+v", cfg.Logging)
	}
}

func TestApplyOverridesMovesDerivedDirectories(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	root := t.TempDir()
	noSessions := false
	if err := cfg.Apply(config.Overrides{
		DicomDir:  filepath.Join(root, "raw"),
		SourceDir: filepath.Join(root, "source"),
		Sessions:  &noSessions,
	}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if cfg.Paths.WorkDir != filepath.Join(root, "work", "conversion") {
		t.Fatalf("work dir did not follow source override: %q", cfg.Paths.WorkDir)
	}
	if cfg.Paths.DerivativesDir != filepath.Join(root, "derivatives", "conversion") {
		t.Fatalf("derivatives dir did not follow source override: %q", cfg.Paths.DerivativesDir)
	}
	if cfg.Conversion.Sessions {
		t.Fatal("expected sessions override to apply")
	}
	if cfg.LockPath() != filepath.Join(root, "derivatives", "conversion", "bidskit.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("BIDSKIT_DCM2NIIX", "/opt/mricrogl/dcm2niix")
	t.Setenv("BIDSKIT_LOG_LEVEL", "WARN")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ConverterBinary() != "/opt/mricrogl/dcm2niix" {
		t.Fatalf("unexpected converter binary: %q", cfg.ConverterBinary())
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsSharedSourceAndDicomDirs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DicomDir = "/data/study"
	cfg.Paths.SourceDir = "/data/study"
	cfg.Logging.Level = "info"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DicomDir = "/data/dicom"
	cfg.Paths.SourceDir = "/data/source"
	cfg.Logging.Level = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for log level")
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Dataset.BIDSVersion != "1.0.0" {
		t.Fatalf("unexpected bids version: %q", cfg.Dataset.BIDSVersion)
	}
}

func TestEnsureDirectoriesCreatesOutputTree(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(root, "source")
	cfg.Paths.WorkDir = filepath.Join(root, "work", "conversion")
	cfg.Paths.DerivativesDir = filepath.Join(root, "derivatives", "conversion")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.SourceDir, cfg.Paths.WorkDir, cfg.Paths.DerivativesDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
