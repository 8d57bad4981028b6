package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// MappingFilename is the protocol translator stored in the derivatives directory.
const MappingFilename = "Protocol_Translator.json"

// Paths contains the dataset directory layout.
type Paths struct {
	DicomDir       string `toml:"dicom_dir"`
	SourceDir      string `toml:"source_dir"`
	WorkDir        string `toml:"work_dir"`
	DerivativesDir string `toml:"derivatives_dir"`
	LogDir         string `toml:"log_dir"`
}

// Conversion contains settings for the converter invocation and the reorganization policy.
type Conversion struct {
	Sessions         bool   `toml:"sessions"`
	Overwrite        bool   `toml:"overwrite"`
	CleanupWork      bool   `toml:"cleanup_work"`
	ConverterBinary  string `toml:"converter_binary"`
	ConverterTimeout int    `toml:"converter_timeout"`
	Compress         bool   `toml:"compress"`
}

// Dataset holds the values written to dataset_description.json.
type Dataset struct {
	BIDSVersion string `toml:"bids_version"`
	License     string `toml:"license"`
	Name        string `toml:"name"`
	References  string `toml:"references"`
}

// Ledger contains configuration for the SQLite placement history.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for bidskit.
//
// Configuration sections by subsystem:
//   - Paths: raw DICOM input, BIDS source output, working and derivatives dirs
//   - Conversion: session layout, overwrite policy, converter binary
//   - Dataset: dataset_description.json placeholders
//   - Ledger: SQLite history of placements
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Conversion Conversion `toml:"conversion"`
	Dataset    Dataset    `toml:"dataset"`
	Ledger     Ledger     `toml:"ledger"`
	Logging    Logging    `toml:"logging"`

	// Directories left blank in the file are derived from SourceDir and follow it
	// when a CLI override moves the source directory.
	derivedWorkDir     bool
	derivedDerivatives bool
	derivedLedger      bool
}

// Overrides carries command-line values that take precedence over the file.
// Nil/empty fields leave the loaded value untouched.
type Overrides struct {
	DicomDir    string
	SourceDir   string
	Sessions    *bool
	Overwrite   *bool
	CleanupWork *bool
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bidskit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Apply merges command-line overrides into the configuration and re-derives
// dependent directories.
func (c *Config) Apply(o Overrides) error {
	var err error
	if strings.TrimSpace(o.DicomDir) != "" {
		if c.Paths.DicomDir, err = expandPath(o.DicomDir); err != nil {
			return fmt.Errorf("indir: %w", err)
		}
	}
	if strings.TrimSpace(o.SourceDir) != "" {
		if c.Paths.SourceDir, err = expandPath(o.SourceDir); err != nil {
			return fmt.Errorf("outdir: %w", err)
		}
	}
	if o.Sessions != nil {
		c.Conversion.Sessions = *o.Sessions
	}
	if o.Overwrite != nil {
		c.Conversion.Overwrite = *o.Overwrite
	}
	if o.CleanupWork != nil {
		c.Conversion.CleanupWork = *o.CleanupWork
	}
	c.deriveDatasetPaths()
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/bidskit/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bidskit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, source, derivatives and log directories.
// The DICOM input directory is never created; it must already exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.SourceDir, c.Paths.DerivativesDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MappingPath returns the location of the protocol translator JSON file.
func (c *Config) MappingPath() string {
	return filepath.Join(c.Paths.DerivativesDir, MappingFilename)
}

// LockPath returns the lock file guarding a dataset against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DerivativesDir, "bidskit.lock")
}

// ConverterBinary returns the external converter executable name.
func (c *Config) ConverterBinary() string {
	if bin := strings.TrimSpace(c.Conversion.ConverterBinary); bin != "" {
		return bin
	}
	return defaultConverterBinary
}

func (c *Config) deriveDatasetPaths() {
	root := filepath.Dir(c.Paths.SourceDir)
	if c.derivedWorkDir {
		c.Paths.WorkDir = filepath.Join(root, "work", "conversion")
	}
	if c.derivedDerivatives {
		c.Paths.DerivativesDir = filepath.Join(root, "derivatives", "conversion")
	}
	if c.derivedLedger {
		c.Ledger.Path = filepath.Join(c.Paths.DerivativesDir, "ledger.db")
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
