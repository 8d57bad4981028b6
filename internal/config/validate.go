package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DicomDir) == "" {
		return errors.New("paths.dicom_dir must be set")
	}
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return errors.New("paths.source_dir must be set")
	}
	if filepath.Clean(c.Paths.DicomDir) == filepath.Clean(c.Paths.SourceDir) {
		return fmt.Errorf("paths.source_dir must differ from paths.dicom_dir (%s)", c.Paths.SourceDir)
	}
	if filepath.Clean(c.Paths.WorkDir) == filepath.Clean(c.Paths.SourceDir) {
		return fmt.Errorf("paths.work_dir must differ from paths.source_dir (%s)", c.Paths.SourceDir)
	}
	return nil
}

func (c *Config) validateConversion() error {
	if strings.TrimSpace(c.Conversion.ConverterBinary) == "" {
		return errors.New("conversion.converter_binary must be set")
	}
	if c.Conversion.ConverterTimeout < 0 {
		return errors.New("conversion.converter_timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
