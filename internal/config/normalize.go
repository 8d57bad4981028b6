package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeDataset()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.deriveDatasetPaths()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DicomDir) == "" {
		c.Paths.DicomDir = defaultDicomDir
	}
	if c.Paths.DicomDir, err = expandPath(c.Paths.DicomDir); err != nil {
		return fmt.Errorf("paths.dicom_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		c.Paths.SourceDir = defaultSourceDir
	}
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.derivedWorkDir = true
	} else if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DerivativesDir) == "" {
		c.derivedDerivatives = true
	} else if c.Paths.DerivativesDir, err = expandPath(c.Paths.DerivativesDir); err != nil {
		return fmt.Errorf("paths.derivatives_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	c.Conversion.ConverterBinary = strings.TrimSpace(c.Conversion.ConverterBinary)
	if value, ok := os.LookupEnv("BIDSKIT_DCM2NIIX"); ok && strings.TrimSpace(value) != "" {
		c.Conversion.ConverterBinary = strings.TrimSpace(value)
	}
	if c.Conversion.ConverterBinary == "" {
		c.Conversion.ConverterBinary = defaultConverterBinary
	}
	if c.Conversion.ConverterTimeout <= 0 {
		c.Conversion.ConverterTimeout = defaultConverterTimeout
	}
}

func (c *Config) normalizeDataset() {
	c.Dataset.BIDSVersion = strings.TrimSpace(c.Dataset.BIDSVersion)
	if c.Dataset.BIDSVersion == "" {
		c.Dataset.BIDSVersion = defaultBIDSVersion
	}
	if strings.TrimSpace(c.Dataset.License) == "" {
		c.Dataset.License = defaultLicense
	}
	if strings.TrimSpace(c.Dataset.Name) == "" {
		c.Dataset.Name = defaultDatasetName
	}
	if strings.TrimSpace(c.Dataset.References) == "" {
		c.Dataset.References = defaultReferences
	}
}

func (c *Config) normalizeLedger() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.derivedLedger = true
		return nil
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if value, ok := os.LookupEnv("BIDSKIT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
