package config

const (
	defaultDicomDir         = "dicom"
	defaultSourceDir        = "source"
	defaultLogDir           = "~/.local/share/bidskit/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultConverterBinary  = "dcm2niix"
	defaultConverterTimeout = 1800
	defaultBIDSVersion      = "1.0.0"
	defaultLicense          = "This data is made available under the Creative Commons BY-SA 4.0 International License."
	defaultDatasetName      = "The dataset name goes here"
	defaultReferences       = "References and links for this dataset go here"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DicomDir:  defaultDicomDir,
			SourceDir: defaultSourceDir,
			LogDir:    defaultLogDir,
		},
		Conversion: Conversion{
			Sessions:         true,
			ConverterBinary:  defaultConverterBinary,
			ConverterTimeout: defaultConverterTimeout,
			Compress:         true,
		},
		Dataset: Dataset{
			BIDSVersion: defaultBIDSVersion,
			License:     defaultLicense,
			Name:        defaultDatasetName,
			References:  defaultReferences,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
