package participants

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sandily/bidskit/internal/config"
	"github.com/sandily/bidskit/internal/sidecar"
)

// DatasetDescriptionFilename is the dataset descriptor in the source root.
const DatasetDescriptionFilename = "dataset_description.json"

// DatasetDescription returns the descriptor document for the configured dataset.
func DatasetDescription(ds config.Dataset) sidecar.Metadata {
	return sidecar.Metadata{
		"BIDSVersion":        ds.BIDSVersion,
		"License":            ds.License,
		"Name":               ds.Name,
		"ReferencesAndLinks": ds.References,
	}
}

// EnsureDatasetDescription writes the descriptor into sourceDir unless one
// already exists; an existing descriptor is never replaced. It reports whether
// the file was written.
func EnsureDatasetDescription(sourceDir string, ds config.Dataset) (bool, error) {
	path := filepath.Join(sourceDir, DatasetDescriptionFilename)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat dataset description: %w", err)
	}
	data, err := DatasetDescription(ds).Marshal()
	if err != nil {
		return false, fmt.Errorf("encode dataset description: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write dataset description: %w", err)
	}
	return true, nil
}
