package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/services"
)

// DefaultFilename is the translator's name inside the derivatives directory.
const DefaultFilename = "Protocol_Translator.json"

// Load reads the translator at path. A missing file yields an empty mapping;
// malformed JSON is a configuration error that must abort the run.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Mapping{}, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "mapping", "load", "Failed to read protocol translator "+path, err)
	}
	m := Mapping{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "mapping", "load", "Protocol translator "+path+" is not valid JSON; fix it by hand and re-run", err)
	}
	return m, nil
}

// Persist writes m to path only when no file exists there, so an edited
// translator is never replaced by a fresh template. It reports whether the
// file was written.
func Persist(path string, m Mapping, logger *slog.Logger) (bool, error) {
	logger = logging.NewComponentLogger(logger, "mapping")
	if _, err := os.Stat(path); err == nil {
		logger.Info("protocol translator already exists; skipping template creation",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "mapping_preserved"),
		)
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, services.Wrap(services.ErrConfiguration, "mapping", "persist", "Failed to inspect "+path, err)
	}

	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return false, fmt.Errorf("encode protocol translator: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create translator directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return false, fmt.Errorf("write protocol translator: %w", err)
	}
	logger.Info("new protocol translator created",
		logging.String("path", path),
		logging.Int("descriptions", len(m)),
		logging.String(logging.FieldEventType, "mapping_written"),
		logging.String("next_step", `replace "EXCLUDE" values with a category and BIDS suffix, e.g. "anat" and "T1w", then re-run`),
	)
	return true, nil
}
