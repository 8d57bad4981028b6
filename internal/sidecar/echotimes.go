package sidecar

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/series"
)

// FallbackEchoTime is written when the paired magnitude cannot be read.
const FallbackEchoTime = json.Number("0.0")

// EchoTimes holds the stitched echo times of a phase-difference fieldmap.
type EchoTimes struct {
	First    json.Number
	Second   json.Number
	Fallback bool
}

// Apply writes EchoTime1 and EchoTime2 into m.
func (e EchoTimes) Apply(m Metadata) {
	m[KeyEchoTime1] = e.First
	m[KeyEchoTime2] = e.Second
}

// Stitcher pairs a phase-difference sidecar with the echo-1 magnitude the
// converter wrote one series number earlier.
type Stitcher struct {
	reader *Reader
	logger *slog.Logger
}

// NewStitcher builds a stitcher reading sidecars through reader.
func NewStitcher(reader *Reader, logger *slog.Logger) *Stitcher {
	if reader == nil {
		reader = NewReader(0)
	}
	return &Stitcher{reader: reader, logger: logging.NewComponentLogger(logger, "echo-stitcher")}
}

// EchoTimes reads the phase sidecar at phasePath and the magnitude sidecar
// derived from it. EchoTime1 comes from the magnitude, EchoTime2 from the
// phase. Any failure degrades to 0.0 for both with a warning.
func (s *Stitcher) EchoTimes(ctx context.Context, phasePath string) EchoTimes {
	logger := logging.WithContext(ctx, s.logger)
	fallback := func(reason string, attrs ...slog.Attr) EchoTimes {
		attrs = append(attrs,
			logging.String("phase_sidecar", phasePath),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "EchoTime1 and EchoTime2 written as 0.0"),
			logging.String(logging.FieldErrorHint, "check the magnitude series was converted and edit the phasediff sidecar by hand"),
		)
		logging.WarnWithContext(logger, "could not determine fieldmap echo times; using 0.0", "echo_time_fallback", attrs...)
		return EchoTimes{First: FallbackEchoTime, Second: FallbackEchoTime, Fallback: true}
	}

	phase, err := s.reader.Read(phasePath)
	if err != nil {
		return fallback("phase sidecar unreadable", logging.Error(err))
	}
	parsed, err := series.Parse(phasePath)
	if err != nil {
		return fallback("phase sidecar name not parseable", logging.Error(err))
	}
	// A split token such as "13a" pairs through its leading digits.
	number := parsed.SeriesNumber
	if number < 1 {
		return fallback("phase series number is not numeric", logging.String("series_token", parsed.SeriesToken))
	}
	magPath := filepath.Join(filepath.Dir(phasePath), parsed.WithSeriesToken(strconv.Itoa(number-1))+".json")
	magnitude, err := s.reader.Read(magPath)
	if err != nil {
		return fallback("paired magnitude sidecar unreadable", logging.String("magnitude_sidecar", magPath), logging.Error(err))
	}
	first, ok := magnitude.EchoTime()
	if !ok {
		return fallback("magnitude sidecar has no EchoTime", logging.String("magnitude_sidecar", magPath))
	}
	second, ok := phase.EchoTime()
	if !ok {
		return fallback("phase sidecar has no EchoTime")
	}
	logger.Debug("fieldmap echo times stitched",
		logging.String("magnitude_sidecar", magPath),
		logging.String(KeyEchoTime1, first.String()),
		logging.String(KeyEchoTime2, second.String()),
	)
	return EchoTimes{First: first, Second: second}
}
