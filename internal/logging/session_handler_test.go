package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSessionIDHandlerStampsEveryRecord(t *testing.T) {
	tests := []struct {
		name  string
		build func(*slog.Logger) *slog.Logger
		extra map[string]string
	}{
		{name: "plain", build: func(l *slog.Logger) *slog.Logger { return l }},
		{
			name:  "with attrs",
			build: func(l *slog.Logger) *slog.Logger { return l.With(FieldSubject, "01") },
			extra: map[string]string{FieldSubject: "01"},
		},
		{
			name:  "component",
			build: func(l *slog.Logger) *slog.Logger { return NewComponentLogger(l, "walker") },
			extra: map[string]string{"component": "walker"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := tt.build(slog.New(newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "run-42")))
			logger.Info("unit converted")

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("decode record %q: %v", buf.String(), err)
			}
			if record[FieldSessionID] != "run-42" {
				t.Fatalf("expected session_id run-42, got %v", record[FieldSessionID])
			}
			for key, want := range tt.extra {
				if record[key] != want {
					t.Fatalf("expected %s=%q, got %v", key, want, record[key])
				}
			}
		})
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "run-42").(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when base is nil")
	}
}
