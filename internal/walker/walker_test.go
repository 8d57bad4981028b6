package walker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/services/dcm2niix"
)

type fakeConverter struct {
	calls []string
	err   error
}

func (f *fakeConverter) Convert(_ context.Context, rawDir, workDir string) (dcm2niix.Result, error) {
	f.calls = append(f.calls, rawDir)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return dcm2niix.Result{}, err
	}
	return dcm2niix.Result{Converted: 1}, f.err
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnumerateWithSessions(t *testing.T) {
	root := t.TempDir()
	dicom := filepath.Join(root, "dicom")
	mkdirs(t, dicom, "02/1", "01/2", "01/1", ".hidden/1")
	if err := os.WriteFile(filepath.Join(dicom, "README"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	units, err := Enumerate(Layout{DicomDir: dicom, WorkDir: filepath.Join(root, "work"), SourceDir: filepath.Join(root, "source"), Sessions: true})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %+v", units)
	}
	first := units[0]
	if first.Subject != "01" || first.Session != "1" {
		t.Fatalf("unexpected first unit: %+v", first)
	}
	if first.WorkDir != filepath.Join(root, "work", "sub-01", "ses-1") || first.DestDir != filepath.Join(root, "source", "sub-01", "ses-1") {
		t.Fatalf("unexpected unit dirs: %+v", first)
	}
	if first.Prefix() != "sub-01_ses-1_" || first.Label() != "sub-01/ses-1" {
		t.Fatalf("unexpected prefix/label: %q %q", first.Prefix(), first.Label())
	}
	if units[2].Subject != "02" {
		t.Fatalf("unexpected order: %+v", units)
	}
}

func TestEnumerateWithoutSessions(t *testing.T) {
	root := t.TempDir()
	dicom := filepath.Join(root, "dicom")
	mkdirs(t, dicom, "01/series_a", "02")
	units, err := Enumerate(Layout{DicomDir: dicom, WorkDir: "/w", SourceDir: "/s"})
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 || units[0].Session != "" || units[0].RawDir != filepath.Join(dicom, "01") {
		t.Fatalf("unexpected units: %+v", units)
	}
	if units[0].WorkDir != "/w/sub-01" || units[0].Prefix() != "sub-01_" {
		t.Fatalf("unexpected unit: %+v", units[0])
	}
}

func TestEnumerateMissingRootIsConfigurationError(t *testing.T) {
	if _, err := Enumerate(Layout{DicomDir: filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPrepareConvertsOnlyOnce(t *testing.T) {
	root := t.TempDir()
	conv := &fakeConverter{}
	w := New(conv, logging.NewNop())
	unit := Unit{Subject: "01", RawDir: filepath.Join(root, "dicom", "01"), WorkDir: filepath.Join(root, "work", "sub-01")}

	ran, err := w.Prepare(context.Background(), unit)
	if err != nil || !ran {
		t.Fatalf("first Prepare = %v, %v", ran, err)
	}
	ran, err = w.Prepare(context.Background(), unit)
	if err != nil || ran {
		t.Fatalf("second Prepare = %v, %v", ran, err)
	}
	if len(conv.calls) != 1 {
		t.Fatalf("expected one conversion, got %v", conv.calls)
	}
}

func TestPrepareFailureRemovesWorkingDirectory(t *testing.T) {
	root := t.TempDir()
	conv := &fakeConverter{err: errors.New("converter crashed")}
	unit := Unit{Subject: "01", RawDir: "raw", WorkDir: filepath.Join(root, "work", "sub-01")}
	if _, err := New(conv, nil).Prepare(context.Background(), unit); err == nil {
		t.Fatal("expected conversion error")
	}
	if _, err := os.Stat(unit.WorkDir); !os.IsNotExist(err) {
		t.Fatalf("partial working directory kept: %v", err)
	}
}
