package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/sandily/bidskit/internal/config"
	"github.com/sandily/bidskit/internal/ledger"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/services/dcm2niix"
	"github.com/sandily/bidskit/internal/testsupport"
)

// fakeConverter writes a fixed set of series for every unit.
type fakeConverter struct {
	calls int
}

func (f *fakeConverter) Convert(_ context.Context, rawDir, workDir string) (dcm2niix.Result, error) {
	f.calls++
	t := filepath.Base(rawDir)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return dcm2niix.Result{}, err
	}
	files := map[string]string{
		t + "--rest--EP--5.nii.gz":  "x",
		t + "--rest--EP--5.json":    `{"EchoTime": 0.03}`,
		t + "--T1--GR_IR--2.nii.gz": "x",
		t + "--T1--GR_IR--2.json":   `{"EchoTime": 0.002}`,
		t + "--scout--GR--1.nii.gz": "x",
		t + "--scout--GR--1.json":   `{}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(workDir, name), []byte(body), 0o644); err != nil {
			return dcm2niix.Result{}, err
		}
	}
	return dcm2niix.Result{Converted: 3}, nil
}

func fakeParse(t *testing.T) func(string) (dicom.Dataset, error) {
	return func(string) (dicom.Dataset, error) {
		sex, err := dicom.NewElement(tag.PatientSex, []string{"F"})
		if err != nil {
			t.Fatalf("NewElement: %v", err)
		}
		age, err := dicom.NewElement(tag.PatientAge, []string{"034Y"})
		if err != nil {
			t.Fatalf("NewElement: %v", err)
		}
		return dicom.Dataset{Elements: []*dicom.Element{sex, age}}, nil
	}
}

func newDataset(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries(), testsupport.WithSessions(false)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	for _, sub := range []string{"01", "02"} {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.DicomDir, sub, "IM0001.dcm"), 128)
	}
	return cfg
}

const translator = `{
    "rest": ["func", "task-rest_bold", "UNASSIGNED"],
    "T1": ["anat", "T1w", "UNASSIGNED"],
    "scout": ["EXCLUDE_BIDS_Directory", "EXCLUDE_BIDS_Name", "UNASSIGNED"]
}
`

func TestRunTemplatePassWritesTranslator(t *testing.T) {
	cfg := newDataset(t)
	conv := &fakeConverter{}

	summary, err := Run(context.Background(), Options{Config: cfg, Logger: logging.NewNop(), Converter: conv, RunID: "run-template"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Pass != PassTemplate || summary.Units != 2 || summary.Converted != 2 || conv.calls != 2 {
		t.Fatalf("unexpected summary: %+v (calls=%d)", summary, conv.calls)
	}
	if !summary.MappingWritten || summary.NewDescriptions != 3 {
		t.Fatalf("expected translator with 3 descriptions: %+v", summary)
	}
	m, err := mapping.Load(cfg.MappingPath())
	if err != nil {
		t.Fatalf("load translator: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("expected 3 entries, got %v", m)
	}
	for desc, entry := range m {
		if !entry.Excluded() {
			t.Fatalf("template entry %q should be excluded", desc)
		}
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.SourceDir, "participants.tsv"))
}

func TestRunOrganizePassPopulatesSourceTree(t *testing.T) {
	cfg := newDataset(t)
	conv := &fakeConverter{}
	ctx := context.Background()
	if _, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv}); err != nil {
		t.Fatalf("template pass: %v", err)
	}
	// The operator completes the translator by hand.
	testsupport.WriteText(t, cfg.MappingPath(), translator)

	summary, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv, ParseDICOM: fakeParse(t), RunID: "run-organize"})
	if err != nil {
		t.Fatalf("organize pass: %v", err)
	}
	if summary.Pass != PassOrganize || conv.calls != 2 || summary.Converted != 0 {
		t.Fatalf("organize pass should not reconvert: %+v calls=%d", summary, conv.calls)
	}
	for _, sub := range []string{"sub-01", "sub-02"} {
		testsupport.AssertExists(t, filepath.Join(cfg.Paths.SourceDir, sub, "func", sub+"_task-rest_bold.nii.gz"))
		testsupport.AssertExists(t, filepath.Join(cfg.Paths.SourceDir, sub, "func", sub+"_task-rest_events.tsv"))
		testsupport.AssertExists(t, filepath.Join(cfg.Paths.SourceDir, sub, "anat", sub+"_T1w.json"))
	}
	participants := testsupport.ReadText(t, filepath.Join(cfg.Paths.SourceDir, "participants.tsv"))
	want := "participant_id\tsex\tage\nsub-01\tF\t034Y\nsub-02\tF\t034Y\n"
	if participants != want {
		t.Fatalf("unexpected participants table:\n%q", participants)
	}
	if !summary.DatasetDescriptionWritten || summary.Participants != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	totals := summary.Totals()
	if totals.Created != 10 || totals.Skipped != 0 {
		t.Fatalf("unexpected totals: %+v", totals)
	}

	store := testsupport.MustOpenLedger(t, cfg)
	run, err := store.GetRun(ctx, "run-organize")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != ledger.StatusCompleted || run.Totals.Created != 10 || run.Pass != string(PassOrganize) {
		t.Fatalf("unexpected ledger run: %+v", run)
	}
	placements, err := store.Placements(ctx, "run-organize")
	if err != nil || len(placements) != 10 {
		t.Fatalf("expected 10 placements, got %d (%v)", len(placements), err)
	}
}

func TestRunOrganizePassIsIdempotent(t *testing.T) {
	cfg := newDataset(t)
	conv := &fakeConverter{}
	ctx := context.Background()
	if _, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv}); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteText(t, cfg.MappingPath(), translator)
	opts := Options{Config: cfg, Logger: logging.NewNop(), Converter: conv, ParseDICOM: fakeParse(t)}
	if _, err := Run(ctx, opts); err != nil {
		t.Fatal(err)
	}
	descriptor := testsupport.ReadText(t, filepath.Join(cfg.Paths.SourceDir, "dataset_description.json"))

	second, err := Run(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	totals := second.Totals()
	if totals.Created != 0 || totals.Replaced != 0 || totals.Preserved != 10 {
		t.Fatalf("second organize pass should only preserve: %+v", totals)
	}
	if second.DatasetDescriptionWritten {
		t.Fatal("dataset description must never be rewritten")
	}
	if testsupport.ReadText(t, filepath.Join(cfg.Paths.SourceDir, "dataset_description.json")) != descriptor {
		t.Fatal("dataset description changed")
	}
}

func TestRunCleanupRemovesWorkingDirectories(t *testing.T) {
	cfg := newDataset(t)
	conv := &fakeConverter{}
	ctx := context.Background()
	if _, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv}); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteText(t, cfg.MappingPath(), translator)
	cfg.Conversion.CleanupWork = true
	if _, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv, ParseDICOM: fakeParse(t)}); err != nil {
		t.Fatal(err)
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.WorkDir, "sub-01"))
	testsupport.AssertExists(t, filepath.Join(cfg.Paths.SourceDir, "sub-01", "anat", "sub-01_T1w.nii.gz"))
}

func TestRunMissingDemographicsAborts(t *testing.T) {
	cfg := newDataset(t, testsupport.WithoutLedger())
	conv := &fakeConverter{}
	ctx := context.Background()
	if _, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv}); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteText(t, cfg.MappingPath(), translator)

	noDICOM := func(string) (dicom.Dataset, error) { return dicom.Dataset{}, errors.New("not dicom") }
	_, err := Run(ctx, Options{Config: cfg, Logger: logging.NewNop(), Converter: conv, ParseDICOM: noDICOM})
	if err == nil || !errors.Is(err, services.ErrAbort) || !services.IsFatal(err) {
		t.Fatalf("expected fatal abort, got %v", err)
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.SourceDir, "sub-01", "func"))
}

func TestRunMalformedTranslatorIsFatal(t *testing.T) {
	cfg := newDataset(t)
	testsupport.WriteText(t, cfg.MappingPath(), `{"rest": ["func", "task-rest_bold"`)
	_, err := Run(context.Background(), Options{Config: cfg, Logger: logging.NewNop(), Converter: &fakeConverter{}})
	if err == nil || !services.IsFatal(err) {
		t.Fatalf("expected fatal configuration error, got %v", err)
	}
}

func TestRunRefusesConcurrentRuns(t *testing.T) {
	cfg := newDataset(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err = Run(context.Background(), Options{Config: cfg, Logger: logging.NewNop(), Converter: &fakeConverter{}})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestSelectPass(t *testing.T) {
	populated := mapping.Mapping{"rest": mapping.TemplateEntry()}
	cases := []struct {
		name    string
		m       mapping.Mapping
		workDir bool
		want    Pass
	}{
		{"empty translator", mapping.Mapping{}, true, PassTemplate},
		{"no working tree", populated, false, PassTemplate},
		{"ready", populated, true, PassOrganize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := selectPass(tc.m, tc.workDir); got != tc.want {
				t.Fatalf("selectPass = %s, want %s", got, tc.want)
			}
		})
	}
}
