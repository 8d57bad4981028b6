package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConvertTemplatePassWritesTranslator(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"convert", "--log-level", "warn"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Pass 1")
	requireContains(t, out, "template written to")

	translator := filepath.Join(env.derivDir, "Protocol_Translator.json")
	if _, err := os.Stat(translator); err != nil {
		t.Fatalf("expected translator at %s: %v", translator, err)
	}
	if _, err := os.Stat(filepath.Join(env.baseDir, "study", "work", "conversion", "sub-02", "02--T1--GR_IR--2.json")); err != nil {
		t.Fatalf("expected converted series: %v", err)
	}

	out, _, err = runCLI(t, []string{"mapping", "show", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping show: %v", err)
	}
	var entries []mappingEntryJSON
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode mapping json %q: %v", out, err)
	}
	if len(entries) != 2 || entries[0].Description != "T1" || !entries[0].Excluded {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	out, _, err = runCLI(t, []string{"mapping", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping validate: %v", err)
	}
	requireContains(t, out, "still carries the template exclusion")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "template")
	requireContains(t, out, "completed")
}

func TestConvertJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"convert", "--json", "--log-level", "error"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	var summary runSummaryJSON
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if summary.Pass != 1 || summary.Units != 2 || summary.Converted != 2 || !summary.MappingWritten || summary.NewDescriptions != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestMappingValidateReportsErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.derivDir, 0o755); err != nil {
		t.Fatal(err)
	}
	bad := `{"rest": ["perf", "", "UNASSIGNED"]}`
	if err := os.WriteFile(filepath.Join(env.derivDir, "Protocol_Translator.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"mapping", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	requireContains(t, out, "unknown category")
	requireContains(t, out, "empty filename suffix")
}

func TestMappingShowWithoutTranslator(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"mapping", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping show: %v", err)
	}
	requireContains(t, out, "No translator entries")
}

func TestHistoryWithoutLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
	if _, err := os.Stat(filepath.Join(env.derivDir, "ledger.db")); !os.IsNotExist(err) {
		t.Fatalf("history must not create the ledger: %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "dcm2niix v1.0.test")
	requireContains(t, out, "DICOM directory")
}

func TestCheckFailsWithoutDicomDir(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.dicomDir); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check failure")
	}
	requireContains(t, out, "does not exist")
}
