package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// converterStub writes one anatomical and one functional series per unit,
// named the way dcm2niix does with the bidskit filename format.
const converterStub = `#!/bin/sh
if [ "$1" = "-v" ]; then
  echo "dcm2niix v1.0.test"
  exit 0
fi
out="$8"
raw="$9"
sub=$(basename "$raw")
mkdir -p "$out"
printf x > "$out/$sub--T1--GR_IR--2.nii.gz"
printf '{"EchoTime": 0.002}' > "$out/$sub--T1--GR_IR--2.json"
printf x > "$out/$sub--rest--EP--5.nii.gz"
printf '{"EchoTime": 0.03}' > "$out/$sub--rest--EP--5.json"
echo "Convert 2 DICOM as $out/$sub--rest--EP--5"
`

type cliTestEnv struct {
	baseDir    string
	configPath string
	dicomDir   string
	sourceDir  string
	derivDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("BIDSKIT_LOG_LEVEL", "")
	t.Setenv("BIDSKIT_DCM2NIIX", "")

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "dcm2niix"), []byte(converterStub), 0o755); err != nil {
		t.Fatalf("write converter stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "bidskit.toml"),
		dicomDir:   filepath.Join(base, "study", "dicom"),
		sourceDir:  filepath.Join(base, "study", "source"),
		derivDir:   filepath.Join(base, "study", "derivatives", "conversion"),
	}
	for _, sub := range []string{"01", "02"} {
		path := filepath.Join(env.dicomDir, sub, "IM0001.dcm")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir dicom: %v", err)
		}
		if err := os.WriteFile(path, []byte("not a real header"), 0o644); err != nil {
			t.Fatalf("write dicom: %v", err)
		}
	}
	content := fmt.Sprintf(
		"[paths]\ndicom_dir = %q\nsource_dir = %q\nlog_dir = %q\n\n[conversion]\nsessions = false\n",
		env.dicomDir, env.sourceDir, filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
