package bids

import "testing"

func TestPrefix(t *testing.T) {
	if got := Prefix("01", ""); got != "sub-01_" {
		t.Fatalf("Prefix without session = %q", got)
	}
	if got := Prefix("01", "2"); got != "sub-01_ses-2_" {
		t.Fatalf("Prefix with session = %q", got)
	}
}

func TestAddRunNumber(t *testing.T) {
	tests := []struct {
		suffix string
		run    int
		want   string
	}{
		{"task-rest_bold", 2, "task-rest_run-02_bold"},
		{"acq-mprage_T1w", 1, "acq-mprage_run-01_T1w"},
		{"T1w", 1, "run-01_T1w"},
		{"a_b_c", 12, "a_b_run-12_c"},
	}
	for _, tt := range tests {
		if got := AddRunNumber(tt.suffix, tt.run); got != tt.want {
			t.Errorf("AddRunNumber(%q, %d) = %q, want %q", tt.suffix, tt.run, got, tt.want)
		}
	}
}

func TestParseKeys(t *testing.T) {
	keys := ParseKeys("/data/source/sub-01/func/sub-01_ses-2_task-nback_run-01_bold.nii.gz")
	want := map[string]string{"sub": "01", "ses": "2", "task": "nback", "run": "01", "type": "bold"}
	if len(keys) != len(want) {
		t.Fatalf("unexpected keys: %v", keys)
	}
	for k, v := range want {
		if keys[k] != v {
			t.Fatalf("key %q = %q, want %q", k, keys[k], v)
		}
	}
	if _, ok := ParseKeys("sub-01_rest_bold.nii.gz")["task"]; ok {
		t.Fatal("expected no task key")
	}
}

func TestEventsPath(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{"func/sub-01_task-rest_bold.nii.gz", "func/sub-01_task-rest_events.tsv"},
		{"func/sub-01_task-rest_run-02_bold.nii", "func/sub-01_task-rest_run-02_events.tsv"},
		{"func/sub-01_task-rest_sbref.nii.gz", "func/sub-01_task-rest_sbref_events.tsv"},
		{"func/sub-01_task-nback.nii", "func/sub-01_task-nback_events.tsv"},
	}
	for _, tt := range tests {
		if got := EventsPath(tt.image); got != tt.want {
			t.Errorf("EventsPath(%q) = %q, want %q", tt.image, got, tt.want)
		}
	}
}

func TestVolumeExt(t *testing.T) {
	if got := VolumeExt("work/s--T1--GR_IR--3.nii.gz"); got != ImageExt {
		t.Fatalf("VolumeExt compressed = %q", got)
	}
	if got := VolumeExt("work/s--T1--GR_IR--3.nii"); got != PlainImageExt {
		t.Fatalf("VolumeExt plain = %q", got)
	}
	if !IsVolume("sub-01_T1w.nii") || !IsVolume("sub-01_T1w.nii.gz") || IsVolume("T1w") {
		t.Fatal("IsVolume misclassified a name")
	}
}

func TestAppendEntityAndReplaceExt(t *testing.T) {
	if got := AppendEntity("fmap/sub-01_fmap.nii.gz", "phasediff"); got != "fmap/sub-01_fmap_phasediff.nii.gz" {
		t.Fatalf("AppendEntity image = %q", got)
	}
	if got := AppendEntity("fmap/sub-01_fmap.json", "phasediff"); got != "fmap/sub-01_fmap_phasediff.json" {
		t.Fatalf("AppendEntity sidecar = %q", got)
	}
	if got := ReplaceExt("dwi/sub-01_dwi.json", BvalExt); got != "dwi/sub-01_dwi.bval" {
		t.Fatalf("ReplaceExt = %q", got)
	}
	if got := ReplaceExt("work/a--b--SE--4.nii.gz", SidecarExt); got != "work/a--b--SE--4.json" {
		t.Fatalf("ReplaceExt image = %q", got)
	}
	if got := ReplaceExt("dwi/sub-01_dwi.nii", BvecExt); got != "dwi/sub-01_dwi.bvec" {
		t.Fatalf("ReplaceExt plain image = %q", got)
	}
	if got := AppendEntity("fmap/sub-01_fmap.nii", "magnitude"); got != "fmap/sub-01_fmap_magnitude.nii" {
		t.Fatalf("AppendEntity plain image = %q", got)
	}
}
