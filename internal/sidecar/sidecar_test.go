package sidecar

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sandily/bidskit/internal/bids"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
)

func writeSidecar(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDecodePreservesNumbersAndUnknownKeys(t *testing.T) {
	m, err := Decode([]byte(`{"EchoTime": 0.00492, "EchoNumber": 2, "ImageType": ["ORIGINAL","PRIMARY","P","ND"], "Manufacturer": "Siemens"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if et, ok := m.EchoTime(); !ok || et.String() != "0.00492" {
		t.Fatalf("EchoTime = %q, %v", et, ok)
	}
	if n, ok := m.EchoNumber(); !ok || n != 2 {
		t.Fatalf("EchoNumber = %d, %v", n, ok)
	}
	if !m.IsPhase() {
		t.Fatal("expected phase image type")
	}
	out, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"EchoTime": 0.00492`) || !strings.Contains(string(out), `"Manufacturer": "Siemens"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(string(out), "\n    \"") {
		t.Fatalf("expected four-space indentation: %s", out)
	}
}

func TestImageTypeBounds(t *testing.T) {
	m := Metadata{KeyImageType: []any{"ORIGINAL", "PRIMARY"}}
	if _, ok := m.ImageTypeAt(2); ok {
		t.Fatal("expected out-of-range lookup to fail")
	}
	if m.IsPhase() {
		t.Fatal("short ImageType must not be phase")
	}
	if _, ok := (Metadata{}).EchoNumber(); ok {
		t.Fatal("expected absent EchoNumber")
	}
}

func TestResolveLinks(t *testing.T) {
	single := mapping.Links{Stems: []string{"rest_bold"}}
	got, ok := ResolveLinks("sub-01_", bids.ImageExt, single)
	if !ok || got != "sub-01_rest_bold.nii.gz" {
		t.Fatalf("single link = %v, %v", got, ok)
	}
	again, _ := ResolveLinks("sub-01_", bids.ImageExt, mapping.Links{Stems: []string{got.(string)}})
	if again != "sub-01_rest_bold.nii.gz" {
		t.Fatalf("re-resolution double prefixed: %v", again)
	}

	list := mapping.Links{Stems: []string{"task-rest_bold", "sub-01_ses-1_T1w.nii.gz"}, IsList: true}
	gotList, ok := ResolveLinks("sub-01_ses-1_", bids.ImageExt, list)
	want := []string{"sub-01_ses-1_task-rest_bold.nii.gz", "sub-01_ses-1_T1w.nii.gz"}
	if !ok || !reflect.DeepEqual(gotList, want) {
		t.Fatalf("list links = %v", gotList)
	}
	if list.Stems[0] != "task-rest_bold" {
		t.Fatal("ResolveLinks mutated the mapping entry")
	}

	if _, ok := ResolveLinks("sub-01_", bids.ImageExt, mapping.Links{Stems: []string{mapping.Unassigned}}); ok {
		t.Fatal("expected sentinel to resolve to nothing")
	}

	plain, _ := ResolveLinks("sub-01_", bids.PlainImageExt, single)
	if plain != "sub-01_rest_bold.nii" {
		t.Fatalf("uncompressed link = %v", plain)
	}
	plainAgain, _ := ResolveLinks("sub-01_", bids.PlainImageExt, mapping.Links{Stems: []string{"sub-01_rest_bold.nii"}})
	if plainAgain != "sub-01_rest_bold.nii" {
		t.Fatalf("uncompressed re-resolution = %v", plainAgain)
	}
}

func TestStitcherPairsPreviousSeries(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, "s--field_mapping--GR--12.json", `{"EchoTime": 0.00492}`)
	phase := writeSidecar(t, dir, "s--field_mapping--GR--13.json", `{"EchoTime": 0.00738, "EchoNumber": 2}`)

	times := NewStitcher(NewReader(4), logging.NewNop()).EchoTimes(context.Background(), phase)
	if times.Fallback || times.First != "0.00492" || times.Second != "0.00738" {
		t.Fatalf("unexpected echo times: %+v", times)
	}
	m := Metadata{}
	times.Apply(m)
	out, _ := json.Marshal(m)
	if string(out) != `{"EchoTime1":0.00492,"EchoTime2":0.00738}` {
		t.Fatalf("unexpected applied metadata: %s", out)
	}
}

func TestStitcherPairsSplitSeriesToken(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, "s--field_mapping--GR--12.json", `{"EchoTime": 0.00492}`)
	phase := writeSidecar(t, dir, "s--field_mapping--GR--13a.json", `{"EchoTime": 0.00738, "EchoNumber": 2}`)

	times := NewStitcher(nil, logging.NewNop()).EchoTimes(context.Background(), phase)
	if times.Fallback || times.First != "0.00492" || times.Second != "0.00738" {
		t.Fatalf("unexpected echo times for split token: %+v", times)
	}
}

func TestStitcherFallsBackWhenMagnitudeMissing(t *testing.T) {
	dir := t.TempDir()
	phase := writeSidecar(t, dir, "s--field_mapping--GR--13.json", `{"EchoTime": 0.00738}`)

	times := NewStitcher(nil, logging.NewNop()).EchoTimes(context.Background(), phase)
	if !times.Fallback || times.First != FallbackEchoTime || times.Second != FallbackEchoTime {
		t.Fatalf("expected fallback, got %+v", times)
	}
	m := Metadata{}
	times.Apply(m)
	out, _ := json.Marshal(m)
	if string(out) != `{"EchoTime1":0.0,"EchoTime2":0.0}` {
		t.Fatalf("unexpected fallback metadata: %s", out)
	}
}

func TestReaderReturnsIndependentCopies(t *testing.T) {
	dir := t.TempDir()
	path := writeSidecar(t, dir, "a--b--SE--1.json", `{"EchoTime": 0.1}`)
	r := NewReader(2)
	first, err := r.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	first[KeyTaskName] = "changed"
	second, err := r.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := second[KeyTaskName]; ok {
		t.Fatal("cached sidecar was mutated through a previous read")
	}
}
