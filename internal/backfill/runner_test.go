package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeVODDir lays out one VOD signal directory under root: 40 confident
// words over the first 37 seconds of a 60 second recording.
func writeVODDir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	var words []signal.Word
	for i := 0; i < 40; i++ {
		start := int64(1000 + i*900)
		words = append(words, signal.Word{StartMS: start, EndMS: start + 800, Text: fmt.Sprintf("w%d", i), Confidence: 0.9})
	}
	writeJSON(t, filepath.Join(dir, signal.TranscriptFile), words)
	writeJSON(t, filepath.Join(dir, signal.MetaFile), signal.Meta{VODID: name, Title: name + " stream", DurationMS: 60000})
	return dir
}

func TestDiscoverVODs(t *testing.T) {
	root := t.TempDir()
	writeVODDir(t, root, "vod-b")
	writeVODDir(t, filepath.Join(root, "2025"), "vod-a")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := DiscoverVODs(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		filepath.Join(root, "2025", "vod-a"),
		filepath.Join(root, "vod-b"),
	}
	if len(dirs) != 2 || dirs[0] != want[0] || dirs[1] != want[1] {
		t.Errorf("DiscoverVODs = %v, want %v", dirs, want)
	}
}

func TestDiscoverVODs_MissingRoot(t *testing.T) {
	_, err := DiscoverVODs(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing library dir")
	}
}

func TestProcessVOD_WritesExport(t *testing.T) {
	root := t.TempDir()
	dir := writeVODDir(t, root, "vod-export")

	r, err := NewRunner(Config{LibraryDir: root}, nil, discardLogger())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sum, err := r.processVOD(context.Background(), dir)
	if err != nil {
		t.Fatalf("processVOD: %v", err)
	}
	if sum.VODID != "vod-export" {
		t.Errorf("expected vod id from meta, got %q", sum.VODID)
	}
	if sum.Segments != 1 {
		t.Fatalf("expected 1 segment, got %d", sum.Segments)
	}

	data, err := os.ReadFile(filepath.Join(dir, exportFile))
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}

	var doc export
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if doc.VODID != "vod-export" || doc.Profile != "default" {
		t.Errorf("unexpected export header: vod_id=%q profile=%q", doc.VODID, doc.Profile)
	}
	if len(doc.Segments) != 1 || doc.Segments[0].StartMS != 1000 || doc.Segments[0].EndMS != 36900 {
		t.Errorf("unexpected export segments: %+v", doc.Segments)
	}
	if doc.Stats.Windows != 3 {
		t.Errorf("expected 3 windows in stats, got %d", doc.Stats.Windows)
	}
}

func TestProcessVOD_DryRun(t *testing.T) {
	root := t.TempDir()
	dir := writeVODDir(t, root, "vod-dry")

	r, err := NewRunner(Config{LibraryDir: root, DryRun: true}, nil, discardLogger())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sum, err := r.processVOD(context.Background(), dir)
	if err != nil {
		t.Fatalf("processVOD: %v", err)
	}
	if sum.Segments != 1 {
		t.Errorf("dry run should still report segments, got %d", sum.Segments)
	}

	if _, err := os.Stat(filepath.Join(dir, exportFile)); !os.IsNotExist(err) {
		t.Error("dry run must not write the export file")
	}
}

func TestFormatBatchSummary(t *testing.T) {
	summaries := []VODSummary{
		{VODID: "v1", Segments: 3, Dropped: 1, TopScore: 0.92},
		{VODID: "v2", Segments: 0},
	}

	text := FormatBatchSummary(summaries)

	checks := []string{
		"2 VODs, 3 segments selected, 1 dropped",
		"v1: 3 segments (top 0.92), 1 dropped",
		"v2: 0 segments",
	}
	for _, check := range checks {
		if !strings.Contains(text, check) {
			t.Errorf("expected summary to contain %q, got %q", check, text)
		}
	}
}
