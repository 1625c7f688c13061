package store

import (
	"os"
	"path"
	"testing"
	"time"
)

func writeClip(t *testing.T, dir, name string, size int, age time.Duration) {
	t.Helper()
	p := path.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	at := time.Now().Add(-age)
	if err := os.Chtimes(p, at, at); err != nil {
		t.Fatal(err)
	}
}

func TestListFiltersAndSortsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	writeClip(t, dir, "replay_10-00-00_solid.mp4", 100, 3*time.Hour)
	writeClip(t, dir, "replay_12-00-00_pattern.mp4", 200, time.Hour)
	writeClip(t, dir, "feed.avi", 300, 2*time.Hour)
	writeClip(t, dir, "notes.txt", 50, time.Minute)

	clips, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}
	want := []string{"replay_12-00-00_pattern.mp4", "feed.avi", "replay_10-00-00_solid.mp4"}
	for i, name := range want {
		if clips[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, clips[i].Name)
		}
	}
	if clips[0].HumanSize == "" {
		t.Fatal("human size should be rendered")
	}
}

func TestUsageSumsClipBytes(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	writeClip(t, dir, "a.mp4", 100, time.Hour)
	writeClip(t, dir, "b.mp4", 150, time.Minute)

	total, human, err := s.Usage()
	if err != nil {
		t.Fatal(err)
	}
	if total != 250 {
		t.Fatalf("expected 250 bytes, got %d", total)
	}
	if human == "" {
		t.Fatal("human usage should be rendered")
	}
}

func TestPruneRemovesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	writeClip(t, dir, "oldest.mp4", 100, 3*time.Hour)
	writeClip(t, dir, "middle.mp4", 100, 2*time.Hour)
	writeClip(t, dir, "newest.mp4", 100, time.Hour)

	removed, err := s.Prune(150)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 || removed[0] != "oldest.mp4" || removed[1] != "middle.mp4" {
		t.Fatalf("unexpected prune order: %v", removed)
	}
	if _, err := os.Stat(path.Join(dir, "newest.mp4")); err != nil {
		t.Fatal("newest clip should survive pruning")
	}

	// Under budget is a no-op.
	removed, err = s.Prune(1000)
	if err != nil {
		t.Fatal(err)
	}
	if removed != nil {
		t.Fatalf("expected no removals, got %v", removed)
	}
}

func TestPathRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	writeClip(t, dir, "ok.mp4", 10, time.Minute)

	if _, err := s.Path("ok.mp4"); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{"", "../ok.mp4", "sub/ok.mp4", "ok.txt", "missing.mp4"} {
		if _, err := s.Path(bad); err == nil {
			t.Fatalf("expected an error for %q", bad)
		}
	}
}
