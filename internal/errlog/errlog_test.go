package errlog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitAndLogf(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Logf("render failed for plan %d", 42)

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[ERROR] render failed for plan 42\n") {
		t.Errorf("log content = %q", data)
	}
	if Path() != filepath.Join(dir, logFileName) {
		t.Errorf("Path = %q", Path())
	}
}

func TestInit_SwitchesDirectory(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	if err := Init(first); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Init(second); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Logf("after switch")

	if data, _ := os.ReadFile(filepath.Join(first, logFileName)); strings.Contains(string(data), "after switch") {
		t.Error("message written to the old directory")
	}
	if data, _ := os.ReadFile(filepath.Join(second, logFileName)); !strings.Contains(string(data), "after switch") {
		t.Error("message missing from the new directory")
	}
}

func TestInit_EmptyDir(t *testing.T) {
	if err := Init(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	s, err := openSink(dir, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer s.close()

	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	s.write(now, "this message is long enough to push the file past the limit")

	archives, err := Archives(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 1 {
		t.Fatalf("archives = %v, want one", archives)
	}

	gf, err := os.Open(filepath.Join(dir, archives[0]))
	if err != nil {
		t.Fatal(err)
	}
	defer gf.Close()
	gr, err := gzip.NewReader(gf)
	if err != nil {
		t.Fatalf("invalid gzip archive: %v", err)
	}
	content, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if !strings.Contains(string(content), "push the file past") {
		t.Errorf("archive content = %q", content)
	}

	info, err := os.Stat(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("live log size after rotation = %d, want 0", info.Size())
	}

	s.write(now.Add(time.Second), "short")
	if s.size == 0 {
		t.Error("logger did not reopen after rotation")
	}
}

func TestPruneArchives(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < maxBackups+3; i++ {
		name := fmt.Sprintf("error-20260101-00000%d.000.log.gz", i)
		os.WriteFile(filepath.Join(dir, name), []byte("fake"), 0644)
	}
	os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644)

	pruneArchives(dir, maxBackups)

	archives, _ := Archives(dir)
	if len(archives) != maxBackups {
		t.Fatalf("archives after prune = %d, want %d", len(archives), maxBackups)
	}
	if archives[0] != "error-20260101-000003.000.log.gz" {
		t.Errorf("oldest kept = %q, want the three oldest removed", archives[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "unrelated.txt")); err != nil {
		t.Error("unrelated file removed")
	}
}

func TestRecentLines(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	for i := 1; i <= 5; i++ {
		Logf("line %d", i)
	}
	lines, err := RecentLines(3)
	if err != nil {
		t.Fatalf("RecentLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, want := range []string{"line 3", "line 4", "line 5"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("lines[%d] = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestLogfBeforeInit(t *testing.T) {
	Close()
	Logf("this should be silently ignored")
	lines, err := RecentLines(10)
	if err != nil || len(lines) != 0 {
		t.Errorf("RecentLines = %v, %v", lines, err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	Close()
	Close()
}
