package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	f := NewFileOps()
	out, err := f.List(dir, ".")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, "sub/") {
		t.Errorf("List output = %q", out)
	}

	if _, err := f.List(dir, "missing"); err == nil {
		t.Error("List of missing dir succeeded")
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	f := NewFileOps()

	if err := f.Write(dir, "nested/out.txt", "payload"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := f.Read(dir, "nested/out.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "payload" {
		t.Errorf("Read = %q", got)
	}

	if _, err := f.Read(dir, "missing.txt"); err == nil {
		t.Error("Read of missing file succeeded")
	}
}

func TestReadTruncatesLargeFiles(t *testing.T) {
	dir := t.TempDir()
	f := NewFileOps()
	big := strings.Repeat("x", maxReadBytes+100)
	if err := f.Write(dir, "big.txt", big); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := f.Read(dir, "big.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.HasSuffix(got, "[... truncated ...]") {
		t.Error("large file not truncated")
	}
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	f := NewFileOps()
	if err := f.Write(dir, "notes.txt", "alpha\nthe NEEDLE is here\nomega"); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(dir, "other.txt", "nothing relevant"); err != nil {
		t.Fatal(err)
	}

	out, err := f.Search(dir, "needle", ".")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.Contains(out, "notes.txt:2:") {
		t.Errorf("Search output = %q", out)
	}

	out, err = f.Search(dir, "unfindable-token", ".")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.Contains(out, "No matches") {
		t.Errorf("Search output = %q", out)
	}
}

func TestFindSmart(t *testing.T) {
	dir := t.TempDir()
	f := NewFileOps()
	for _, name := range []string{"report_final.docx", "readme.md", "budget.xlsx"} {
		if err := f.Write(dir, name, "x"); err != nil {
			t.Fatal(err)
		}
	}

	out, err := f.FindSmart(dir, "report", ".")
	if err != nil {
		t.Fatalf("FindSmart: %v", err)
	}
	if !strings.Contains(out, "report_final.docx") {
		t.Errorf("FindSmart output = %q", out)
	}

	out, err = f.FindSmart(dir, "zzzzzz", ".")
	if err != nil {
		t.Fatalf("FindSmart: %v", err)
	}
	if !strings.Contains(out, "No files matching") {
		t.Errorf("FindSmart output = %q", out)
	}
}

func TestSubsequenceScore(t *testing.T) {
	// Exact substring beats a scattered match.
	tight, ok := subsequenceScore("report.txt", "rep")
	if !ok {
		t.Fatal("tight match not found")
	}
	loose, ok := subsequenceScore("r_e_x_p.txt", "rep")
	if !ok {
		t.Fatal("loose match not found")
	}
	if tight >= loose {
		t.Errorf("tight score %d not better than loose %d", tight, loose)
	}

	if _, ok := subsequenceScore("abc", "abd"); ok {
		t.Error("non-subsequence matched")
	}
}

func TestResolveAnchorsRelativePaths(t *testing.T) {
	f := NewFileOps()
	if got := f.resolve("/work", "sub/a.txt"); got != filepath.Join("/work", "sub", "a.txt") {
		t.Errorf("resolve = %q", got)
	}
	if got := f.resolve("/work", "/abs/b.txt"); got != filepath.Clean("/abs/b.txt") {
		t.Errorf("resolve abs = %q", got)
	}
	if got := f.resolve("/work", ""); got != "/work" {
		t.Errorf("resolve empty = %q", got)
	}
}
