package scanner

import (
	"strings"
	"testing"
	"time"

	"github.com/vvka-141/pgstage/internal/files/filesystem"
)

func newTestScanner() (*Scanner, *filesystem.MemoryFileSystem) {
	fs := filesystem.NewMemoryFileSystem("/data")
	return NewScannerWithFS(fs), fs
}

func TestNewScannerWithFS_NilProvider(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for nil provider")
		}
		if !strings.Contains(r.(string), "fsProvider cannot be nil") {
			t.Errorf("unexpected panic message: %v", r)
		}
	}()
	NewScannerWithFS(nil)
}

func TestScanDirectory_SortedByName(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("orders.csv", "id\n1\n")
	fs.AddFile("b.csv", "id\n")
	fs.AddFile("a.csv", "id\n")

	files, err := s.ScanDirectory("/data", ".csv")
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}

	want := []string{"a.csv", "b.csv", "orders.csv"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i, name := range want {
		if files[i].Name != name {
			t.Errorf("files[%d] = %s, want %s", i, files[i].Name, name)
		}
	}
}

func TestScanDirectory_Metadata(t *testing.T) {
	s, fs := newTestScanner()
	mod := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fs.AddFileWithTime("Line_Items.CSV", "id\n1\n", mod)

	files, err := s.ScanDirectory("/data", ".csv")
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	f := files[0]
	if f.Table != "Line_Items" {
		t.Errorf("Table = %q, want Line_Items", f.Table)
	}
	if f.Path != "/data/Line_Items.CSV" {
		t.Errorf("Path = %q", f.Path)
	}
	if f.SizeBytes != 5 {
		t.Errorf("SizeBytes = %d, want 5", f.SizeBytes)
	}
	if !f.ModifiedAt.Equal(mod) {
		t.Errorf("ModifiedAt = %v, want %v", f.ModifiedAt, mod)
	}
}

func TestScanDirectory_FiltersExtensionAndSkipsNested(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("orders.csv", "")
	fs.AddFile("notes.txt", "")
	fs.AddFile("orders.csv.bak", "")
	fs.AddFile(".hidden.csv", "")
	fs.AddFile("archive/old.csv", "")

	files, err := s.ScanDirectory("/data", ".csv")
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	if len(files) != 1 || files[0].Name != "orders.csv" {
		t.Errorf("unexpected files: %+v", files)
	}
}

func TestScanDirectory_CustomExtension(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("orders.tsv", "")
	fs.AddFile("orders.csv", "")

	files, err := s.ScanDirectory("/data", ".tsv")
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	if len(files) != 1 || files[0].Table != "orders" {
		t.Errorf("unexpected files: %+v", files)
	}
}

func TestScanDirectory_EmptyDirectory(t *testing.T) {
	s, _ := newTestScanner()

	files, err := s.ScanDirectory("/data", ".csv")
	if err != nil {
		t.Fatalf("empty directory should not fail: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}
}

func TestScanDirectory_NonexistentPath(t *testing.T) {
	s, _ := newTestScanner()

	if _, err := s.ScanDirectory("/missing", ".csv"); err == nil {
		t.Error("expected error for nonexistent directory")
	}
}
