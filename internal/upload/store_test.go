package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"), time.Hour)
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	return store
}

func TestSaveReaderAndRelease(t *testing.T) {
	store := newTestStore(t)
	f, err := store.SaveReader("sess-1", "notes.txt", "", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("SaveReader error: %v", err)
	}
	if f.Name() != "notes.txt" || f.Size() != int64(len("hello world")) {
		t.Fatalf("unexpected metadata: name=%s size=%d", f.Name(), f.Size())
	}
	if !strings.HasPrefix(f.MimeType(), "text/plain") {
		t.Fatalf("unexpected mime type %q", f.MimeType())
	}
	pending := f.Pending()
	if pending.MimeCategory != "TXT" || pending.Pages != 0 {
		t.Fatalf("unexpected pending snapshot: %#v", pending)
	}
	if store.Live() != 1 {
		t.Fatalf("expected one live file, got %d", store.Live())
	}

	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	rc.Close()

	f.Retain()
	f.Release()
	if _, err := os.Stat(f.Path()); err != nil {
		t.Fatalf("file removed while still referenced: %v", err)
	}
	f.Release()
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected file removed after last release, err=%v", err)
	}
	if store.Live() != 0 {
		t.Fatalf("expected no live files, got %d", store.Live())
	}
}

func TestSaveReaderSanitizesName(t *testing.T) {
	store := newTestStore(t)
	f, err := store.SaveReader("sess-2", "../../etc/report.PDF", "application/pdf", strings.NewReader("not really a pdf"))
	if err != nil {
		t.Fatalf("SaveReader error: %v", err)
	}
	defer f.Release()
	if f.Name() != "report.PDF" {
		t.Fatalf("expected base name, got %q", f.Name())
	}
	if !strings.HasPrefix(f.Path(), store.baseDir) {
		t.Fatalf("file escaped upload dir: %s", f.Path())
	}
	if f.Pending().Pages != 0 {
		t.Fatalf("expected unreadable pdf to report 0 pages")
	}
}

func TestMimeCategory(t *testing.T) {
	cases := []struct {
		name, mime, want string
	}{
		{"report.pdf", "application/pdf", "PDF"},
		{"report", "application/pdf", "PDF"},
		{"archive.tar.gz", "application/gzip", "GZ"},
		{"noext", "text/plain; charset=utf-8", "AIN"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := MimeCategory(tc.name, tc.mime); got != tc.want {
			t.Fatalf("MimeCategory(%q, %q) = %q, want %q", tc.name, tc.mime, got, tc.want)
		}
	}
}

func TestCleanupOrphans(t *testing.T) {
	store := newTestStore(t)
	live, err := store.SaveReader("sess-3", "live.pdf", "", strings.NewReader("live"))
	if err != nil {
		t.Fatalf("SaveReader error: %v", err)
	}
	defer live.Release()

	orphanDir := filepath.Join(store.baseDir, "old-session")
	if err := os.MkdirAll(orphanDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	orphan := filepath.Join(orphanDir, "orphan.pdf")
	if err := os.WriteFile(orphan, []byte("x"), 0o600); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	old := time.Now().Add(-3 * time.Hour)
	for _, p := range []string{orphan, live.Path()} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if err := store.cleanupOrphans(time.Now()); err != nil {
		t.Fatalf("cleanupOrphans error: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphan removed, err=%v", err)
	}
	if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
		t.Fatalf("expected empty orphan dir removed, err=%v", err)
	}
	if _, err := os.Stat(live.Path()); err != nil {
		t.Fatalf("live file must survive cleanup: %v", err)
	}
}
