package locate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cr-go/rpmrepo/checksum"
	"github.com/cr-go/rpmrepo/repomd"
)

func writeRepo(t *testing.T, dir string) {
	t.Helper()
	repodata := filepath.Join(dir, "repodata")
	if err := os.MkdirAll(repodata, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repodata, "abc-primary.xml.gz"), []byte("primary"), 0644); err != nil {
		t.Fatal(err)
	}

	rm := repomd.New("1700000000")
	rec := repomd.NewRecord("primary")
	rec.Checksum = "abc"
	rec.ChecksumType = checksum.SHA256.String()
	rec.LocationHref = "repodata/abc-primary.xml.gz"
	rm.AddRecord(rec)

	var buf bytes.Buffer
	if err := rm.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repodata, "repomd.xml"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLocateLocal(t *testing.T) {
	dir := t.TempDir()
	writeRepo(t, dir)

	loc, err := Locate(dir, false)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Remote {
		t.Error("expected local repository to not be marked Remote")
	}
	primaryPath, ok := loc.Paths["primary"]
	if !ok {
		t.Fatal("expected a primary path")
	}
	data, err := os.ReadFile(primaryPath)
	if err != nil {
		t.Fatalf("reading resolved primary path: %v", err)
	}
	if string(data) != "primary" {
		t.Errorf("unexpected primary contents: %q", data)
	}
}

func TestRemoveMetadataClassicKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	repodata := filepath.Join(dir, "repodata")
	if err := os.MkdirAll(repodata, 0755); err != nil {
		t.Fatal(err)
	}

	names := []string{"old-primary.xml.gz", "mid-primary.xml.gz", "new-primary.xml.gz"}
	now := time.Now()
	for i, name := range names {
		p := filepath.Join(repodata, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		mtime := now.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	if err := RemoveMetadataClassic(repodata, 1); err != nil {
		t.Fatalf("RemoveMetadataClassic: %v", err)
	}

	if _, err := os.Stat(filepath.Join(repodata, "new-primary.xml.gz")); err != nil {
		t.Error("expected newest file to survive")
	}
	if _, err := os.Stat(filepath.Join(repodata, "old-primary.xml.gz")); !os.IsNotExist(err) {
		t.Error("expected oldest file to be removed")
	}
}
