package repomd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cr-go/rpmrepo/checksum"
	"github.com/cr-go/rpmrepo/compress"
)

func TestFillRenameAndWrite(t *testing.T) {
	dir := t.TempDir()
	repodata := filepath.Join(dir, "repodata")
	if err := os.MkdirAll(repodata, 0755); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(repodata, "primary.xml.gz")
	stats := compress.NewStats(checksum.SHA256)
	w, err := compress.Open(src, compress.WriteMode, compress.Gzip, stats)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("<metadata/>")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	rec := NewRecord("primary")
	if err := rec.Fill(src, dir, checksum.SHA256); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if rec.Checksum == "" || rec.OpenChecksum == "" {
		t.Fatalf("expected both checksums set: %+v", rec)
	}
	if rec.OpenSize != int64(len("<metadata/>")) {
		t.Errorf("expected open-size %d, got %d", len("<metadata/>"), rec.OpenSize)
	}

	if err := rec.RenameFile(); err != nil {
		t.Fatalf("RenameFile: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(rec.LocationHref), rec.Checksum) {
		t.Errorf("expected renamed location to start with checksum, got %s", rec.LocationHref)
	}
	if _, err := os.Stat(filepath.Join(dir, rec.LocationHref)); err != nil {
		t.Errorf("expected renamed file on disk: %v", err)
	}

	rm := New("1700000000")
	rm.AddRecord(rec)

	var buf bytes.Buffer
	if err := rm.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Revision != "1700000000" {
		t.Errorf("expected revision round-trip, got %s", parsed.Revision)
	}
	got := parsed.RecordByType("primary")
	if got == nil || got.Checksum != rec.Checksum || got.LocationHref != rec.LocationHref {
		t.Errorf("expected record round-trip, got %+v", got)
	}
}

func TestCompressAndFill(t *testing.T) {
	dir := t.TempDir()
	repodata := filepath.Join(dir, "repodata")
	if err := os.MkdirAll(repodata, 0755); err != nil {
		t.Fatal(err)
	}

	rec, err := CompressAndFill("filelists", "filelists", strings.NewReader("<filelists/>"), repodata, compress.Gzip, checksum.SHA256, dir)
	if err != nil {
		t.Fatalf("CompressAndFill: %v", err)
	}
	if rec.Type != "filelists" {
		t.Errorf("expected type filelists, got %s", rec.Type)
	}
	if _, err := os.Stat(filepath.Join(dir, rec.LocationHref)); err != nil {
		t.Errorf("expected compressed+renamed file on disk: %v", err)
	}
}
