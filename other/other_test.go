package other

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
)

func TestWriteThenParseRoundTrips(t *testing.T) {
	pkg := rpmmd.NewPackage()
	pkg.PkgID = "abc123"
	pkg.Name = "bash"
	pkg.Epoch = "0"
	pkg.Version = "5.2.15"
	pkg.Release = "1.fc40"
	pkg.Arch = "x86_64"
	pkg.Changelogs = []rpmmd.ChangelogEntry{
		{Author: "Jane Dev <jane@example.com> - 5.2.0-1", Date: 1600000000, Text: "- initial build"},
		{Author: "Jane Dev <jane@example.com> - 5.2.15-1", Date: 1700000000, Text: "- rebase to 5.2.15"},
	}

	var buf bytes.Buffer
	w, err := Open(&buf, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WritePackage(pkg); err != nil {
		t.Fatalf("WritePackage: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got *rpmmd.Package
	if err := Parse(&buf, func(p *rpmmd.Package) error {
		got = p
		return nil
	}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got == nil {
		t.Fatal("expected one package")
	}
	if len(got.Changelogs) != 2 {
		t.Fatalf("expected 2 changelog entries, got %d", len(got.Changelogs))
	}
	if got.Changelogs[0].Date != 1600000000 || got.Changelogs[1].Date != 1700000000 {
		t.Errorf("expected chronological order preserved: %+v", got.Changelogs)
	}
	if !got.Loaded.Other {
		t.Error("expected Loaded.Other to be set")
	}
}

func TestEmptyPkgidIsFatal(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<otherdata xmlns="http://linux.duke.edu/metadata/other" packages="1">
<package pkgid="" name="bash" arch="x86_64">
  <version epoch="0" ver="5.2.15" rel="1.fc40"/>
</package>
</otherdata>`

	err := Parse(strings.NewReader(doc), func(p *rpmmd.Package) error { return nil })
	if kind, ok := errs.KindOf(err); !ok || kind != errs.BadOtherXml {
		t.Fatalf("expected BadOtherXml, got %v", err)
	}
}
