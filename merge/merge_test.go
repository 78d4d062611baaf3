package merge

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/cr-go/rpmrepo/filelists"
	"github.com/cr-go/rpmrepo/other"
	"github.com/cr-go/rpmrepo/primary"
	"github.com/cr-go/rpmrepo/rpmmd"
)

func buildDocs(t *testing.T, pkgs []*rpmmd.Package) (primaryBuf, filelistsBuf, otherBuf *bytes.Buffer) {
	t.Helper()
	primaryBuf, filelistsBuf, otherBuf = &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}

	pw, err := primary.Open(primaryBuf, len(pkgs))
	if err != nil {
		t.Fatal(err)
	}
	fw, err := filelists.Open(filelistsBuf, len(pkgs))
	if err != nil {
		t.Fatal(err)
	}
	ow, err := other.Open(otherBuf, len(pkgs))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pkgs {
		if err := pw.WritePackage(p); err != nil {
			t.Fatal(err)
		}
		if err := fw.WritePackage(p); err != nil {
			t.Fatal(err)
		}
		if err := ow.WritePackage(p); err != nil {
			t.Fatal(err)
		}
	}
	pw.Close()
	fw.Close()
	ow.Close()
	return
}

func mkPkg(id, name string) *rpmmd.Package {
	p := rpmmd.NewPackage()
	p.PkgID = id
	p.Name = name
	p.Version = "1.0"
	p.Release = "1"
	p.Arch = "x86_64"
	p.Files = []rpmmd.FileEntry{{Name: "/usr/bin/" + name, Type: rpmmd.FileRegular}}
	p.Changelogs = []rpmmd.ChangelogEntry{{Author: "dev", Date: 1, Text: name}}
	return p
}

func TestMergeInOrder(t *testing.T) {
	pkgs := []*rpmmd.Package{mkPkg("id1", "alpha"), mkPkg("id2", "beta"), mkPkg("id3", "gamma")}
	pb, fb, ob := buildDocs(t, pkgs)

	it := New(context.Background(), pb, fb, ob)
	defer it.Close()

	var got []*rpmmd.Package
	for {
		p, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, p)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 merged packages, got %d", len(got))
	}
	for i, p := range got {
		if p.PkgID != pkgs[i].PkgID {
			t.Errorf("pkg %d: expected id %s, got %s", i, pkgs[i].PkgID, p.PkgID)
		}
		if len(p.Files) != 1 || !p.Loaded.Filelists {
			t.Errorf("pkg %d: filelists data not merged: %+v", i, p)
		}
		if len(p.Changelogs) != 1 || !p.Loaded.Other {
			t.Errorf("pkg %d: other data not merged: %+v", i, p)
		}
		if !p.Loaded.Complete() {
			t.Errorf("pkg %d: expected Loaded.Complete()", i)
		}
	}
}

func TestMergeToleratesFilelistsReordering(t *testing.T) {
	pkgs := []*rpmmd.Package{mkPkg("id1", "alpha"), mkPkg("id2", "beta")}
	pb, _, ob := buildDocs(t, pkgs)

	// filelists written out of order relative to primary/other.
	reordered := []*rpmmd.Package{pkgs[1], pkgs[0]}
	fb := &bytes.Buffer{}
	fw, err := filelists.Open(fb, len(reordered))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range reordered {
		if err := fw.WritePackage(p); err != nil {
			t.Fatal(err)
		}
	}
	fw.Close()

	it := New(context.Background(), pb, fb, ob)
	defer it.Close()

	p1, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p1.PkgID != "id1" || len(p1.Files) != 1 {
		t.Errorf("expected id1 matched despite reordering, got %+v", p1)
	}

	p2, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p2.PkgID != "id2" || len(p2.Files) != 1 {
		t.Errorf("expected id2 matched despite reordering, got %+v", p2)
	}

	if _, err := it.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
