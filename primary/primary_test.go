package primary

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
	"github.com/cr-go/rpmrepo/xmlstream"
)

func samplePackage() *rpmmd.Package {
	p := rpmmd.NewPackage()
	p.PkgID = "abc123"
	p.ChecksumType = "sha256"
	p.Name = "bash"
	p.Epoch = "0"
	p.Version = "5.2.15"
	p.Release = "1.fc40"
	p.Arch = "x86_64"
	p.Summary = "The GNU Bourne Again shell"
	p.Description = "Bash is the shell."
	p.URL = "https://www.gnu.org/software/bash/"
	p.Packager = "Fedora Project"
	p.License = "GPLv3+"
	p.Vendor = "Fedora Project"
	p.Group = "System Environment/Shells"
	p.BuildHost = "buildvm.fedoraproject.org"
	p.SizePackage = 1234
	p.SizeInstalled = 5678
	p.SizeArchive = 9012
	p.TimeFile = 1700000000
	p.TimeBuild = 1699999999
	p.SourceRPM = "bash-5.2.15-1.fc40.src.rpm"
	p.HeaderStart = 4504
	p.HeaderEnd = 125616
	p.LocationHref = "Packages/b/bash-5.2.15-1.fc40.x86_64.rpm"
	p.Requires = []rpmmd.Dependency{{Name: "libc.so.6", Flags: rpmmd.GE, Version: "2.30"}}
	p.Provides = []rpmmd.Dependency{{Name: "bash", Flags: rpmmd.EQ, Version: "5.2.15", Release: "1.fc40"}}
	p.Files = []rpmmd.FileEntry{
		{Path: "", Name: "/usr/bin/bash", Type: rpmmd.FileRegular},
		{Path: "", Name: "/etc/skel/.bashrc", Type: rpmmd.FileRegular},
		{Path: "", Name: "/usr/share/doc/bash/README", Type: rpmmd.FileRegular},
	}
	return p
}

func TestWriteThenParseRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w, err := Open(&buf, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pkg := samplePackage()
	if err := w.WritePackage(pkg); err != nil {
		t.Fatalf("WritePackage: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got *rpmmd.Package
	err = Parse(&buf, func(p *rpmmd.Package) error {
		got = p
		return nil
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got == nil {
		t.Fatal("expected one package, got none")
	}
	if got.Name != "bash" || got.Version != "5.2.15" || got.Release != "1.fc40" {
		t.Errorf("NEVR mismatch: %+v", got)
	}
	if got.PkgID != "abc123" || got.ChecksumType != "sha256" {
		t.Errorf("checksum mismatch: %+v", got)
	}
	if len(got.Requires) != 1 || got.Requires[0].Name != "libc.so.6" || got.Requires[0].Flags != rpmmd.GE {
		t.Errorf("requires mismatch: %+v", got.Requires)
	}
	if len(got.Provides) != 1 || got.Provides[0].Name != "bash" {
		t.Errorf("provides mismatch: %+v", got.Provides)
	}
	if got.License != "GPLv3+" || got.Vendor != "Fedora Project" || got.Group != "System Environment/Shells" {
		t.Errorf("rpm:-namespaced fields mismatch: %+v", got)
	}
	if got.BuildHost != "buildvm.fedoraproject.org" || got.SourceRPM != "bash-5.2.15-1.fc40.src.rpm" {
		t.Errorf("buildhost/sourcerpm mismatch: %+v", got)
	}
	if got.HeaderStart != 4504 || got.HeaderEnd != 125616 {
		t.Errorf("header-range mismatch: %+v", got)
	}
	if !got.Loaded.Primary {
		t.Error("expected Loaded.Primary to be set")
	}
}

func TestMissingChecksumTypeEmitsMissingAttrWarning(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="1">
<package type="rpm">
  <name>bash</name>
  <arch>x86_64</arch>
  <version epoch="0" ver="5.2.15" rel="1.fc40"/>
  <checksum pkgid="YES">abc123</checksum>
  <summary>shell</summary>
  <description>shell</description>
  <packager></packager>
  <url></url>
  <time file="1" build="1"/>
  <size package="1" installed="1" archive="1"/>
  <location href="x.rpm"/>
  <format></format>
</package>
</metadata>`

	var warnings []xmlstream.Warning
	err := ParseWithWarn(strings.NewReader(doc), func(p *rpmmd.Package) error { return nil },
		func(w xmlstream.Warning) error {
			warnings = append(warnings, w)
			return nil
		})
	if err != nil {
		t.Fatalf("ParseWithWarn: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != xmlstream.MissingAttr {
		t.Fatalf("expected exactly one MissingAttr warning, got %+v", warnings)
	}
}

func TestUnknownFileTypeEmitsUnknownValWarningAndAborts(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="1">
<package type="rpm">
  <name>bash</name>
  <arch>x86_64</arch>
  <version epoch="0" ver="5.2.15" rel="1.fc40"/>
  <checksum type="sha256" pkgid="YES">abc123</checksum>
  <summary>shell</summary>
  <description>shell</description>
  <packager></packager>
  <url></url>
  <time file="1" build="1"/>
  <size package="1" installed="1" archive="1"/>
  <location href="x.rpm"/>
  <format>
    <file type="foo">/usr/bin/bash</file>
  </format>
</package>
</metadata>`

	err := ParseWithWarn(strings.NewReader(doc), func(p *rpmmd.Package) error { return nil },
		func(w xmlstream.Warning) error {
			if w.Kind != xmlstream.UnknownVal || !strings.Contains(w.Message, "foo") {
				t.Errorf("unexpected warning: %+v", w)
			}
			return errors.New("escalate")
		})
	if !errors.Is(err, errs.New(errs.CallbackInterrupted, "")) {
		t.Errorf("expected a wrapped CallbackInterrupted, got %v", err)
	}
}

func TestIsPrimaryPreservesSubstringQuirk(t *testing.T) {
	cases := map[string]bool{
		"/usr/bin/bash":              true,
		"/usr/sbin/useradd":          true,
		"/opt/acme/robin/foo":        true, // "bin/" matched mid-path, the quirk
		"/etc/passwd":                true,
		"/usr/lib/sendmail":          true,
		"/usr/share/doc/bash/README": false,
	}
	for path, want := range cases {
		if got := isPrimary(path); got != want {
			t.Errorf("isPrimary(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestOnlyPrimaryFilesAreWritten(t *testing.T) {
	var buf bytes.Buffer
	w, _ := Open(&buf, 1)
	w.WritePackage(samplePackage())
	w.Close()

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("/usr/bin/bash")) {
		t.Error("expected /usr/bin/bash in output")
	}
	if !bytes.Contains([]byte(out), []byte("/etc/skel/.bashrc")) {
		t.Error("expected /etc/skel/.bashrc in output")
	}
	if bytes.Contains([]byte(out), []byte("README")) {
		t.Error("non-primary file should have been filtered out")
	}
}
