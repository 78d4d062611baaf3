package other

import (
	"encoding/xml"
	"io"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
	"github.com/cr-go/rpmrepo/xmlstream"
)

const (
	sRoot xmlstream.State = iota
	sPackage
	sVersion
	sChangelog
)

func table() *xmlstream.Table {
	return xmlstream.NewTable([]xmlstream.Transition{
		{From: sRoot, Element: "package", To: sPackage},
		{From: sPackage, Element: "version", To: sVersion},
		{From: sPackage, Element: "changelog", To: sChangelog, CaptureText: true},
	})
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseInt(s string) int64 {
	var v int64
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		return -v
	}
	return v
}

// OnPackage is invoked once per fully-parsed <package> element.
type OnPackage func(pkg *rpmmd.Package) error

// Parse streams other.xml from r, calling onPkg for each assembled package.
// Changelogs are accumulated in on-disk order and Package.Loaded.Other is
// set. createrepo_c's parser builds the list by prepending as it reads and
// reverses once on </package>; this parser instead appends in document
// order directly, which already is on-disk (chronological) order, so no
// ReverseChangelogs call is needed here -- see rpmmd.Package.ReverseChangelogs
// for the prepend-then-reverse convention kept for callers that build a
// Package by hand from a prepend-oriented source (e.g. RPM header tags,
// which list newest-changelog-first).
func Parse(r io.Reader, onPkg OnPackage) error {
	var pkg *rpmmd.Package
	var pendingAuthor string
	var pendingDate int64

	p := xmlstream.New(table(),
		func(to xmlstream.State, elem string, attrs []xml.Attr, skip func()) error {
			switch to {
			case sPackage:
				pkg = rpmmd.NewPackage()
				pkg.Loaded.Other = true
				pkg.PkgID = attr(attrs, "pkgid")
				pkg.Name = pkg.Intern(attr(attrs, "name"))
				pkg.Arch = pkg.Intern(attr(attrs, "arch"))
			case sVersion:
				pkg.Epoch = attr(attrs, "epoch")
				pkg.Version = attr(attrs, "ver")
				pkg.Release = attr(attrs, "rel")
			case sChangelog:
				pendingAuthor = attr(attrs, "author")
				pendingDate = parseInt(attr(attrs, "date"))
			}
			return nil
		},
		func(state xmlstream.State, elem string, text string) error {
			switch state {
			case sChangelog:
				pkg.Changelogs = append(pkg.Changelogs, rpmmd.ChangelogEntry{
					Author: pendingAuthor,
					Date:   pendingDate,
					Text:   text,
				})
			case sPackage:
				if pkg.PkgID == "" {
					return errs.New(errs.BadOtherXml, "package element completed with empty pkgid")
				}
				if onPkg != nil {
					if err := onPkg(pkg); err != nil {
						return err
					}
				}
				pkg = nil
			}
			return nil
		},
		func(w xmlstream.Warning) error { return nil },
	)

	if err := p.Run(r, sRoot); err != nil {
		return errs.Wrap(errs.BadOtherXml, "parsing other.xml", err)
	}
	return nil
}
