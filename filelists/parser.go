package filelists

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
	"github.com/cr-go/rpmrepo/xmlstream"
)

const (
	sRoot xmlstream.State = iota
	sPackage
	sVersion
	sFile
)

func table() *xmlstream.Table {
	return xmlstream.NewTable([]xmlstream.Transition{
		{From: sRoot, Element: "package", To: sPackage},
		{From: sPackage, Element: "version", To: sVersion},
		{From: sPackage, Element: "file", To: sFile, CaptureText: true},
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

// OnPackage is invoked once per fully-parsed <package> element.
type OnPackage func(pkg *rpmmd.Package) error

// Parse streams filelists.xml from r, calling onPkg for each assembled
// package. Each Package's Loaded.Filelists flag is set. Non-fatal parse
// conditions (UnknownVal) are swallowed; use ParseWithWarn to observe or
// escalate them.
func Parse(r io.Reader, onPkg OnPackage) error {
	return ParseWithWarn(r, onPkg, nil)
}

// ParseWithWarn is Parse with an explicit warning callback. A non-nil
// return from onWarn escalates the warning to a CallbackInterrupted error
// that aborts the parse, per spec.md §4.E/§7 scenario S2. An empty or
// missing pkgid on a completed <package> is always fatal (BadFilelistsXml),
// regardless of onWarn.
func ParseWithWarn(r io.Reader, onPkg OnPackage, onWarn xmlstream.WarnFunc) error {
	var pkg *rpmmd.Package
	var pendingFileType rpmmd.FileType
	var p *xmlstream.Parser

	p = xmlstream.New(table(),
		func(to xmlstream.State, elem string, attrs []xml.Attr, skip func()) error {
			switch to {
			case sPackage:
				pkg = rpmmd.NewPackage()
				pkg.Loaded.Filelists = true
				pkg.PkgID = attr(attrs, "pkgid")
				pkg.Name = pkg.Intern(attr(attrs, "name"))
				pkg.Arch = pkg.Intern(attr(attrs, "arch"))
			case sVersion:
				pkg.Epoch = attr(attrs, "epoch")
				pkg.Version = attr(attrs, "ver")
				pkg.Release = attr(attrs, "rel")
			case sFile:
				typ := attr(attrs, "type")
				pendingFileType = rpmmd.ParseFileType(typ)
				if typ != "" && typ != "dir" && typ != "ghost" {
					if err := p.Warn(xmlstream.Warning{Kind: xmlstream.UnknownVal, Path: "package/file", Message: typ}); err != nil {
						return err
					}
				}
			}
			return nil
		},
		func(state xmlstream.State, elem string, text string) error {
			switch state {
			case sFile:
				dir, base := splitFilePath(text)
				pkg.Files = append(pkg.Files, rpmmd.FileEntry{Path: dir, Name: base, Type: pendingFileType})
			case sPackage:
				if pkg.PkgID == "" {
					return errs.New(errs.BadFilelistsXml, "package element completed with empty pkgid")
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
		onWarn,
	)

	if err := p.Run(r, sRoot); err != nil {
		return errs.Wrap(errs.BadFilelistsXml, "parsing filelists.xml", err)
	}
	return nil
}

// splitFilePath divides a full on-disk path into the directory prefix
// (Path, trailing slash kept) and basename (Name), matching
// rpmmd.FileEntry.FullPath's plain concatenation and rpmread.readFiles'
// dirname/basename split.
func splitFilePath(full string) (dir, base string) {
	i := strings.LastIndexByte(full, '/')
	if i < 0 {
		return "", full
	}
	return full[:i+1], full[i+1:]
}
