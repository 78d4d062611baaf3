package primary

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
	sName
	sArch
	sVersion
	sChecksum
	sSummary
	sDescription
	sPackager
	sURL
	sTime
	sSize
	sLocation
	sFormat
	sLicense
	sVendor
	sGroup
	sBuildhost
	sSourcerpm
	sHeaderRange
	sProvides
	sRequires
	sConflicts
	sObsoletes
	sSuggests
	sEnhances
	sRecommends
	sSupplements
	sProvidesEntry
	sRequiresEntry
	sConflictsEntry
	sObsoletesEntry
	sSuggestsEntry
	sEnhancesEntry
	sRecommendsEntry
	sSupplementsEntry
	sFile
)

func table() *xmlstream.Table {
	return xmlstream.NewTable([]xmlstream.Transition{
		{From: sRoot, Element: "package", To: sPackage},
		{From: sPackage, Element: "name", To: sName, CaptureText: true},
		{From: sPackage, Element: "arch", To: sArch, CaptureText: true},
		{From: sPackage, Element: "version", To: sVersion},
		{From: sPackage, Element: "checksum", To: sChecksum, CaptureText: true},
		{From: sPackage, Element: "summary", To: sSummary, CaptureText: true},
		{From: sPackage, Element: "description", To: sDescription, CaptureText: true},
		{From: sPackage, Element: "packager", To: sPackager, CaptureText: true},
		{From: sPackage, Element: "url", To: sURL, CaptureText: true},
		{From: sPackage, Element: "time", To: sTime},
		{From: sPackage, Element: "size", To: sSize},
		{From: sPackage, Element: "location", To: sLocation},
		{From: sPackage, Element: "format", To: sFormat},
		// rpm: is a namespace prefix, not part of the local name --
		// encoding/xml strips it before Token() ever sees it (xmlstream.go
		// keys its lookup on t.Name.Local), so these match on the bare
		// element name, disambiguated by From state where the same name
		// recurs (e.g. "entry" under each of the eight dependency sets).
		{From: sFormat, Element: "license", To: sLicense, CaptureText: true},
		{From: sFormat, Element: "vendor", To: sVendor, CaptureText: true},
		{From: sFormat, Element: "group", To: sGroup, CaptureText: true},
		{From: sFormat, Element: "buildhost", To: sBuildhost, CaptureText: true},
		{From: sFormat, Element: "sourcerpm", To: sSourcerpm, CaptureText: true},
		{From: sFormat, Element: "header-range", To: sHeaderRange},
		{From: sFormat, Element: "provides", To: sProvides},
		{From: sFormat, Element: "requires", To: sRequires},
		{From: sFormat, Element: "conflicts", To: sConflicts},
		{From: sFormat, Element: "obsoletes", To: sObsoletes},
		{From: sFormat, Element: "suggests", To: sSuggests},
		{From: sFormat, Element: "enhances", To: sEnhances},
		{From: sFormat, Element: "recommends", To: sRecommends},
		{From: sFormat, Element: "supplements", To: sSupplements},
		{From: sFormat, Element: "file", To: sFile, CaptureText: true},
		{From: sProvides, Element: "entry", To: sProvidesEntry},
		{From: sRequires, Element: "entry", To: sRequiresEntry},
		{From: sConflicts, Element: "entry", To: sConflictsEntry},
		{From: sObsoletes, Element: "entry", To: sObsoletesEntry},
		{From: sSuggests, Element: "entry", To: sSuggestsEntry},
		{From: sEnhances, Element: "entry", To: sEnhancesEntry},
		{From: sRecommends, Element: "entry", To: sRecommendsEntry},
		{From: sSupplements, Element: "entry", To: sSupplementsEntry},
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

// OnPackage is invoked once per fully-parsed <package> element. A non-nil
// return aborts the parse.
type OnPackage func(pkg *rpmmd.Package) error

// Parse streams primary.xml from r, calling onPkg for each assembled
// package. Each Package's Loaded.Primary flag is set and PkgID/ChecksumType
// are populated from the <checksum> element. Deliberately parses a
// <package> element to completion before invoking onPkg rather than
// offering an early-skip hook mid-element (see DESIGN.md): createrepo_c's
// new-pkg callback can reject a package before its subtree is read, an
// optimization this parser trades away for a single, simpler callback.
// Non-fatal parse conditions (UnknownVal/MissingAttr) are swallowed; use
// ParseWithWarn to observe or escalate them.
func Parse(r io.Reader, onPkg OnPackage) error {
	return ParseWithWarn(r, onPkg, nil)
}

// ParseWithWarn is Parse with an explicit warning callback. A non-nil
// return from onWarn escalates the warning to a CallbackInterrupted error
// that aborts the parse, per spec.md §4.E/§7 scenario S3.
func ParseWithWarn(r io.Reader, onPkg OnPackage, onWarn xmlstream.WarnFunc) error {
	var pkg *rpmmd.Package
	var pending []rpmmd.Dependency
	var pendingFileType rpmmd.FileType
	var p *xmlstream.Parser

	p = xmlstream.New(table(),
		func(to xmlstream.State, elem string, attrs []xml.Attr, skip func()) error {
			switch to {
			case sPackage:
				pkg = rpmmd.NewPackage()
				pkg.Loaded.Primary = true
			case sVersion:
				pkg.Epoch = attr(attrs, "epoch")
				pkg.Version = attr(attrs, "ver")
				pkg.Release = attr(attrs, "rel")
			case sChecksum:
				pkg.ChecksumType = attr(attrs, "type")
				if pkg.ChecksumType == "" {
					if err := p.Warn(xmlstream.Warning{Kind: xmlstream.MissingAttr, Path: "package/checksum", Message: "type"}); err != nil {
						return err
					}
				}
			case sTime:
				pkg.TimeFile = parseInt(attr(attrs, "file"))
				pkg.TimeBuild = parseInt(attr(attrs, "build"))
			case sSize:
				pkg.SizePackage = parseInt(attr(attrs, "package"))
				pkg.SizeInstalled = parseInt(attr(attrs, "installed"))
				pkg.SizeArchive = parseInt(attr(attrs, "archive"))
			case sLocation:
				pkg.LocationHref = attr(attrs, "href")
				pkg.LocationBase = attr(attrs, "xml:base")
			case sHeaderRange:
				pkg.HeaderStart = parseInt(attr(attrs, "start"))
				pkg.HeaderEnd = parseInt(attr(attrs, "end"))
			case sProvides, sRequires, sConflicts, sObsoletes, sSuggests, sEnhances, sRecommends, sSupplements:
				pending = nil
			case sProvidesEntry, sRequiresEntry, sConflictsEntry, sObsoletesEntry,
				sSuggestsEntry, sEnhancesEntry, sRecommendsEntry, sSupplementsEntry:
				d := rpmmd.Dependency{
					Name:    pkg.Intern(attr(attrs, "name")),
					Flags:   rpmmd.ParseDependencyFlag(attr(attrs, "flags")),
					Epoch:   attr(attrs, "epoch"),
					Version: attr(attrs, "ver"),
					Release: attr(attrs, "rel"),
					Pre:     attr(attrs, "pre") == "1",
				}
				pending = append(pending, d)
			case sFile:
				typ := attr(attrs, "type")
				pendingFileType = rpmmd.ParseFileType(typ)
				if typ != "" && typ != "dir" && typ != "ghost" {
					if err := p.Warn(xmlstream.Warning{Kind: xmlstream.UnknownVal, Path: "package/format/file", Message: typ}); err != nil {
						return err
					}
				}
			}
			return nil
		},
		func(state xmlstream.State, elem string, text string) error {
			switch state {
			case sName:
				pkg.Name = pkg.Intern(text)
			case sArch:
				pkg.Arch = pkg.Intern(text)
			case sChecksum:
				pkg.PkgID = text
			case sSummary:
				pkg.Summary = text
			case sDescription:
				pkg.Description = text
			case sPackager:
				pkg.Packager = text
			case sURL:
				pkg.URL = text
			case sLicense:
				pkg.License = text
			case sVendor:
				pkg.Vendor = text
			case sGroup:
				pkg.Group = text
			case sBuildhost:
				pkg.BuildHost = text
			case sSourcerpm:
				pkg.SourceRPM = text
			case sFile:
				dir, base := splitFilePath(text)
				pkg.Files = append(pkg.Files, rpmmd.FileEntry{Path: dir, Name: base, Type: pendingFileType})
			case sProvides, sRequires, sConflicts, sObsoletes, sSuggests, sEnhances, sRecommends, sSupplements:
				name := depSetNameForState(state)
				pkg.SetDependencySet(name, pending)
				pending = nil
			case sPackage:
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
		return errs.Wrap(errs.BadPrimaryXml, "parsing primary.xml", err)
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

func depSetNameForState(s xmlstream.State) string {
	switch s {
	case sProvides:
		return "provides"
	case sRequires:
		return "requires"
	case sConflicts:
		return "conflicts"
	case sObsoletes:
		return "obsoletes"
	case sSuggests:
		return "suggests"
	case sEnhances:
		return "enhances"
	case sRecommends:
		return "recommends"
	case sSupplements:
		return "supplements"
	default:
		return ""
	}
}

func parseInt(s string) int64 {
	var v int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return v
		}
		v = v*10 + int64(c-'0')
	}
	return v
}
