// Package primary implements the primary.xml document: the per-package
// name/version/summary/dependency/primary-files record, and the writer and
// incremental parser for it (spec.md §4.F).
package primary

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cr-go/rpmrepo/rpmmd"
)

const (
	xmlnsCommon = "http://linux.duke.edu/metadata/common"
	xmlnsRpm    = "http://linux.duke.edu/metadata/rpm"
)

// Writer incrementally serializes primary.xml: Open writes the header and
// opening <metadata> tag (with a placeholder-free packages count, since the
// count must be known up front per spec.md §4.F), WritePackage marshals one
// <package> element at a time via encoding/xml so memory use stays bounded
// by a single package rather than the whole repository, and Close writes
// the closing tag. Grounded directly on
// internal/generator/rpm/generator.go's generatePrimaryXML, which already
// builds primary.xml through xml.MarshalIndent over tagged structs; this
// generalizes that one-shot marshal into a streaming per-package writer.
type Writer struct {
	w       io.Writer
	written int
}

// Open writes the XML declaration and opening <metadata> tag, declaring
// packageCount packages up front.
func Open(w io.Writer, packageCount int) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, err
	}
	_, err := fmt.Fprintf(w, "<metadata xmlns=%q xmlns:rpm=%q packages=%q>\n", xmlnsCommon, xmlnsRpm, strconv.Itoa(packageCount))
	if err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// WritePackage marshals one package's primary.xml record.
func (wr *Writer) WritePackage(pkg *rpmmd.Package) error {
	elem := toPkgElem(pkg)
	b, err := xml.MarshalIndent(elem, "", "  ")
	if err != nil {
		return err
	}
	if _, err := wr.w.Write(b); err != nil {
		return err
	}
	if _, err := io.WriteString(wr.w, "\n"); err != nil {
		return err
	}
	wr.written++
	return nil
}

// Close writes the closing </metadata> tag.
func (wr *Writer) Close() error {
	_, err := io.WriteString(wr.w, "</metadata>\n")
	return err
}

// isPrimary decides whether a file path is interesting enough to appear in
// primary.xml's <format> file list. Deliberately preserves createrepo_c's
// historical quirk: "bin/" is matched anywhere in the path, not just a path
// segment, so e.g. "/opt/acme/robin/foo" also counts. spec.md's open
// question on this behavior is resolved as "preserve the quirk exactly" --
// see DESIGN.md.
func isPrimary(path string) bool {
	return IsPrimaryFile(path)
}

// IsPrimaryFile is isPrimary's exported form, for callers outside this
// package that need to apply the same file list filter when writing a
// primary.sqlite mirror alongside primary.xml.
func IsPrimaryFile(path string) bool {
	if strings.HasPrefix(path, "/etc/") {
		return true
	}
	if path == "/usr/lib/sendmail" {
		return true
	}
	return strings.Contains(path, "bin/")
}

type pkgElem struct {
	XMLName     xml.Name     `xml:"package"`
	Type        string       `xml:"type,attr"`
	Name        string       `xml:"name"`
	Arch        string       `xml:"arch"`
	Version     verElem      `xml:"version"`
	Checksum    checksumElem `xml:"checksum"`
	Summary     string       `xml:"summary"`
	Description string       `xml:"description,omitempty"`
	Packager    string       `xml:"packager,omitempty"`
	URL         string       `xml:"url,omitempty"`
	Time        timeElem     `xml:"time"`
	Size        sizeElem     `xml:"size"`
	Location    locationElem `xml:"location"`
	Format      formatElem   `xml:"format"`
}

type verElem struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type checksumElem struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type timeElem struct {
	File  int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

type sizeElem struct {
	Package   int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type locationElem struct {
	Href string `xml:"href,attr"`
	Base string `xml:"xml:base,attr,omitempty"`
}

type formatElem struct {
	License     string        `xml:"rpm:license,omitempty"`
	Vendor      string        `xml:"rpm:vendor,omitempty"`
	Group       string        `xml:"rpm:group,omitempty"`
	Buildhost   string        `xml:"rpm:buildhost,omitempty"`
	Sourcerpm   string        `xml:"rpm:sourcerpm,omitempty"`
	HeaderRange *rangeElem    `xml:"rpm:header-range,omitempty"`
	Provides    *depListElem  `xml:"rpm:provides,omitempty"`
	Requires    *depListElem  `xml:"rpm:requires,omitempty"`
	Conflicts   *depListElem  `xml:"rpm:conflicts,omitempty"`
	Obsoletes   *depListElem  `xml:"rpm:obsoletes,omitempty"`
	Suggests    *depListElem  `xml:"rpm:suggests,omitempty"`
	Enhances    *depListElem  `xml:"rpm:enhances,omitempty"`
	Recommends  *depListElem  `xml:"rpm:recommends,omitempty"`
	Supplements *depListElem  `xml:"rpm:supplements,omitempty"`
	Files       []primaryFile `xml:"file"`
}

type rangeElem struct {
	Start int64 `xml:"start,attr"`
	End   int64 `xml:"end,attr"`
}

type depListElem struct {
	Entries []depEntryElem `xml:"rpm:entry"`
}

type depEntryElem struct {
	Name  string `xml:"name,attr"`
	Flags string `xml:"flags,attr,omitempty"`
	Epoch string `xml:"epoch,attr,omitempty"`
	Ver   string `xml:"ver,attr,omitempty"`
	Rel   string `xml:"rel,attr,omitempty"`
	Pre   string `xml:"pre,attr,omitempty"`
}

type primaryFile struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

var depSetNames = []string{"requires", "provides", "conflicts", "obsoletes", "suggests", "enhances", "recommends", "supplements"}

func toDepListElem(deps []rpmmd.Dependency) *depListElem {
	if len(deps) == 0 {
		return nil
	}
	out := &depListElem{}
	for _, d := range deps {
		e := depEntryElem{Name: d.Name, Epoch: d.Epoch, Ver: d.Version, Rel: d.Release}
		if d.Flags != rpmmd.FlagNone {
			e.Flags = d.Flags.String()
		}
		if d.Pre {
			e.Pre = "1"
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

func toPkgElem(p *rpmmd.Package) pkgElem {
	epoch := p.Epoch
	if epoch == "" {
		epoch = "0"
	}

	var headerRange *rangeElem
	if p.HeaderEnd > 0 || p.HeaderStart > 0 {
		headerRange = &rangeElem{Start: p.HeaderStart, End: p.HeaderEnd}
	}

	var files []primaryFile
	for _, f := range p.Files {
		full := f.FullPath()
		if f.Type == rpmmd.FileDir {
			continue
		}
		if !isPrimary(full) {
			continue
		}
		pf := primaryFile{Value: full}
		if f.Type == rpmmd.FileGhost {
			pf.Type = "ghost"
		}
		files = append(files, pf)
	}

	return pkgElem{
		Type: "rpm",
		Name: p.Name,
		Arch: p.Arch,
		Version: verElem{
			Epoch: epoch,
			Ver:   p.Version,
			Rel:   p.Release,
		},
		Checksum: checksumElem{
			Type:  p.ChecksumType,
			Pkgid: "YES",
			Value: p.PkgID,
		},
		Summary:     p.Summary,
		Description: p.Description,
		Packager:    p.Packager,
		URL:         p.URL,
		Time: timeElem{
			File:  p.TimeFile,
			Build: p.TimeBuild,
		},
		Size: sizeElem{
			Package:   p.SizePackage,
			Installed: p.SizeInstalled,
			Archive:   p.SizeArchive,
		},
		Location: locationElem{Href: p.LocationHref, Base: p.LocationBase},
		Format: formatElem{
			License:     p.License,
			Vendor:      p.Vendor,
			Group:       p.Group,
			Buildhost:   p.BuildHost,
			Sourcerpm:   p.SourceRPM,
			HeaderRange: headerRange,
			Provides:    toDepListElem(p.Provides),
			Requires:    toDepListElem(p.Requires),
			Conflicts:   toDepListElem(p.Conflicts),
			Obsoletes:   toDepListElem(p.Obsoletes),
			Suggests:    toDepListElem(p.Suggests),
			Enhances:    toDepListElem(p.Enhances),
			Recommends:  toDepListElem(p.Recommends),
			Supplements: toDepListElem(p.Supplements),
			Files:       files,
		},
	}
}
