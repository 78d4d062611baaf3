// Package other implements the other.xml document: the per-package
// changelog history, keyed by pkgid/name/arch like filelists.xml (spec.md
// §4.F).
package other

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/cr-go/rpmrepo/rpmmd"
)

const xmlns = "http://linux.duke.edu/metadata/other"

// Writer incrementally serializes other.xml.
type Writer struct {
	w io.Writer
}

// Open writes the XML declaration and opening <otherdata> tag.
func Open(w io.Writer, packageCount int) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, err
	}
	_, err := fmt.Fprintf(w, "<otherdata xmlns=%q packages=%q>\n", xmlns, strconv.Itoa(packageCount))
	if err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// WritePackage marshals one package's changelog history, oldest first.
func (wr *Writer) WritePackage(pkg *rpmmd.Package) error {
	elem := toPkgElem(pkg)
	b, err := xml.MarshalIndent(elem, "", "  ")
	if err != nil {
		return err
	}
	if _, err := wr.w.Write(b); err != nil {
		return err
	}
	_, err = io.WriteString(wr.w, "\n")
	return err
}

// Close writes the closing </otherdata> tag.
func (wr *Writer) Close() error {
	_, err := io.WriteString(wr.w, "</otherdata>\n")
	return err
}

type pkgElem struct {
	XMLName    xml.Name        `xml:"package"`
	Pkgid      string          `xml:"pkgid,attr"`
	Name       string          `xml:"name,attr"`
	Arch       string          `xml:"arch,attr"`
	Version    verElem         `xml:"version"`
	Changelogs []changelogElem `xml:"changelog"`
}

type verElem struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type changelogElem struct {
	Author string `xml:"author,attr"`
	Date   int64  `xml:"date,attr"`
	Text   string `xml:",chardata"`
}

func toPkgElem(p *rpmmd.Package) pkgElem {
	epoch := p.Epoch
	if epoch == "" {
		epoch = "0"
	}
	out := pkgElem{
		Pkgid: p.PkgID,
		Name:  p.Name,
		Arch:  p.Arch,
		Version: verElem{
			Epoch: epoch,
			Ver:   p.Version,
			Rel:   p.Release,
		},
	}
	for _, c := range p.Changelogs {
		out.Changelogs = append(out.Changelogs, changelogElem{Author: c.Author, Date: c.Date, Text: c.Text})
	}
	return out
}
