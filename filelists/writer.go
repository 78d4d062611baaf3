// Package filelists implements the filelists.xml document: the per-package
// complete file list, keyed by pkgid/name/arch rather than repeating the
// full package record (spec.md §4.F).
package filelists

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/cr-go/rpmrepo/rpmmd"
)

const xmlns = "http://linux.duke.edu/metadata/filelists"

// Writer incrementally serializes filelists.xml, mirroring primary.Writer's
// shape: one <package> element marshaled at a time.
type Writer struct {
	w io.Writer
}

// Open writes the XML declaration and opening <filelists> tag.
func Open(w io.Writer, packageCount int) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, err
	}
	_, err := fmt.Fprintf(w, "<filelists xmlns=%q packages=%q>\n", xmlns, strconv.Itoa(packageCount))
	if err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// WritePackage marshals one package's complete file list.
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

// Close writes the closing </filelists> tag.
func (wr *Writer) Close() error {
	_, err := io.WriteString(wr.w, "</filelists>\n")
	return err
}

type pkgElem struct {
	XMLName xml.Name  `xml:"package"`
	Pkgid   string    `xml:"pkgid,attr"`
	Name    string    `xml:"name,attr"`
	Arch    string    `xml:"arch,attr"`
	Version verElem   `xml:"version"`
	Files   []fileElem `xml:"file"`
}

type verElem struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type fileElem struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
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
	for _, f := range p.Files {
		fe := fileElem{Value: f.FullPath()}
		switch f.Type {
		case rpmmd.FileDir:
			fe.Type = "dir"
		case rpmmd.FileGhost:
			fe.Type = "ghost"
		}
		out.Files = append(out.Files, fe)
	}
	return out
}
