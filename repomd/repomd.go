package repomd

import (
	"encoding/xml"
	"io"

	"github.com/cr-go/rpmrepo/errs"
)

const (
	xmlnsRepo = "http://linux.duke.edu/metadata/repo"
	xmlnsRpm  = "http://linux.duke.edu/metadata/rpm"
)

// Repomd is the full repomd.xml manifest: a revision marker plus one
// Record per metadata file. Unlike primary/filelists/other, repomd.xml is
// small enough to hold entirely in memory -- createrepo_c itself builds it
// with a DOM, not its SAX push-parser, and spec.md §4.H carries that
// distinction forward.
type Repomd struct {
	Revision string
	Records  []*Record
}

// New creates an empty manifest with the given revision marker (typically
// a Unix timestamp formatted as a decimal string, per spec.md §4.H).
func New(revision string) *Repomd {
	return &Repomd{Revision: revision}
}

// AddRecord appends r to the manifest.
func (rm *Repomd) AddRecord(r *Record) {
	rm.Records = append(rm.Records, r)
}

// RecordByType returns the first record of the given type, or nil.
func (rm *Repomd) RecordByType(typ string) *Record {
	for _, r := range rm.Records {
		if r.Type == typ {
			return r
		}
	}
	return nil
}

type xmlRepomd struct {
	XMLName  xml.Name    `xml:"repomd"`
	Xmlns    string      `xml:"xmlns,attr"`
	XmlnsRpm string      `xml:"xmlns:rpm,attr"`
	Revision string      `xml:"revision"`
	Data     []xmlRecord `xml:"data"`
}

type xmlRecord struct {
	Type            string       `xml:"type,attr"`
	Checksum        xmlChecksum  `xml:"checksum"`
	OpenChecksum    *xmlChecksum `xml:"open-checksum,omitempty"`
	Location        xmlLocation  `xml:"location"`
	Timestamp       int64        `xml:"timestamp"`
	Size            int64        `xml:"size"`
	OpenSize        int64        `xml:"open-size,omitempty"`
	DatabaseVersion int          `xml:"database_version,omitempty"`
}

type xmlChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlLocation struct {
	Href string `xml:"href,attr"`
}

// Write serializes the manifest in the fixed attribute/element order
// createrepo_c emits, with two-space indentation, grounded directly on
// internal/generator/rpm/generator.go's generateRepomdXML.
func (rm *Repomd) Write(w io.Writer) error {
	out := xmlRepomd{
		Xmlns:    xmlnsRepo,
		XmlnsRpm: xmlnsRpm,
		Revision: rm.Revision,
	}
	for _, r := range rm.Records {
		xr := xmlRecord{
			Type:      r.Type,
			Checksum:  xmlChecksum{Type: r.ChecksumType, Value: r.Checksum},
			Location:  xmlLocation{Href: r.LocationHref},
			Timestamp: r.Timestamp,
			Size:      r.Size,
			OpenSize:  r.OpenSize,
		}
		if r.OpenChecksum != "" {
			xr.OpenChecksum = &xmlChecksum{Type: r.OpenChecksumType, Value: r.OpenChecksum}
		}
		if r.DatabaseVersion > 0 {
			xr.DatabaseVersion = r.DatabaseVersion
		}
		out.Data = append(out.Data, xr)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return errs.Wrap(errs.XmlParse, "marshaling repomd.xml", err)
	}
	_, err = w.Write(b)
	return err
}

// Parse reads a complete repomd.xml document from r. repomd.xml is always
// small enough to parse via xml.Unmarshal rather than the streaming
// xmlstream framework used for primary/filelists/other.
func Parse(r io.Reader) (*Repomd, error) {
	var doc xmlRepomd
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.XmlParse, "parsing repomd.xml", err)
	}

	rm := &Repomd{Revision: doc.Revision}
	for _, xr := range doc.Data {
		rec := &Record{
			Type:            xr.Type,
			ChecksumType:    xr.Checksum.Type,
			Checksum:        xr.Checksum.Value,
			LocationHref:    xr.Location.Href,
			Timestamp:       xr.Timestamp,
			Size:            xr.Size,
			OpenSize:        xr.OpenSize,
			DatabaseVersion: xr.DatabaseVersion,
		}
		if xr.OpenChecksum != nil {
			rec.OpenChecksumType = xr.OpenChecksum.Type
			rec.OpenChecksum = xr.OpenChecksum.Value
		}
		rm.AddRecord(rec)
	}
	return rm, nil
}
