package updateinfo

import (
	"encoding/xml"
	"io"

	"github.com/cr-go/rpmrepo/errs"
)

// Write serializes info to updateinfo.xml. Like repomd.xml, updateinfo.xml
// is orders of magnitude smaller than primary/filelists/other (one
// <update> per advisory, not per package) so it is built and parsed
// whole-document rather than through the incremental xmlstream framework,
// per spec.md §4.I.
func Write(w io.Writer, info *UpdateInfo) error {
	doc := xmlUpdates{}
	for _, u := range info.Updates {
		doc.Updates = append(doc.Updates, toXMLUpdate(u))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errs.Wrap(errs.BadUpdateInfoXml, "marshaling updateinfo.xml", err)
	}
	_, err = w.Write(b)
	return err
}

// Parse reads a complete updateinfo.xml document from r.
func Parse(r io.Reader) (*UpdateInfo, error) {
	var doc xmlUpdates
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.BadUpdateInfoXml, "parsing updateinfo.xml", err)
	}
	info := &UpdateInfo{}
	for _, xu := range doc.Updates {
		info.Updates = append(info.Updates, fromXMLUpdate(xu))
	}
	return info, nil
}

type xmlUpdates struct {
	XMLName xml.Name    `xml:"updates"`
	Updates []xmlUpdate `xml:"update"`
}

type xmlUpdate struct {
	From        string          `xml:"from,attr"`
	Status      string          `xml:"status,attr"`
	Type        string          `xml:"type,attr"`
	Version     string          `xml:"version,attr"`
	ID          string          `xml:"id"`
	Title       string          `xml:"title"`
	Issued      *xmlDate        `xml:"issued,omitempty"`
	Updated     *xmlDate        `xml:"updated,omitempty"`
	Rights      string          `xml:"rights,omitempty"`
	Release     string          `xml:"release,omitempty"`
	PushCount   string          `xml:"pushcount,omitempty"`
	Severity    string          `xml:"severity,omitempty"`
	Summary     string          `xml:"summary,omitempty"`
	Description string          `xml:"description,omitempty"`
	Solution    string          `xml:"solution,omitempty"`
	References  *xmlRefList     `xml:"references,omitempty"`
	Pkglist     *xmlPkglist     `xml:"pkglist,omitempty"`
}

type xmlDate struct {
	Date string `xml:"date,attr"`
}

type xmlRefList struct {
	References []xmlReference `xml:"reference"`
}

type xmlReference struct {
	Href  string `xml:"href,attr"`
	ID    string `xml:"id,attr,omitempty"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr,omitempty"`
}

type xmlPkglist struct {
	Collections []xmlCollection `xml:"collection"`
}

type xmlCollection struct {
	Short    string             `xml:"short,attr,omitempty"`
	Name     string             `xml:"name,attr,omitempty"`
	Modules  []xmlModule        `xml:"module,omitempty"`
	Packages []xmlCollectionPkg `xml:"package"`
}

type xmlModule struct {
	Name    string `xml:"name,attr"`
	Stream  string `xml:"stream,attr"`
	Version string `xml:"version,attr"`
	Context string `xml:"context,attr"`
	Arch    string `xml:"arch,attr"`
}

type xmlCollectionPkg struct {
	Name             string      `xml:"name,attr"`
	Version          string      `xml:"version,attr"`
	Release          string      `xml:"release,attr"`
	Epoch            string      `xml:"epoch,attr"`
	Arch             string      `xml:"arch,attr"`
	Src              string      `xml:"src,attr,omitempty"`
	Filename         string      `xml:"filename"`
	Sum              *xmlSum     `xml:"sum,omitempty"`
	RebootSuggested  string      `xml:"reboot_suggested,omitempty"`
	ReloginSuggested string      `xml:"relogin_suggested,omitempty"`
	RestartSuggested string      `xml:"restart_suggested,omitempty"`
}

type xmlSum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// boolAttr renders spec.md's "True"-or-omitted boolean convention: the
// field is present with the literal text "True" only when true, and
// absent (not "False") otherwise.
func boolAttr(b bool) string {
	if b {
		return "True"
	}
	return ""
}

func parseBoolAttr(s string) bool {
	return s == "True"
}

func toXMLUpdate(u *UpdateRecord) xmlUpdate {
	xu := xmlUpdate{
		From:        u.FromStr,
		Status:      u.Status,
		Type:        u.Type,
		Version:     u.Version,
		ID:          u.ID,
		Title:       u.Title,
		Rights:      u.Rights,
		Release:     u.Release,
		PushCount:   u.PushCount,
		Severity:    u.Severity,
		Summary:     u.Summary,
		Description: u.Description,
		Solution:    u.Solution,
	}
	if u.Issued != "" {
		xu.Issued = &xmlDate{Date: u.Issued}
	}
	if u.Updated != "" {
		xu.Updated = &xmlDate{Date: u.Updated}
	}
	if len(u.References) > 0 {
		refs := &xmlRefList{}
		for _, r := range u.References {
			refs.References = append(refs.References, xmlReference{Href: r.Href, ID: r.ID, Type: r.Type, Title: r.Title})
		}
		xu.References = refs
	}
	if len(u.Collections) > 0 {
		pl := &xmlPkglist{}
		for _, c := range u.Collections {
			xc := xmlCollection{Short: c.Short, Name: c.Name}
			for _, m := range c.Modules {
				xc.Modules = append(xc.Modules, xmlModule{Name: m.Name, Stream: m.Stream, Version: m.Version, Context: m.Context, Arch: m.Arch})
			}
			for _, p := range c.Packages {
				xp := xmlCollectionPkg{
					Name: p.Name, Version: p.Version, Release: p.Release, Epoch: p.Epoch,
					Arch: p.Arch, Src: p.Src, Filename: p.Filename,
					RebootSuggested:  boolAttr(p.RebootSuggested),
					ReloginSuggested: boolAttr(p.ReloginSuggested),
					RestartSuggested: boolAttr(p.RestartSuggested),
				}
				if p.Checksum != "" {
					xp.Sum = &xmlSum{Type: p.ChecksumType, Value: p.Checksum}
				}
				xc.Packages = append(xc.Packages, xp)
			}
			pl.Collections = append(pl.Collections, xc)
		}
		xu.Pkglist = pl
	}
	return xu
}

func fromXMLUpdate(xu xmlUpdate) *UpdateRecord {
	u := &UpdateRecord{
		FromStr:     xu.From,
		Status:      xu.Status,
		Type:        xu.Type,
		Version:     xu.Version,
		ID:          xu.ID,
		Title:       xu.Title,
		Rights:      xu.Rights,
		Release:     xu.Release,
		PushCount:   xu.PushCount,
		Severity:    xu.Severity,
		Summary:     xu.Summary,
		Description: xu.Description,
		Solution:    xu.Solution,
	}
	if xu.Issued != nil {
		u.Issued = xu.Issued.Date
	}
	if xu.Updated != nil {
		u.Updated = xu.Updated.Date
	}
	if xu.References != nil {
		for _, r := range xu.References.References {
			u.References = append(u.References, UpdateReference{Href: r.Href, ID: r.ID, Type: r.Type, Title: r.Title})
		}
	}
	if xu.Pkglist != nil {
		for _, xc := range xu.Pkglist.Collections {
			c := UpdateCollection{Short: xc.Short, Name: xc.Name}
			for _, m := range xc.Modules {
				c.Modules = append(c.Modules, Module{Name: m.Name, Stream: m.Stream, Version: m.Version, Context: m.Context, Arch: m.Arch})
			}
			for _, xp := range xc.Packages {
				p := UpdateCollectionPackage{
					Name: xp.Name, Version: xp.Version, Release: xp.Release, Epoch: xp.Epoch,
					Arch: xp.Arch, Src: xp.Src, Filename: xp.Filename,
					RebootSuggested:  parseBoolAttr(xp.RebootSuggested),
					ReloginSuggested: parseBoolAttr(xp.ReloginSuggested),
					RestartSuggested: parseBoolAttr(xp.RestartSuggested),
				}
				if xp.Sum != nil {
					p.ChecksumType = xp.Sum.Type
					p.Checksum = xp.Sum.Value
				}
				c.Packages = append(c.Packages, p)
			}
			u.Collections = append(u.Collections, c)
		}
	}
	return u
}
