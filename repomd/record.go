// Package repomd implements the repomd.xml manifest: the small, fully
// in-memory document listing every other metadata file's location,
// checksums, and sizes, plus the RepomdRecord lifecycle
// (Fill/RenameFile/CompressAndFill) spec.md §4.H describes for producing
// one (spec.md §4.H, §4.I).
package repomd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cr-go/rpmrepo/checksum"
	"github.com/cr-go/rpmrepo/compress"
	"github.com/cr-go/rpmrepo/errs"
)

// Record is one <data type="..."> entry: the checksum/open-checksum,
// location, timestamp and size pair for one metadata file.
type Record struct {
	Type             string
	ChecksumType     string
	Checksum         string
	OpenChecksumType string
	OpenChecksum     string
	LocationHref     string
	Timestamp        int64
	Size             int64
	OpenSize         int64
	DatabaseVersion  int // nonzero only for *_db records

	// path is the absolute on-disk path backing this record; not
	// serialized, used only by Fill/RenameFile/CompressAndFill.
	path string
}

// NewRecord creates an empty record of the given type ("primary",
// "filelists", "other", "primary_db", "filelists_db", "other_db",
// "updateinfo", ...).
func NewRecord(typ string) *Record {
	return &Record{Type: typ}
}

// Fill computes the record's checksum (over the file as stored on disk,
// normally compressed), open-checksum (over the decompressed content),
// size, open-size and timestamp by reading path, and sets LocationHref
// relative to repoBaseDir. Mirrors createrepo_c's cr_repomd_record_fill.
func (r *Record) Fill(path, repoBaseDir string, alg checksum.Algorithm) error {
	info, err := os.Stat(path)
	if err != nil {
		return errs.Wrap(errs.Stat, "stat repomd record file", err).WithPath(path)
	}

	sum, err := checksum.File(path, alg)
	if err != nil {
		return err
	}

	kind := compress.KindFromSuffix(path)
	raw, err := compress.GetContents(path, kind)
	if err != nil {
		return err
	}
	openSum, err := checksum.Bytes(raw, alg)
	if err != nil {
		return err
	}

	href, err := filepath.Rel(repoBaseDir, path)
	if err != nil {
		href = path
	}

	r.path = path
	r.ChecksumType = alg.String()
	r.Checksum = sum
	r.OpenChecksumType = alg.String()
	r.OpenChecksum = openSum
	r.LocationHref = filepath.ToSlash(href)
	r.Timestamp = info.ModTime().Unix()
	r.Size = info.Size()
	r.OpenSize = int64(len(raw))
	return nil
}

// RenameFile renames the record's backing file to
// "<dir>/<checksum>-<basename>", the canonical createrepo_c naming
// convention, and updates LocationHref to match. Fill must have been
// called first.
func (r *Record) RenameFile() error {
	if r.path == "" {
		return errs.New(errs.BadArg, "RenameFile called before Fill")
	}
	dir := filepath.Dir(r.path)
	base := filepath.Base(r.path)
	newBase := fmt.Sprintf("%s-%s", r.Checksum, base)
	newPath := filepath.Join(dir, newBase)

	if err := os.Rename(r.path, newPath); err != nil {
		return errs.Wrap(errs.Io, "renaming repomd record file", err).WithPath(r.path)
	}

	oldHrefDir := filepath.Dir(r.LocationHref)
	r.LocationHref = filepath.ToSlash(filepath.Join(oldHrefDir, newBase))
	r.path = newPath
	return nil
}

// CompressAndFill compresses the contents of src into destDir using kind,
// naming the output "<docType>.xml<suffix>", then Fills and RenameFiles
// the resulting record in one step -- the common path for producing a
// fresh metadata file during repository generation.
func CompressAndFill(typ, docType string, src io.Reader, destDir string, kind compress.Kind, alg checksum.Algorithm, repoBaseDir string) (*Record, error) {
	destPath := filepath.Join(destDir, docType+".xml"+kind.Suffix())

	stats := compress.NewStats(alg)
	w, err := compress.Open(destPath, compress.WriteMode, kind, stats)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return nil, errs.Wrap(errs.Io, "compressing metadata document", err).WithPath(destPath)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	r := NewRecord(typ)
	if err := r.Fill(destPath, repoBaseDir, alg); err != nil {
		return nil, err
	}
	if err := r.RenameFile(); err != nil {
		return nil, err
	}
	return r, nil
}
