// Package locate resolves a repository root (a local directory or a
// remote HTTP(S) URL) to the concrete set of metadata file locations
// described by its repomd.xml, and implements generation-retention pruning
// of old metadata files (spec.md §4.J).
package locate

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/repomd"
)

// MetadataLocation is the resolved set of on-disk paths for one
// repository's current metadata generation.
type MetadataLocation struct {
	// Root is the original path or URL passed to Locate.
	Root string
	// LocalDir holds the directory metadata files can actually be opened
	// from: Root itself for a local repository, or a temp download
	// directory for a remote one.
	LocalDir string
	// Remote is true when Root named an http(s) URL and LocalDir is a
	// temp download directory that the caller should remove when done.
	Remote bool

	Repomd *repomd.Repomd
	// Paths maps a repomd record type ("primary", "filelists", "other",
	// "primary_db", "updateinfo", ...) to its local, openable path.
	Paths map[string]string
}

// Locate resolves root (a local directory or an http(s) URL) to a
// MetadataLocation. When ignoreSQLite is true, "*_db" records are skipped
// (and never downloaded for a remote repository), matching createrepo_c's
// --ignore-sqlite-metadata.
func Locate(root string, ignoreSQLite bool) (*MetadataLocation, error) {
	u, err := url.Parse(root)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return locateRemote(root, ignoreSQLite)
	}
	return locateLocal(root, ignoreSQLite)
}

func locateLocal(root string, ignoreSQLite bool) (*MetadataLocation, error) {
	repomdPath := filepath.Join(root, "repodata", "repomd.xml")
	f, err := os.Open(repomdPath)
	if err != nil {
		return nil, errs.Wrap(errs.NoFile, "opening repomd.xml", err).WithPath(repomdPath)
	}
	defer f.Close()

	rm, err := repomd.Parse(f)
	if err != nil {
		return nil, err
	}

	loc := &MetadataLocation{Root: root, LocalDir: root, Repomd: rm, Paths: map[string]string{}}
	for _, rec := range rm.Records {
		if ignoreSQLite && strings.HasSuffix(rec.Type, "_db") {
			continue
		}
		loc.Paths[rec.Type] = filepath.Join(root, rec.LocationHref)
	}
	return loc, nil
}

// fetch performs the single blocking HTTP GET this module ever issues for
// a remote repository file -- spec.md's non-goals explicitly exclude any
// richer transport (retries, ranged/resumable fetch, connection pooling
// tuning) beyond this.
func fetch(rawURL string) ([]byte, error) {
	resp, err := http.Get(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.Http, "fetching "+rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.Http, "unexpected status fetching "+rawURL+": "+resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func locateRemote(root string, ignoreSQLite bool) (*MetadataLocation, error) {
	repomdURL := strings.TrimRight(root, "/") + "/repodata/repomd.xml"
	body, err := fetch(repomdURL)
	if err != nil {
		return nil, err
	}

	rm, err := repomd.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "rpmrepo-"+uuid.NewString())
	if err != nil {
		return nil, errs.Wrap(errs.Io, "creating download dir", err)
	}

	loc := &MetadataLocation{Root: root, LocalDir: dir, Remote: true, Repomd: rm, Paths: map[string]string{}}
	for _, rec := range rm.Records {
		if ignoreSQLite && strings.HasSuffix(rec.Type, "_db") {
			continue
		}
		fileURL := strings.TrimRight(root, "/") + "/" + rec.LocationHref
		data, err := fetch(fileURL)
		if err != nil {
			return nil, err
		}
		localPath := filepath.Join(dir, filepath.Base(rec.LocationHref))
		if err := os.WriteFile(localPath, data, 0644); err != nil {
			return nil, errs.Wrap(errs.Io, "writing downloaded metadata file", err).WithPath(localPath)
		}
		loc.Paths[rec.Type] = localPath
	}
	return loc, nil
}

// Cleanup removes the temp download directory of a remote MetadataLocation.
// A no-op for a local one.
func (m *MetadataLocation) Cleanup() error {
	if !m.Remote {
		return nil
	}
	return os.RemoveAll(m.LocalDir)
}

// generationInfo pairs a repodata file with the mtime used to order
// generations, oldest first.
type generationInfo struct {
	path  string
	mtime time.Time
}

// RemoveMetadataClassic prunes repodataDir down to keepGenerations of
// metadata, deleting the oldest checksum-prefixed files first, matching
// createrepo_c's "--retain-old-md" file-age-based retention in its
// "classic" (non-database-aware) mode: every file in the directory is
// ordered purely by modification time, without regard to which repomd.xml
// revision it belongs to.
func RemoveMetadataClassic(repodataDir string, keepGenerations int) error {
	entries, err := os.ReadDir(repodataDir)
	if err != nil {
		return errs.Wrap(errs.Io, "reading repodata dir", err).WithPath(repodataDir)
	}

	var files []generationInfo
	for _, e := range entries {
		if e.IsDir() || e.Name() == "repomd.xml" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, generationInfo{path: filepath.Join(repodataDir, e.Name()), mtime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })

	if keepGenerations < 0 {
		keepGenerations = 0
	}
	cut := len(files) - keepGenerations
	for i := 0; i < cut; i++ {
		if err := os.Remove(files[i].path); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(errs.Io, "removing old metadata file", err).WithPath(files[i].path)
		}
	}
	return nil
}

// RemoveMetadata removes exactly the files referenced by rm's records
// (and rm's own repomd.xml, if repomdPath is non-empty), the precise
// complement to RemoveMetadataClassic's age-based sweep: used when the
// caller knows exactly which generation's repomd.xml it is retiring.
func RemoveMetadata(repodataDir string, rm *repomd.Repomd, repomdPath string) error {
	for _, rec := range rm.Records {
		p := filepath.Join(repodataDir, filepath.Base(rec.LocationHref))
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(errs.Io, "removing metadata file", err).WithPath(p)
		}
	}
	if repomdPath != "" {
		if err := os.Remove(repomdPath); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(errs.Io, "removing repomd.xml", err).WithPath(repomdPath)
		}
	}
	return nil
}
