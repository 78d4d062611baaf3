// Package rpmread reads an on-disk RPM file's header into an *rpmmd.Package,
// the external "package-inspection facility" spec.md §1 frames as out of
// its own scope: this module accepts pre-parsed rpmmd.Package values as
// its actual public surface, and only the CLI shell needs a concrete way
// to produce one from a .rpm file on disk, generalizing
// ralt-repogen/internal/generator/rpm/parser.go's ParsePackage from its
// flat models.Package into the richer rpmmd.Package (dependencies, files,
// changelog, checksum-derived pkgId).
package rpmread

import (
	"os"

	"github.com/sassoftware/go-rpmutils"

	"github.com/cr-go/rpmrepo/checksum"
	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
)

// ReadPackage opens path, checksums the whole file, reads its RPM header,
// and builds an *rpmmd.Package with the fields primary/filelists/other
// would otherwise have filled in from three separate XML documents, in
// one pass over the real file. Of the dependency relations only requires,
// provides, conflicts and obsoletes are read; files are typed as ghost or
// regular, never as directories; HeaderStart/HeaderEnd stay zero.
func ReadPackage(path string, checksumAlg checksum.Algorithm) (*rpmmd.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.NoFile, "opening rpm file", err).WithPath(path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.Stat, "stat-ing rpm file", err).WithPath(path)
	}

	sum, err := checksum.File(path, checksumAlg)
	if err != nil {
		return nil, err
	}

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, errs.Wrap(errs.XmlParse, "reading rpm header", err).WithPath(path)
	}

	pkg := rpmmd.NewPackage()
	pkg.PkgID = sum
	pkg.ChecksumType = checksumAlg.String()

	pkg.Name = getString(rpm, rpmutils.NAME)
	pkg.Epoch = getString(rpm, rpmutils.EPOCH)
	pkg.Version = getString(rpm, rpmutils.VERSION)
	pkg.Release = getString(rpm, rpmutils.RELEASE)
	pkg.Arch = getString(rpm, rpmutils.ARCH)

	pkg.Summary = getString(rpm, rpmutils.SUMMARY)
	pkg.Description = getString(rpm, rpmutils.DESCRIPTION)
	pkg.URL = getString(rpm, rpmutils.URL)
	pkg.Packager = getString(rpm, rpmutils.PACKAGER)
	pkg.License = getString(rpm, rpmutils.LICENSE)
	pkg.Vendor = getString(rpm, rpmutils.VENDOR)
	pkg.Group = getString(rpm, rpmutils.GROUP)
	pkg.BuildHost = getString(rpm, rpmutils.BUILDHOST)
	pkg.SourceRPM = getString(rpm, rpmutils.SOURCERPM)

	pkg.SizePackage = info.Size()
	pkg.SizeInstalled = getInt(rpm, rpmutils.SIZE)
	pkg.SizeArchive = getInt(rpm, rpmutils.PAYLOADSIZE)

	pkg.TimeFile = info.ModTime().Unix()
	pkg.TimeBuild = getInt(rpm, rpmutils.BUILDTIME)

	// HeaderStart/HeaderEnd (rpm:header-range in primary.xml) need the
	// byte offsets of the main header within the file, which sit below
	// go-rpmutils' header-value API; left zero here, same as a caller
	// that only has the parsed rpmmd.Package and not the original file
	// would see.
	pkg.Requires = readDeps(rpm, rpmutils.REQUIRENAME, rpmutils.REQUIREFLAGS, rpmutils.REQUIREVERSION, true)
	pkg.Provides = readDeps(rpm, rpmutils.PROVIDENAME, rpmutils.PROVIDEFLAGS, rpmutils.PROVIDEVERSION, false)
	pkg.Conflicts = readDeps(rpm, rpmutils.CONFLICTNAME, rpmutils.CONFLICTFLAGS, rpmutils.CONFLICTVERSION, false)
	pkg.Obsoletes = readDeps(rpm, rpmutils.OBSOLETENAME, rpmutils.OBSOLETEFLAGS, rpmutils.OBSOLETEVERSION, false)

	pkg.Files = readFiles(rpm)
	pkg.Changelogs = readChangelogs(rpm)

	pkg.Loaded = rpmmd.LoadFlags{Primary: true, Filelists: true, Other: true}

	return pkg, nil
}

func getString(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func getInt(rpm *rpmutils.Rpm, tag int) int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	}
	return 0
}

func getStrings(rpm *rpmutils.Rpm, tag int) []string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return nil
	}
	if v, ok := val.([]string); ok {
		return v
	}
	return nil
}

func getInts(rpm *rpmutils.Rpm, tag int) []int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return nil
	}
	switch v := val.(type) {
	case []int32:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out
	case []uint32:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out
	case []int64:
		return v
	}
	return nil
}

// rpmSenseFlags, a subset of RPM's RPMSENSE_* bitmask relevant to dependency
// comparison operators and the "prereq" bit requires carries.
const (
	senseLess      = 1 << 1
	senseGreater   = 1 << 2
	senseEqual     = 1 << 3
	sensePrereq    = 1 << 6
	senseScriptPre = 1 << 9
)

func flagsToDependencyFlag(flags int64) rpmmd.DependencyFlag {
	switch {
	case flags&senseLess != 0 && flags&senseEqual != 0:
		return rpmmd.LE
	case flags&senseGreater != 0 && flags&senseEqual != 0:
		return rpmmd.GE
	case flags&senseLess != 0:
		return rpmmd.LT
	case flags&senseGreater != 0:
		return rpmmd.GT
	case flags&senseEqual != 0:
		return rpmmd.EQ
	default:
		return rpmmd.FlagNone
	}
}

// readDeps builds one Dependency per entry of the name/flags/version tag
// triple every RPM dependency relation shares the same shape for.
// isRequires additionally decodes the Pre (prereq) bit, which only
// Requires carries semantics for.
func readDeps(rpm *rpmutils.Rpm, nameTag, flagsTag, versionTag int, isRequires bool) []rpmmd.Dependency {
	names := getStrings(rpm, nameTag)
	if len(names) == 0 {
		return nil
	}
	flags := getInts(rpm, flagsTag)
	versions := getStrings(rpm, versionTag)

	deps := make([]rpmmd.Dependency, 0, len(names))
	for i, name := range names {
		d := rpmmd.Dependency{Name: name}
		var flag int64
		if i < len(flags) {
			flag = flags[i]
		}
		d.Flags = flagsToDependencyFlag(flag)
		if isRequires {
			d.Pre = flag&(sensePrereq|senseScriptPre) != 0
		}
		if i < len(versions) && versions[i] != "" {
			if idx := indexByte(versions[i], ':'); idx >= 0 {
				d.Epoch = versions[i][:idx]
				rest := versions[i][idx+1:]
				if j := indexByte(rest, '-'); j >= 0 {
					d.Version, d.Release = rest[:j], rest[j+1:]
				} else {
					d.Version = rest
				}
			} else if j := indexByte(versions[i], '-'); j >= 0 {
				d.Version, d.Release = versions[i][:j], versions[i][j+1:]
			} else {
				d.Version = versions[i]
			}
		}
		deps = append(deps, d)
	}
	return deps
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// readFiles reassembles the package's file list from the parallel
// basenames/dirnames/dirindexes/fileflags tag arrays RPM headers store
// file lists as, rather than one tag per full path.
func readFiles(rpm *rpmutils.Rpm) []rpmmd.FileEntry {
	basenames := getStrings(rpm, rpmutils.BASENAMES)
	dirnames := getStrings(rpm, rpmutils.DIRNAMES)
	dirIdx := getInts(rpm, rpmutils.DIRINDEXES)
	fileFlags := getInts(rpm, rpmutils.FILEFLAGS)

	const rpmfileGhost = 1 << 6

	files := make([]rpmmd.FileEntry, 0, len(basenames))
	for i, base := range basenames {
		var dir string
		if i < len(dirIdx) && int(dirIdx[i]) < len(dirnames) {
			dir = dirnames[dirIdx[i]]
		}
		typ := rpmmd.FileRegular
		if i < len(fileFlags) && fileFlags[i]&rpmfileGhost != 0 {
			typ = rpmmd.FileGhost
		}
		files = append(files, rpmmd.FileEntry{Path: dir, Name: base, Type: typ})
	}
	return files
}

func readChangelogs(rpm *rpmutils.Rpm) []rpmmd.ChangelogEntry {
	names := getStrings(rpm, rpmutils.CHANGELOGNAME)
	times := getInts(rpm, rpmutils.CHANGELOGTIME)
	texts := getStrings(rpm, rpmutils.CHANGELOGTEXT)

	n := len(names)
	if len(times) < n {
		n = len(times)
	}
	if len(texts) < n {
		n = len(texts)
	}

	// RPM headers list changelog entries newest first; the Package keeps
	// them oldest first, the order other.xml stores them in.
	entries := make([]rpmmd.ChangelogEntry, n)
	for i := 0; i < n; i++ {
		entries[n-1-i] = rpmmd.ChangelogEntry{Author: names[i], Date: times[i], Text: texts[i]}
	}
	return entries
}

// ReadAll reads every *.rpm file in paths, returning one Package per file
// (skipping read failures is the caller's choice, not this function's --
// it stops at the first error, matching rpmutils.ReadRpm's own behavior).
func ReadAll(paths []string, checksumAlg checksum.Algorithm) ([]*rpmmd.Package, error) {
	pkgs := make([]*rpmmd.Package, 0, len(paths))
	for _, p := range paths {
		pkg, err := ReadPackage(p, checksumAlg)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}
