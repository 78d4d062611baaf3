// Package rpmmd is the in-memory package, dependency, file-entry, changelog
// and update-record data model (spec.md §3, component D), generalizing the
// teacher's internal/models.Package (a flat, format-agnostic struct) into
// the RPM-specific field set the three metadata documents need.
package rpmmd

// DependencyFlag is the closed comparison-operator set a Dependency may
// carry.
type DependencyFlag int

const (
	FlagNone DependencyFlag = iota
	LT
	LE
	EQ
	GE
	GT
)

func (f DependencyFlag) String() string {
	switch f {
	case LT:
		return "LT"
	case LE:
		return "LE"
	case EQ:
		return "EQ"
	case GE:
		return "GE"
	case GT:
		return "GT"
	default:
		return ""
	}
}

// ParseDependencyFlag recognizes the five comparison operators; an empty or
// unrecognized string yields FlagNone.
func ParseDependencyFlag(s string) DependencyFlag {
	switch s {
	case "LT":
		return LT
	case "LE":
		return LE
	case "EQ":
		return EQ
	case "GE":
		return GE
	case "GT":
		return GT
	default:
		return FlagNone
	}
}

// Dependency is one entry of a package's requires/provides/conflicts/etc.
type Dependency struct {
	Name    string
	Flags   DependencyFlag
	Epoch   string
	Version string
	Release string
	Pre     bool // meaningful only within Requires
}

// FileType is the closed set of file-entry kinds.
type FileType int

const (
	FileRegular FileType = iota
	FileDir
	FileGhost
)

func (t FileType) String() string {
	switch t {
	case FileDir:
		return "dir"
	case FileGhost:
		return "ghost"
	default:
		return ""
	}
}

// ParseFileType maps the <file type="..."> attribute; unrecognized values
// fall back to FileRegular (the caller is expected to raise an UnknownVal
// warning first, see xmlstream).
func ParseFileType(s string) FileType {
	switch s {
	case "dir":
		return FileDir
	case "ghost":
		return FileGhost
	default:
		return FileRegular
	}
}

// FileEntry is one entry of a package's file list. Path is the directory
// prefix and Name the basename; concatenating them reconstructs the
// on-disk path, per spec.md §3.
type FileEntry struct {
	Path string
	Name string
	Type FileType
}

// FullPath reconstructs the on-disk path from Path and Name.
func (f FileEntry) FullPath() string {
	return f.Path + f.Name
}

// ChangelogEntry is one changelog line.
type ChangelogEntry struct {
	Author string
	Date   int64
	Text   string
}

// LoadFlags records which of the three main documents have contributed to
// a Package. Each flag is set exactly once, per spec.md §3.
type LoadFlags struct {
	Primary   bool
	Filelists bool
	Other     bool
}

// Complete reports whether all three documents have contributed.
func (l LoadFlags) Complete() bool {
	return l.Primary && l.Filelists && l.Other
}

// Package is the fully-populated in-memory record for one RPM, assembled
// from primary/filelists/other (or a subset, when a caller only needs some
// of the data). Identity is PkgID; once set it never changes (spec.md §3).
type Package struct {
	PkgID        string
	ChecksumType string // checksum.Algorithm.String(), kept as a string so partially-loaded records can hold "" before primary assigns it

	Name         string
	Epoch        string
	Version      string
	Release      string
	Arch         string

	Summary     string
	Description string
	URL         string
	Packager    string
	License     string
	Vendor      string
	Group       string
	BuildHost   string

	SizePackage   int64
	SizeInstalled int64
	SizeArchive   int64

	TimeFile  int64
	TimeBuild int64

	SourceRPM string

	HeaderStart int64
	HeaderEnd   int64

	LocationHref string
	LocationBase string

	Requires    []Dependency
	Provides    []Dependency
	Conflicts   []Dependency
	Obsoletes   []Dependency
	Suggests    []Dependency
	Enhances    []Dependency
	Recommends  []Dependency
	Supplements []Dependency

	Files      []FileEntry
	Changelogs []ChangelogEntry

	Loaded LoadFlags

	arena *Arena
}

// NewPackage creates an empty Package backed by its own interning arena.
func NewPackage() *Package {
	return &Package{arena: NewArena()}
}

// Intern interns s into the package's own arena. Safe to call with a nil
// arena (e.g. a Package built directly as a struct literal in tests):
// it falls back to returning s unchanged.
func (p *Package) Intern(s string) string {
	if p.arena == nil {
		return s
	}
	return p.arena.Intern(s)
}

// ReleaseArena drops the package's interning arena. References already taken
// from Intern remain valid strings; only the dedup table is freed.
func (p *Package) ReleaseArena() {
	if p.arena != nil {
		p.arena.Release()
	}
}

// NEVRA formats the package's name-epoch-version-release-architecture
// identity string, e.g. "bash-0:5.2.15-1.fc40.x86_64".
func (p *Package) NEVRA() string {
	epoch := p.Epoch
	if epoch == "" {
		epoch = "0"
	}
	return p.Name + "-" + epoch + ":" + p.Version + "-" + p.Release + "." + p.Arch
}

// DependencySet returns the named relation list ("requires", "provides",
// ...), used by parsers/writers that iterate over all eight sets
// generically. An unrecognized name returns nil.
func (p *Package) DependencySet(name string) []Dependency {
	switch name {
	case "requires":
		return p.Requires
	case "provides":
		return p.Provides
	case "conflicts":
		return p.Conflicts
	case "obsoletes":
		return p.Obsoletes
	case "suggests":
		return p.Suggests
	case "enhances":
		return p.Enhances
	case "recommends":
		return p.Recommends
	case "supplements":
		return p.Supplements
	default:
		return nil
	}
}

// SetDependencySet assigns the named relation list, the write-side
// counterpart of DependencySet.
func (p *Package) SetDependencySet(name string, deps []Dependency) {
	switch name {
	case "requires":
		p.Requires = deps
	case "provides":
		p.Provides = deps
	case "conflicts":
		p.Conflicts = deps
	case "obsoletes":
		p.Obsoletes = deps
	case "suggests":
		p.Suggests = deps
	case "enhances":
		p.Enhances = deps
	case "recommends":
		p.Recommends = deps
	case "supplements":
		p.Supplements = deps
	}
}

// ReverseChangelogs reverses Changelogs in place, for callers that collected
// the entries newest first and want on-disk (chronological) order. The
// other.xml parser appends entries in document order and does not call it.
func (p *Package) ReverseChangelogs() {
	for i, j := 0, len(p.Changelogs)-1; i < j; i, j = i+1, j-1 {
		p.Changelogs[i], p.Changelogs[j] = p.Changelogs[j], p.Changelogs[i]
	}
}
