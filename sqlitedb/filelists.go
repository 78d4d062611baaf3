package sqlitedb

import (
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v8"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
)

// FilelistsSchema creates filelists.sqlite's tables. Unlike primary.sqlite's
// files table (one row per file), filelists.sqlite groups a package's files
// by directory and stores each directory's entries as two strings --
// filenames joined with "/", and filetypes with one letter per file -- the same per-directory compression
// createrepo_c's filelists.sqlite uses to keep row counts down on packages
// carrying thousands of files.
type FilelistsSchema struct{}

func (FilelistsSchema) Create(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS packages (
			pkgKey INTEGER PRIMARY KEY AUTOINCREMENT,
			pkgId TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS filelist (
			pkgKey INTEGER,
			dirname TEXT,
			filenames TEXT,
			filetypes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS dirnames ON filelist (dirname)`,
		`CREATE INDEX IF NOT EXISTS keyfile ON filelist (pkgKey)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errs.Wrap(errs.Database, "creating filelists.sqlite schema", err)
		}
	}
	return nil
}

// filetypeLetter is filelists.sqlite's one-character-per-file encoding of
// rpmmd.FileType: 'd' for a directory, 'g' for a ghost file, 'f' for a
// plain file, one letter per filenames entry so the two strings stay
// parallel -- createrepo_c always writes the 'f', never omits it.
func filetypeLetter(t rpmmd.FileType) byte {
	switch t {
	case rpmmd.FileDir:
		return 'd'
	case rpmmd.FileGhost:
		return 'g'
	default:
		return 'f'
	}
}

// groupByDir buckets pkg's files by directory, preserving first-seen
// directory order so filelist rows come out in the same order the XML
// document would list them.
func groupByDir(files []rpmmd.FileEntry) (dirs []string, names map[string][]string, types map[string][]byte) {
	names = map[string][]string{}
	types = map[string][]byte{}
	seen := map[string]bool{}
	for _, f := range files {
		dir := f.Path
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
		names[dir] = append(names[dir], f.Name)
		types[dir] = append(types[dir], filetypeLetter(f.Type))
	}
	return dirs, names, types
}

// InsertFilelistsPackage inserts pkg's filelists.sqlite packages row and one
// filelist row per distinct directory among pkg.Files.
func InsertFilelistsPackage(db *sql.DB, pkg *rpmmd.Package) (int64, error) {
	q, a, err := dialect.Insert("packages").Rows(goqu.Record{"pkgId": pkg.PkgID}).Prepared(true).ToSQL()
	if err != nil {
		return 0, errs.Wrap(errs.Database, "building filelists packages insert", err)
	}
	res, err := db.Exec(q, a...)
	if err != nil {
		return 0, errs.Wrap(errs.Database, "inserting filelists package row", err)
	}
	pkgKey, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Wrap(errs.Database, "reading inserted pkgKey", err)
	}

	dirs, names, types := groupByDir(pkg.Files)
	for _, dir := range dirs {
		q, a, err := dialect.Insert("filelist").Rows(goqu.Record{
			"pkgKey":    pkgKey,
			"dirname":   strings.TrimSuffix(dir, "/"),
			"filenames": strings.Join(names[dir], "/"),
			"filetypes": string(types[dir]),
		}).Prepared(true).ToSQL()
		if err != nil {
			return 0, errs.Wrap(errs.Database, "building filelist insert", err)
		}
		if _, err := db.Exec(q, a...); err != nil {
			return 0, errs.Wrap(errs.Database, "inserting filelist row", err)
		}
	}
	return pkgKey, nil
}
