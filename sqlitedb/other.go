package sqlitedb

import (
	"database/sql"

	"github.com/doug-martin/goqu/v8"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
)

// OtherSchema creates other.sqlite's tables: one packages row per package
// plus one changelog row per changelog entry, in on-disk (chronological)
// order -- the same shape other.xml itself uses.
type OtherSchema struct{}

func (OtherSchema) Create(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS packages (
			pkgKey INTEGER PRIMARY KEY AUTOINCREMENT,
			pkgId TEXT,
			name TEXT,
			arch TEXT,
			version TEXT,
			epoch TEXT,
			release TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS changelog (
			pkgKey INTEGER,
			author TEXT,
			date INTEGER,
			changelog TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS pkgchangelog ON changelog (pkgKey)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errs.Wrap(errs.Database, "creating other.sqlite schema", err)
		}
	}
	return nil
}

// InsertOtherPackage inserts pkg's other.sqlite packages row and its
// changelog rows, in Changelogs order.
func InsertOtherPackage(db *sql.DB, pkg *rpmmd.Package) (int64, error) {
	q, a, err := dialect.Insert("packages").Rows(goqu.Record{
		"pkgId":   pkg.PkgID,
		"name":    pkg.Name,
		"arch":    pkg.Arch,
		"version": pkg.Version,
		"epoch":   pkg.Epoch,
		"release": pkg.Release,
	}).Prepared(true).ToSQL()
	if err != nil {
		return 0, errs.Wrap(errs.Database, "building other packages insert", err)
	}
	res, err := db.Exec(q, a...)
	if err != nil {
		return 0, errs.Wrap(errs.Database, "inserting other package row", err)
	}
	pkgKey, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Wrap(errs.Database, "reading inserted pkgKey", err)
	}

	for _, c := range pkg.Changelogs {
		q, a, err := dialect.Insert("changelog").Rows(goqu.Record{
			"pkgKey":    pkgKey,
			"author":    c.Author,
			"date":      c.Date,
			"changelog": c.Text,
		}).Prepared(true).ToSQL()
		if err != nil {
			return 0, errs.Wrap(errs.Database, "building changelog insert", err)
		}
		if _, err := db.Exec(q, a...); err != nil {
			return 0, errs.Wrap(errs.Database, "inserting changelog row", err)
		}
	}
	return pkgKey, nil
}
