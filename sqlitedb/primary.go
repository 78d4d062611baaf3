package sqlitedb

import (
	"database/sql"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/sqlite3"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/rpmmd"
)

var dialect = goqu.Dialect("sqlite3")

// PrimarySchema creates primary.sqlite's tables: one packages row per
// rpmmd.Package plus one table per dependency relation, keyed by the
// SQLite-assigned integer pkgKey rather than the (larger, string) pkgId --
// the same normalization createrepo_c's primary.sqlite uses.
type PrimarySchema struct{}

func (PrimarySchema) Create(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS packages (
			pkgKey INTEGER PRIMARY KEY AUTOINCREMENT,
			pkgId TEXT,
			name TEXT,
			arch TEXT,
			version TEXT,
			epoch TEXT,
			release TEXT,
			summary TEXT,
			description TEXT,
			url TEXT,
			time_file INTEGER,
			time_build INTEGER,
			rpm_license TEXT,
			rpm_vendor TEXT,
			rpm_group TEXT,
			rpm_buildhost TEXT,
			rpm_sourcerpm TEXT,
			rpm_header_start INTEGER,
			rpm_header_end INTEGER,
			rpm_packager TEXT,
			size_package INTEGER,
			size_installed INTEGER,
			size_archive INTEGER,
			location_href TEXT,
			location_base TEXT,
			checksum_type TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS packagename ON packages (name)`,
		`CREATE TABLE IF NOT EXISTS files (
			pkgKey INTEGER,
			name TEXT,
			type TEXT
		)`,
	}
	for _, rel := range depRelations {
		stmts = append(stmts, `CREATE TABLE IF NOT EXISTS `+rel+` (
			pkgKey INTEGER,
			name TEXT,
			flags TEXT,
			epoch TEXT,
			version TEXT,
			release TEXT,
			pre INTEGER
		)`)
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS `+rel+`_pkgKey ON `+rel+` (pkgKey)`)
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errs.Wrap(errs.Database, "creating primary.sqlite schema", err)
		}
	}
	return nil
}

var depRelations = []string{"requires", "provides", "conflicts", "obsoletes", "suggests", "enhances", "recommends", "supplements"}

// InsertPrimaryPackage inserts pkg's primary.sqlite row, its dependency
// relation rows, and its primary-only file list, returning the assigned
// pkgKey.
func InsertPrimaryPackage(db *sql.DB, pkg *rpmmd.Package, isPrimaryFile func(path string) bool) (int64, error) {
	ins := dialect.Insert("packages").Rows(goqu.Record{
		"pkgId":             pkg.PkgID,
		"name":              pkg.Name,
		"arch":              pkg.Arch,
		"version":           pkg.Version,
		"epoch":             pkg.Epoch,
		"release":           pkg.Release,
		"summary":           pkg.Summary,
		"description":       pkg.Description,
		"url":               pkg.URL,
		"time_file":         pkg.TimeFile,
		"time_build":        pkg.TimeBuild,
		"rpm_license":       pkg.License,
		"rpm_vendor":        pkg.Vendor,
		"rpm_group":         pkg.Group,
		"rpm_buildhost":     pkg.BuildHost,
		"rpm_sourcerpm":     pkg.SourceRPM,
		"rpm_header_start":  pkg.HeaderStart,
		"rpm_header_end":    pkg.HeaderEnd,
		"rpm_packager":      pkg.Packager,
		"size_package":      pkg.SizePackage,
		"size_installed":    pkg.SizeInstalled,
		"size_archive":      pkg.SizeArchive,
		"location_href":     pkg.LocationHref,
		"location_base":     pkg.LocationBase,
		"checksum_type":     pkg.ChecksumType,
	})
	query, args, err := ins.Prepared(true).ToSQL()
	if err != nil {
		return 0, errs.Wrap(errs.Database, "building packages insert", err)
	}
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, errs.Wrap(errs.Database, "inserting package row", err)
	}
	pkgKey, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Wrap(errs.Database, "reading inserted pkgKey", err)
	}

	for _, rel := range depRelations {
		deps := pkg.DependencySet(rel)
		for _, d := range deps {
			q, a, err := dialect.Insert(rel).Rows(goqu.Record{
				"pkgKey":  pkgKey,
				"name":    d.Name,
				"flags":   d.Flags.String(),
				"epoch":   d.Epoch,
				"version": d.Version,
				"release": d.Release,
				"pre":     boolToInt(d.Pre),
			}).Prepared(true).ToSQL()
			if err != nil {
				return 0, errs.Wrap(errs.Database, "building "+rel+" insert", err)
			}
			if _, err := db.Exec(q, a...); err != nil {
				return 0, errs.Wrap(errs.Database, "inserting "+rel+" row", err)
			}
		}
	}

	for _, f := range pkg.Files {
		full := f.FullPath()
		if isPrimaryFile != nil && !isPrimaryFile(full) {
			continue
		}
		q, a, err := dialect.Insert("files").Rows(goqu.Record{
			"pkgKey": pkgKey,
			"name":   full,
			"type":   f.Type.String(),
		}).Prepared(true).ToSQL()
		if err != nil {
			return 0, errs.Wrap(errs.Database, "building files insert", err)
		}
		if _, err := db.Exec(q, a...); err != nil {
			return 0, errs.Wrap(errs.Database, "inserting file row", err)
		}
	}

	return pkgKey, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
