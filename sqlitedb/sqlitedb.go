// Package sqlitedb implements the optional SQLite mirror of
// primary/filelists/other: primary.sqlite, filelists.sqlite and
// other.sqlite, each queryable independently of the XML documents (spec.md
// §4.K). Schema creation is expressed as the Schema interface: spec.md
// treats the exact DDL as an external-collaborator concern the repository
// generator may override, so this package supplies the interface plus one
// concrete, createrepo_c-compatible implementation rather than hardwiring
// table creation into the writers themselves.
package sqlitedb

import (
	"database/sql"
	"net/url"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/cr-go/rpmrepo/errs"
)

// Schema creates whatever tables/indexes/triggers a DB implementation
// needs before any row is inserted.
type Schema interface {
	Create(db *sql.DB) error
}

// Open opens (creating if necessary) the SQLite database at path, applying
// it the same way claircore's rpm/sqlite package does: a file: URL with
// foreign_keys and synchronous pragmas set via query parameters, through
// the pure-Go modernc.org/sqlite driver rather than a cgo binding.
func Open(path string, schema Schema) (*sql.DB, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {"foreign_keys(1)", "synchronous(OFF)"},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, errs.Wrap(errs.Database, "opening sqlite database", err).WithPath(path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Database, "pinging sqlite database", err).WithPath(path)
	}
	if schema != nil {
		if err := schema.Create(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// WriteDBInfo (re)writes the single-row db_info table every createrepo_c
// SQLite mirror carries: a schema version and the checksum of the XML
// document it was generated from, used by consumers to detect a stale
// cache.
func WriteDBInfo(db *sql.DB, dbVersion int, checksum string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS db_info (dbversion INTEGER, checksum TEXT)`); err != nil {
		return errs.Wrap(errs.Database, "creating db_info table", err)
	}
	if _, err := db.Exec(`DELETE FROM db_info`); err != nil {
		return errs.Wrap(errs.Database, "clearing db_info table", err)
	}
	if _, err := db.Exec(`INSERT INTO db_info (dbversion, checksum) VALUES (?, ?)`, dbVersion, checksum); err != nil {
		return errs.Wrap(errs.Database, "writing db_info row", err)
	}
	return nil
}
