package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cr-go/rpmrepo/checksum"
	"github.com/cr-go/rpmrepo/compress"
	"github.com/cr-go/rpmrepo/filelists"
	"github.com/cr-go/rpmrepo/internal/models"
	"github.com/cr-go/rpmrepo/internal/scanner"
	"github.com/cr-go/rpmrepo/internal/utils"
	"github.com/cr-go/rpmrepo/other"
	"github.com/cr-go/rpmrepo/primary"
	"github.com/cr-go/rpmrepo/repomd"
	"github.com/cr-go/rpmrepo/rpmmd"
	"github.com/cr-go/rpmrepo/rpmmd/rpmread"
	"github.com/cr-go/rpmrepo/rpmutil"
	"github.com/cr-go/rpmrepo/sign"
	"github.com/cr-go/rpmrepo/sqlitedb"
)

// sqliteDBVersion is the db_info schema version createrepo_c itself writes
// for its SQLite mirrors.
const sqliteDBVersion = 10

// parseCompressKind maps a flag/config name to a compress.Kind. Unlike
// compress.KindFromSuffix, this resolves a codec *name* rather than a
// filename suffix, so it lives here rather than in the compress package
// itself.
func parseCompressKind(name string) (compress.Kind, error) {
	switch name {
	case "", "none":
		return compress.None, nil
	case "gzip", "gz":
		return compress.Gzip, nil
	case "bzip2", "bz2":
		return compress.Bzip2, nil
	case "xz":
		return compress.Xz, nil
	case "zchunk", "zck":
		return compress.Zchunk, nil
	default:
		return compress.Unknown, fmt.Errorf("unrecognized compression %q", name)
	}
}

// NewBuildCmd creates the "build" subcommand: scan an input directory of
// RPM files and generate a complete repodata/ tree, mirroring the shape of
// ralt-repogen's generate command but against the single RPM pipeline
// instead of a per-format dispatch table.
func NewBuildCmd() *cobra.Command {
	var (
		configPath     string
		inputDir       string
		outputDir      string
		checksumName   string
		compressName   string
		revision       string
		workers        int
		database       bool
		gpgKeyPath     string
		gpgPassphrase  string
		kojiRootFilter string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Scan an input directory and generate RPM repository metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := models.BuildConfig{
				InputDir:          inputDir,
				OutputDir:         outputDir,
				ChecksumAlgorithm: checksumName,
				Compression:       compressName,
				Revision:          revision,
				Workers:           workers,
				Database:          database,
				GPGKeyPath:        gpgKeyPath,
				GPGPassphrase:     gpgPassphrase,
				KojiRootFilter:    kojiRootFilter,
			}
			if configPath != "" {
				if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
					return fmt.Errorf("reading config file %s: %w", configPath, err)
				}
			}
			return runBuild(cmd.Context(), &cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Optional .repogen.toml config file (overrides flags)")
	flags.StringVarP(&inputDir, "input-dir", "i", ".", "Directory to scan for .rpm files")
	flags.StringVarP(&outputDir, "output-dir", "o", ".", "Directory to write repodata/ into")
	flags.StringVar(&checksumName, "checksum", "sha256", "Checksum algorithm (md5, sha1, sha256, sha512)")
	flags.StringVar(&compressName, "compression", "gzip", "Metadata compression (none, gzip, bzip2, xz, zchunk)")
	flags.StringVar(&revision, "revision", "", "repomd.xml revision marker (defaults to the current time)")
	flags.IntVar(&workers, "workers", 0, "RPM header-read concurrency (0 = GOMAXPROCS)")
	flags.BoolVar(&database, "database", false, "Also write primary.sqlite/filelists.sqlite/other.sqlite")
	flags.StringVarP(&gpgKeyPath, "gpg-key", "k", "", "Path to an armored GPG private key to sign repomd.xml with")
	flags.StringVarP(&gpgPassphrase, "gpg-passphrase", "p", "", "Passphrase for --gpg-key, if it is encrypted")
	flags.StringVar(&kojiRootFilter, "koji-root-filter", "", "Exclude packages whose sourcerpm path contains this substring")

	return cmd
}

func runBuild(ctx context.Context, cfg *models.BuildConfig) error {
	alg, err := checksum.ParseAlgorithm(cfg.ChecksumAlgorithm)
	if err != nil {
		return err
	}
	kind, err := parseCompressKind(cfg.Compression)
	if err != nil {
		return err
	}

	found, err := scanner.NewFileSystemScanner().Scan(ctx, cfg.InputDir)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		logrus.Warnf("no .rpm files found under %s", cfg.InputDir)
	}

	pkgs, err := readPackages(ctx, found, alg, cfg)
	if err != nil {
		return err
	}
	sort.Slice(pkgs, func(i, j int) bool {
		return pkgs[i].Name < pkgs[j].Name
	})

	repodataDir := filepath.Join(cfg.OutputDir, "repodata")
	if err := utils.EnsureDir(repodataDir); err != nil {
		return err
	}

	revision := cfg.Revision
	if revision == "" {
		revision = fmt.Sprintf("%d", time.Now().Unix())
	}
	rm := repomd.New(revision)

	primaryRec, err := writePrimaryDoc(pkgs, repodataDir, cfg.OutputDir, kind, alg)
	if err != nil {
		return err
	}
	rm.AddRecord(primaryRec)

	filelistsRec, err := writeFilelistsDoc(pkgs, repodataDir, cfg.OutputDir, kind, alg)
	if err != nil {
		return err
	}
	rm.AddRecord(filelistsRec)

	otherRec, err := writeOtherDoc(pkgs, repodataDir, cfg.OutputDir, kind, alg)
	if err != nil {
		return err
	}
	rm.AddRecord(otherRec)

	if cfg.Database {
		if err := writeSQLiteMirrors(pkgs, repodataDir, cfg.OutputDir, alg, rm); err != nil {
			return err
		}
	}

	repomdPath := filepath.Join(repodataDir, "repomd.xml")
	f, err := os.Create(repomdPath)
	if err != nil {
		return err
	}
	writeErr := rm.Write(f)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return closeErr
	}

	if cfg.GPGKeyPath != "" {
		if err := signRepomd(repomdPath, cfg); err != nil {
			return err
		}
	}

	logrus.Infof("wrote repodata for %d packages to %s", len(pkgs), repodataDir)
	return nil
}

// readPackages reads every found RPM's header into an rpmmd.Package, bounded
// to cfg.Workers concurrent reads (0 meaning GOMAXPROCS), the same
// semaphore-bounded errgroup shape claircore's layerscanner.Scan uses for
// its own concurrency-controlled fan-out.
// readPackages reads every found RPM's header and sets its LocationHref to
// the path relative to cfg.OutputDir, the href primary.xml/filelists.xml/
// other.xml record against a client's configured baseurl. createrepo_c
// indexes packages where it finds them rather than copying them into the
// repodata tree, and this preserves that behavior.
func readPackages(ctx context.Context, found []scanner.Found, alg checksum.Algorithm, cfg *models.BuildConfig) ([]*rpmmd.Package, error) {
	limit := cfg.Workers
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var kojiFilter rpmutil.KojiFilter
	if cfg.KojiRootFilter != "" {
		kojiFilter = rpmutil.NewKojiRootFilter(cfg.KojiRootFilter)
	}

	sem := semaphore.NewWeighted(int64(limit))
	g, ctx := errgroup.WithContext(ctx)
	pkgs := make([]*rpmmd.Package, len(found))

	for i, f := range found {
		i, f := i, f
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			pkg, err := rpmread.ReadPackage(f.Path, alg)
			if err != nil {
				return fmt.Errorf("reading %s: %w", f.Path, err)
			}
			href, err := filepath.Rel(cfg.OutputDir, f.Path)
			if err != nil {
				href = f.Path
			}
			pkg.LocationHref = filepath.ToSlash(href)
			pkgs[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := pkgs[:0]
	for _, pkg := range pkgs {
		if kojiFilter != nil && !kojiFilter(pkg.SourceRPM) {
			logrus.Debugf("excluding %s: sourcerpm %q filtered by koji root", pkg.NEVRA(), pkg.SourceRPM)
			continue
		}
		out = append(out, pkg)
	}
	return out, nil
}

func writePrimaryDoc(pkgs []*rpmmd.Package, repodataDir, repoBaseDir string, kind compress.Kind, alg checksum.Algorithm) (*repomd.Record, error) {
	var buf bytes.Buffer
	w, err := primary.Open(&buf, len(pkgs))
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if err := w.WritePackage(pkg); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return repomd.CompressAndFill("primary", "primary", &buf, repodataDir, kind, alg, repoBaseDir)
}

func writeFilelistsDoc(pkgs []*rpmmd.Package, repodataDir, repoBaseDir string, kind compress.Kind, alg checksum.Algorithm) (*repomd.Record, error) {
	var buf bytes.Buffer
	w, err := filelists.Open(&buf, len(pkgs))
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if err := w.WritePackage(pkg); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return repomd.CompressAndFill("filelists", "filelists", &buf, repodataDir, kind, alg, repoBaseDir)
}

func writeOtherDoc(pkgs []*rpmmd.Package, repodataDir, repoBaseDir string, kind compress.Kind, alg checksum.Algorithm) (*repomd.Record, error) {
	var buf bytes.Buffer
	w, err := other.Open(&buf, len(pkgs))
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if err := w.WritePackage(pkg); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return repomd.CompressAndFill("other", "other", &buf, repodataDir, kind, alg, repoBaseDir)
}

func writeSQLiteMirrors(pkgs []*rpmmd.Package, repodataDir, repoBaseDir string, alg checksum.Algorithm, rm *repomd.Repomd) error {
	primaryPath := filepath.Join(repodataDir, "primary.sqlite")
	primaryDB, err := sqlitedb.Open(primaryPath, sqlitedb.PrimarySchema{})
	if err != nil {
		return err
	}
	defer primaryDB.Close()

	filelistsPath := filepath.Join(repodataDir, "filelists.sqlite")
	filelistsDB, err := sqlitedb.Open(filelistsPath, sqlitedb.FilelistsSchema{})
	if err != nil {
		return err
	}
	defer filelistsDB.Close()

	otherPath := filepath.Join(repodataDir, "other.sqlite")
	otherDB, err := sqlitedb.Open(otherPath, sqlitedb.OtherSchema{})
	if err != nil {
		return err
	}
	defer otherDB.Close()

	for _, pkg := range pkgs {
		if _, err := sqlitedb.InsertPrimaryPackage(primaryDB, pkg, primary.IsPrimaryFile); err != nil {
			return err
		}
		if _, err := sqlitedb.InsertFilelistsPackage(filelistsDB, pkg); err != nil {
			return err
		}
		if _, err := sqlitedb.InsertOtherPackage(otherDB, pkg); err != nil {
			return err
		}
	}

	for _, m := range []struct {
		typ     string
		xmlType string
		db      *sql.DB
		path    string
	}{
		{"primary_db", "primary", primaryDB, primaryPath},
		{"filelists_db", "filelists", filelistsDB, filelistsPath},
		{"other_db", "other", otherDB, otherPath},
	} {
		xmlRec := rm.RecordByType(m.xmlType)
		if xmlRec == nil {
			return fmt.Errorf("no %s record to take the db_info checksum from", m.xmlType)
		}
		if err := sqlitedb.WriteDBInfo(m.db, sqliteDBVersion, xmlRec.Checksum); err != nil {
			return err
		}
		rec := repomd.NewRecord(m.typ)
		if err := rec.Fill(m.path, repoBaseDir, alg); err != nil {
			return err
		}
		if err := rec.RenameFile(); err != nil {
			return err
		}
		rm.AddRecord(rec)
	}
	return nil
}

func signRepomd(repomdPath string, cfg *models.BuildConfig) error {
	signer, err := sign.New(cfg.GPGKeyPath, cfg.GPGPassphrase)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(repomdPath)
	if err != nil {
		return err
	}
	sigBytes, err := signer.SignDetached(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(repomdPath+".asc", sigBytes, 0644); err != nil {
		return err
	}

	pubKey, err := signer.PublicKey()
	if err != nil {
		return err
	}
	keyPath := filepath.Join(filepath.Dir(repomdPath), "..", "RPM-GPG-KEY")
	return os.WriteFile(keyPath, pubKey, 0644)
}
