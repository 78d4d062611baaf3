package rpmutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cr-go/rpmrepo/errs"
)

// AppendPIDAndDatetime appends "<pid>.<YYYYMMDDHHMMSS>.<microseconds>" and
// suffix to str, the same temp-uniqueness scheme
// original_source/src/misc.c's cr_append_pid_and_datetime uses for
// in-progress repodata directory names (e.g. ".repodata.<this>.tmp").
func AppendPIDAndDatetime(str, suffix string) string {
	now := time.Now()
	return fmt.Sprintf("%s%d.%s.%d%s",
		str,
		os.Getpid(),
		now.Format("20060102150405"),
		now.Nanosecond()/1000,
		suffix,
	)
}

// AtomicCopy copies src to dst by copying into a sibling temp file first
// and renaming it into place, so a reader never observes a partially
// written dst -- the same hazard cr_copy_file's direct fopen(dst, "wb")
// doesn't protect against, closed here the idiomatic Go way instead of
// porting its buffered fread/fwrite loop verbatim.
func AtomicCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.Wrap(errs.Io, "opening copy source", err).WithPath(src)
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".rpmrepo-copy-*")
	if err != nil {
		return errs.Wrap(errs.Io, "creating temp file for copy", err).WithPath(dir)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.Io, "copying file contents", err).WithPath(src)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.Io, "closing temp copy", err).WithPath(tmpName)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.Io, "renaming temp copy into place", err).WithPath(dst)
	}
	return nil
}

// KojiFilter is a predicate over a package's source RPM path (or NVRA
// string), used to exclude packages originating from a particular Koji
// build root. This is deliberately minimal -- a path-prefix/substring
// check rather than a Koji hub client -- matching spec.md's framing of
// Koji integration as an external collaborator's concern; nothing in the
// retrieval pack links a Koji client library, so no such dependency is
// introduced here.
type KojiFilter func(sourceRPM string) bool

// NewKojiRootFilter builds a KojiFilter that excludes any sourceRPM whose
// path contains root as a substring, e.g. a scratch-build task directory.
func NewKojiRootFilter(root string) KojiFilter {
	return func(sourceRPM string) bool {
		return !strings.Contains(sourceRPM, root)
	}
}
