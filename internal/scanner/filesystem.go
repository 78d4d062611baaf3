package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cr-go/rpmrepo/errs"
)

// FileSystemScanner recursively finds *.rpm files under a directory,
// the same filepath.Walk-based traversal ralt-repogen/internal/scanner's
// FileSystemScanner uses, narrowed to a single extension check instead of
// its magic-byte-based multi-format DetectType.
type FileSystemScanner struct{}

// NewFileSystemScanner creates a scanner.
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan walks dir, returning every regular file named *.rpm.
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]Found, error) {
	var found []Found

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".rpm") {
			return nil
		}
		logrus.Debugf("found rpm: %s", path)
		found = append(found, Found{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.Io, "scanning input directory", err).WithPath(dir)
	}

	logrus.Infof("found %d rpm files in %s", len(found), dir)
	return found, nil
}
