// Package utils holds the small filesystem helpers the CLI shell needs
// that don't belong in any of the root library packages, mirroring
// ralt-repogen/internal/utils's role -- narrowed to what an RPM-only
// builder actually uses. CalculateChecksums and CopyFile/package-identity
// moved out in favor of checksum.FileAll and rpmmd.Package.NEVRA, neither
// of which existed against ralt-repogen's flat models.Package; CopyFile
// itself is unneeded since createrepo-go indexes packages where it finds
// them rather than relocating them.
package utils

import "os"

// EnsureDir ensures a directory exists, creating it (and any parents) if
// necessary.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
