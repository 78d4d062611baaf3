// Package checksum hashes bytes and files with the fixed algorithm set the
// repository metadata format requires, generalizing
// ralt-repogen/internal/utils/checksum.go (which hard-coded sha256) to the
// closed set in spec.md §3.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/cr-go/rpmrepo/errs"
)

// Algorithm is the closed set of checksum algorithms the metadata formats
// recognize. Unknown is a sentinel that is never written to an XML document.
type Algorithm int

const (
	Unknown Algorithm = iota
	MD5
	SHA1
	SHA224
	SHA256
	SHA384
	SHA512
)

// String returns the lowercase algorithm name used in XML "type" attributes
// (e.g. <checksum type="sha256">). SHA1 is also spelled "sha" by some
// historical readers; String always emits the canonical "sha1" form.
func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA224:
		return "sha224"
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// ParseAlgorithm recognizes both "sha1" and the historical "sha" spelling.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "md5":
		return MD5, nil
	case "sha", "sha1":
		return SHA1, nil
	case "sha224":
		return SHA224, nil
	case "sha256":
		return SHA256, nil
	case "sha384":
		return SHA384, nil
	case "sha512":
		return SHA512, nil
	default:
		return Unknown, errs.New(errs.UnknownChecksumType, s)
	}
}

// New returns a fresh hash.Hash for the algorithm, or nil for Unknown.
func New(a Algorithm) hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA224:
		return sha256.New224()
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	default:
		return nil
	}
}

// Bytes computes the lowercase hex digest of data using algorithm a.
func Bytes(data []byte, a Algorithm) (string, error) {
	h := New(a)
	if h == nil {
		return "", errs.New(errs.UnknownChecksumType, a.String())
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File computes the lowercase hex digest of a file's raw on-disk bytes.
func File(path string, a Algorithm) (string, error) {
	h := New(a)
	if h == nil {
		return "", errs.New(errs.UnknownChecksumType, a.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errs.Wrap(errs.Io, "open for checksum", err).WithPath(path)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", errs.Wrap(errs.Io, "read for checksum", err).WithPath(path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Set holds every supported digest for a file computed in a single pass,
// the way ralt-repogen/internal/utils.CalculateChecksums does with
// io.MultiWriter.
type Set struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
	Size   int64
}

// FileAll computes MD5/SHA1/SHA256/SHA512 digests for path in one pass.
func FileAll(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "open for checksum", err).WithPath(path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.Stat, "stat for checksum", err).WithPath(path)
	}

	md5h, sha1h, sha256h, sha512h := md5.New(), sha1.New(), sha256.New(), sha512.New()
	mw := io.MultiWriter(md5h, sha1h, sha256h, sha512h)

	if _, err := io.Copy(mw, f); err != nil {
		return nil, errs.Wrap(errs.Io, "read for checksum", err).WithPath(path)
	}

	return &Set{
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1h.Sum(nil)),
		SHA256: hex.EncodeToString(sha256h.Sum(nil)),
		SHA512: hex.EncodeToString(sha512h.Sum(nil)),
		Size:   info.Size(),
	}, nil
}
