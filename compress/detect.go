package compress

import "bytes"

// magic bytes for the codecs Sniff can recognize by content, mirroring
// createrepo_c's libmagic-based detection (src/compression_wrapper.c) with a
// small fixed table instead of a libmagic binding, since nothing in the
// retrieval pack wraps libmagic for Go.
var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	zckMagic   = []byte("\x00ZCK1")
)

// Sniff inspects the first bytes of header (as read from the start of a
// file) and returns the best-matching Kind. Ambiguous or empty input
// returns Unknown so the caller can fall back to KindFromSuffix.
func Sniff(header []byte) Kind {
	switch {
	case bytes.HasPrefix(header, zckMagic):
		return Zchunk
	case bytes.HasPrefix(header, gzipMagic):
		return Gzip
	case bytes.HasPrefix(header, bzip2Magic):
		return Bzip2
	case bytes.HasPrefix(header, xzMagic):
		return Xz
	default:
		return Unknown
	}
}

// resolveAutoDetect sniffs up to 4KiB from peek and, failing that, falls
// back to the path's filename suffix, per spec.md §4.C.
func resolveAutoDetect(peek []byte, path string) Kind {
	if k := Sniff(peek); k != Unknown {
		return k
	}
	if k := KindFromSuffix(path); k != None {
		return k
	}
	return None
}
