package compress

import (
	"hash"

	"github.com/cr-go/rpmrepo/checksum"
)

// Stats is a content-statistics sink attached to a Stream: it counts bytes
// and hashes data as it flows through Read/Write, always on the
// *uncompressed* side of the codec, and publishes the final digest on
// Close. One Stats is used per Stream; it must not be shared across
// concurrently-used handles.
type Stats struct {
	Algorithm checksum.Algorithm

	size   int64
	hasher hash.Hash

	Size     int64
	Checksum string
	done     bool
}

// NewStats creates a statistics sink hashing with the given algorithm.
func NewStats(alg checksum.Algorithm) *Stats {
	return &Stats{Algorithm: alg, hasher: checksum.New(alg)}
}

// observe feeds p (uncompressed bytes) into the running hash/count. It is a
// no-op once Finalize has been called.
func (s *Stats) observe(p []byte) {
	if s == nil || s.done {
		return
	}
	s.size += int64(len(p))
	if s.hasher != nil {
		s.hasher.Write(p)
	}
}

// Finalize publishes Size/Checksum from the accumulated state. Idempotent.
func (s *Stats) Finalize() {
	if s == nil || s.done {
		return
	}
	s.Size = s.size
	if s.hasher != nil {
		s.Checksum = hex(s.hasher.Sum(nil))
	}
	s.done = true
}

func hex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0x0f]
	}
	return string(out)
}
