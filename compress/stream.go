package compress

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/cr-go/rpmrepo/errs"
)

// Stream is the uniform read/write handle over a single compressed or plain
// file, per spec.md §4.C. A Stream is not safe for concurrent use from
// multiple goroutines; distinct Streams need no coordination.
type Stream struct {
	path  string
	mode  Mode
	kind  Kind
	stats *Stats

	f *os.File
	r io.Reader
	w io.WriteCloser

	dict      []byte
	autoChunk bool
}

// Open opens path in the given mode. For ReadMode with kind == AutoDetect,
// the first bytes of the file are sniffed (falling back to the filename
// suffix) to resolve a concrete codec before the decompressing reader is
// built. stats may be nil to skip content-statistics tracking.
func Open(path string, mode Mode, kind Kind, stats *Stats) (*Stream, error) {
	switch mode {
	case ReadMode:
		return openRead(path, kind, stats)
	case WriteMode:
		return openWrite(path, kind, stats)
	default:
		return nil, errs.New(errs.BadArg, "unknown stream mode")
	}
}

func openRead(path string, kind Kind, stats *Stats) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.NoFile, "open for read", err).WithPath(path)
		}
		return nil, errs.Wrap(errs.Io, "open for read", err).WithPath(path)
	}

	br := bufio.NewReaderSize(f, 8192)

	resolved := kind
	if kind == AutoDetect {
		peek, _ := br.Peek(4096)
		resolved = resolveAutoDetect(peek, path)
	}

	reader, err := newDecompressReader(resolved, br)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Stream{path: path, mode: ReadMode, kind: resolved, stats: stats, f: f, r: reader}, nil
}

func openWrite(path string, kind Kind, stats *Stats) (*Stream, error) {
	if kind == AutoDetect {
		kind = KindFromSuffix(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "open for write", err).WithPath(path)
	}

	writer, err := newCompressWriter(kind, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Stream{path: path, mode: WriteMode, kind: kind, stats: stats, f: f, w: writer}, nil
}

// Kind returns the resolved codec (never AutoDetect once Open has returned).
func (s *Stream) Kind() Kind { return s.kind }

// Read reads decompressed bytes, feeding the statistics sink if attached.
// A short read is not an error; n == 0, err == io.EOF signals end of stream.
func (s *Stream) Read(buf []byte) (int, error) {
	if s.mode != ReadMode {
		return 0, errs.New(errs.BadArg, "stream not open for reading")
	}
	n, err := s.r.Read(buf)
	if n > 0 {
		s.stats.observe(buf[:n])
	}
	return n, err
}

// Write compresses and writes buf, feeding the statistics sink (on the
// uncompressed side) if attached.
func (s *Stream) Write(buf []byte) (int, error) {
	if s.mode != WriteMode {
		return 0, errs.New(errs.BadArg, "stream not open for writing")
	}
	s.stats.observe(buf)
	return s.w.Write(buf)
}

// Puts writes a string with no trailing newline added.
func (s *Stream) Puts(str string) (int, error) {
	return s.Write([]byte(str))
}

// Printf writes a formatted string, mirroring createrepo_c's cr_printf.
func (s *Stream) Printf(format string, args ...interface{}) (int, error) {
	return s.Write([]byte(fmt.Sprintf(format, args...)))
}

// SetDict attaches a compression dictionary. Only valid for Zchunk streams
// opened for writing; any other kind fails with errs.Zck.
func (s *Stream) SetDict(dict []byte) error {
	if s.kind != Zchunk {
		return errs.New(errs.Zck, "set_dict on non-zchunk stream")
	}
	s.dict = dict
	if zw, ok := s.w.(*zchunkWriter); ok {
		zw.header = dict
	}
	return nil
}

// SetAutoChunk enables/disables automatic chunk-boundary detection. Only
// valid for Zchunk streams; any other kind fails with errs.Zck.
func (s *Stream) SetAutoChunk(enabled bool) error {
	if s.kind != Zchunk {
		return errs.New(errs.Zck, "set_auto_chunk on non-zchunk stream")
	}
	s.autoChunk = enabled
	return nil
}

// Close finalizes the codec and the statistics sink (if attached).
func (s *Stream) Close() error {
	defer s.stats.Finalize()

	var err error
	if s.mode == WriteMode && s.w != nil {
		err = s.w.Close()
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errs.Wrap(errs.Io, "close stream", err).WithPath(s.path)
	}
	return nil
}

// GetContents opens path for reading with the given kind (AutoDetect
// allowed) and returns the fully decompressed contents.
func GetContents(path string, kind Kind) ([]byte, error) {
	s, err := Open(path, ReadMode, kind, nil)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return io.ReadAll(s)
}
