package compress

import (
	"bufio"
	"compress/bzip2"
	"io"
	"os/exec"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// newDecompressReader wraps raw with a decompressing io.Reader for kind.
// kind must already be resolved (never AutoDetect/Unknown).
func newDecompressReader(kind Kind, raw io.Reader) (io.Reader, error) {
	switch kind {
	case None:
		return raw, nil
	case Gzip:
		r, err := gzip.NewReader(raw)
		if err != nil {
			return nil, errs.Wrap(errs.Gz, "open gzip reader", err)
		}
		return r, nil
	case Bzip2:
		return bzip2.NewReader(raw), nil
	case Xz:
		r, err := xz.NewReader(bufio.NewReader(raw))
		if err != nil {
			return nil, errs.Wrap(errs.Xz, "open xz reader", err)
		}
		return r, nil
	case Zchunk:
		return newZchunkReader(raw)
	default:
		return nil, errs.New(errs.UnknownCompression, kind.String())
	}
}

// newCompressWriter wraps raw with a compressing io.WriteCloser for kind.
func newCompressWriter(kind Kind, raw io.Writer) (io.WriteCloser, error) {
	switch kind {
	case None:
		return nopWriteCloser{raw}, nil
	case Gzip:
		return gzip.NewWriter(raw), nil
	case Bzip2:
		return newBzip2Writer(raw)
	case Xz:
		w, err := xz.NewWriter(raw)
		if err != nil {
			return nil, errs.Wrap(errs.Xz, "open xz writer", err)
		}
		return w, nil
	case Zchunk:
		return newZchunkWriter(raw, nil, false)
	default:
		return nil, errs.New(errs.UnknownCompression, kind.String())
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// newBzip2Writer shells out to the system bzip2 binary, since neither the
// standard library nor anything available implements a bzip2 encoder in
// pure Go. This follows the same pattern as
// ralt-repogen/internal/signer.GPGSigner.SignCleartext, which shells out to
// gpg for the one operation go-crypto's pure-Go implementation can't
// produce compatibly.
func newBzip2Writer(raw io.Writer) (io.WriteCloser, error) {
	path, err := exec.LookPath("bzip2")
	if err != nil {
		return nil, errs.Wrap(errs.Bz2, "bzip2 binary not found in PATH", err)
	}

	cmd := exec.Command(path, "--stdout", "--compress")
	cmd.Stdout = raw

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.Wrap(errs.Bz2, "open bzip2 stdin pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errs.Wrap(errs.Bz2, "start bzip2", err)
	}

	return &bzip2Writer{stdin: stdin, cmd: cmd}, nil
}

type bzip2Writer struct {
	stdin io.WriteCloser
	cmd   *exec.Cmd
}

func (w *bzip2Writer) Write(p []byte) (int, error) { return w.stdin.Write(p) }

func (w *bzip2Writer) Close() error {
	if err := w.stdin.Close(); err != nil {
		return errs.Wrap(errs.Bz2, "close bzip2 stdin", err)
	}
	if err := w.cmd.Wait(); err != nil {
		return errs.Wrap(errs.Bz2, "bzip2 exited with error", err)
	}
	return nil
}
