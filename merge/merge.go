// Package merge implements the three-way streaming merge of primary.xml,
// filelists.xml and other.xml into complete rpmmd.Package records (spec.md
// §4.G). Each document is parsed on its own goroutine; a bounded
// "in-progress" FIFO per secondary stream absorbs the occasional reordering
// real repositories exhibit between primary's package order and the other
// two documents', matched by a head-relative pkgid lookup rather than
// requiring strict lockstep order.
package merge

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/cr-go/rpmrepo/errs"
	"github.com/cr-go/rpmrepo/filelists"
	"github.com/cr-go/rpmrepo/other"
	"github.com/cr-go/rpmrepo/primary"
	"github.com/cr-go/rpmrepo/rpmmd"
)

// parseFunc is the shape of primary.Parse, filelists.Parse and other.Parse
// with their package-callback types spelled out, so feed() can drive any of
// the three through a small adapter closure.
type parseFunc func(r io.Reader, onPkg func(*rpmmd.Package) error) error

// Iterator drives the three parsers concurrently (grounded on the
// channel/errgroup fan-in pipeline idiom quay/claircore's indexer uses for
// its concurrent scan stages) and yields fully-merged packages one at a
// time via Next.
type Iterator struct {
	primaryCh   chan *rpmmd.Package
	filelistsCh chan *rpmmd.Package
	otherCh     chan *rpmmd.Package

	filelistsQueue []*rpmmd.Package
	otherQueue     []*rpmmd.Package

	g        *errgroup.Group
	cancel   context.CancelFunc
	finished bool
}

// New starts parsing all three readers concurrently. The caller must call
// Next until it returns io.EOF or a non-nil error, then Close.
func New(ctx context.Context, primaryR, filelistsR, otherR io.Reader) *Iterator {
	cctx, cancel := context.WithCancel(ctx)
	g, cctx := errgroup.WithContext(cctx)

	it := &Iterator{
		primaryCh:   make(chan *rpmmd.Package, 64),
		filelistsCh: make(chan *rpmmd.Package, 64),
		otherCh:     make(chan *rpmmd.Package, 64),
		g:           g,
		cancel:      cancel,
	}

	g.Go(func() error {
		return feed(cctx, primaryR, it.primaryCh, func(r io.Reader, f func(*rpmmd.Package) error) error { return primary.Parse(r, f) })
	})
	g.Go(func() error {
		return feed(cctx, filelistsR, it.filelistsCh, func(r io.Reader, f func(*rpmmd.Package) error) error { return filelists.Parse(r, f) })
	})
	g.Go(func() error {
		return feed(cctx, otherR, it.otherCh, func(r io.Reader, f func(*rpmmd.Package) error) error { return other.Parse(r, f) })
	})

	return it
}

func feed(ctx context.Context, r io.Reader, ch chan<- *rpmmd.Package, parse parseFunc) error {
	defer close(ch)
	return parse(r, func(pkg *rpmmd.Package) error {
		select {
		case ch <- pkg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Next returns the next merged package, combining primary's record with
// the matching filelists and other records by PkgID. Returns io.EOF once
// primary.xml is exhausted (with the other two streams drained to
// completion by Close).
func (it *Iterator) Next() (*rpmmd.Package, error) {
	p, ok := <-it.primaryCh
	if !ok {
		it.finished = true
		if err := it.g.Wait(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	fl, err := lookup(&it.filelistsQueue, it.filelistsCh, p.PkgID)
	if err != nil {
		it.finished = true
		it.cancel()
		it.g.Wait()
		return nil, err
	}
	p.Files = fl.Files
	p.Loaded.Filelists = true

	ot, err := lookup(&it.otherQueue, it.otherCh, p.PkgID)
	if err != nil {
		it.finished = true
		it.cancel()
		it.g.Wait()
		return nil, err
	}
	p.Changelogs = ot.Changelogs
	p.Loaded.Other = true

	return p, nil
}

// lookup searches queue (the in-progress FIFO of already-read-but-not-yet-
// matched packages from a secondary stream) for pkgId starting from the
// head; packages read past it stay buffered for a later primary record.
// If the head of the buffer doesn't already contain it, more packages are
// pulled off ch until a match is found or the stream closes (a closed
// channel with no match means the documents disagree about which packages
// exist, a fatal condition).
func lookup(queue *[]*rpmmd.Package, ch <-chan *rpmmd.Package, pkgID string) (*rpmmd.Package, error) {
	for i, cand := range *queue {
		if cand.PkgID == pkgID {
			*queue = append((*queue)[:i:i], (*queue)[i+1:]...)
			return cand, nil
		}
	}
	for {
		cand, ok := <-ch
		if !ok {
			return nil, errs.New(errs.XmlBadData, "no matching record for pkgid "+pkgID)
		}
		if cand.PkgID == pkgID {
			return cand, nil
		}
		*queue = append(*queue, cand)
	}
}

// Close cancels any in-flight parsing and waits for the worker goroutines
// to exit. Safe to call after Next has already returned io.EOF or an
// error.
func (it *Iterator) Close() error {
	it.cancel()
	err := it.g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// IsFinished reports whether Next has already returned io.EOF or an error.
func (it *Iterator) IsFinished() bool {
	return it.finished
}
