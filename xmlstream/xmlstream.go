// Package xmlstream is the push-based, table-driven SAX framework spec.md
// §4.E describes: a uniform state-switch table plus element/attribute
// callbacks, a warning callback, and a recoverable/fatal error policy. The
// three metadata parsers (primary, filelists, other) are thin tables
// plumbed through this one driver (repomd and updateinfo decode their small
// documents with xml.Decoder.Decode instead), built on encoding/xml's token
// stream -- the idiomatic Go way to stream
// arbitrarily large XML under bounded memory, matching how
// other_examples/...ocochard-cmonit.../internal-parser-xml.go consumes
// xml.Decoder.Token() directly instead of xml.Unmarshal.
package xmlstream

import (
	"encoding/xml"
	"io"
	"strings"
	"sync"

	"github.com/cr-go/rpmrepo/errs"
)

// State identifies a node of the caller's state machine. Each parser
// package defines its own small integer enum.
type State int

// WarningKind is the closed taxonomy of non-fatal parse conditions, per
// spec.md §4.E.
type WarningKind int

const (
	UnknownTag WarningKind = iota
	MissingAttr
	UnknownVal
	BadAttrVal
	MissingVal
	BadMdType
)

func (k WarningKind) String() string {
	switch k {
	case UnknownTag:
		return "UnknownTag"
	case MissingAttr:
		return "MissingAttr"
	case UnknownVal:
		return "UnknownVal"
	case BadAttrVal:
		return "BadAttrVal"
	case MissingVal:
		return "MissingVal"
	case BadMdType:
		return "BadMdType"
	default:
		return "Unknown"
	}
}

// Warning is delivered to the user warning callback with the element path
// at which it occurred. The callback may return a non-nil error to escalate
// the warning to a parse interruption.
type Warning struct {
	Kind    WarningKind
	Path    string
	Message string
}

// Transition is one state-switch table entry: seeing Element while in state
// From moves to state To, optionally capturing character data for the new
// frame.
type Transition struct {
	From        State
	Element     string
	To          State
	CaptureText bool
}

// Table is a state-switch table, searched linearly within entries sharing
// From (ties never arise because the XML schemas are unambiguous, but
// insertion order is preserved as the tie-break per spec.md §4.E).
type Table struct {
	byState map[State][]Transition
}

// NewTable builds a lookup-indexed Table from entries, preserving entry
// order within each From state.
func NewTable(entries []Transition) *Table {
	t := &Table{byState: make(map[State][]Transition)}
	for _, e := range entries {
		t.byState[e.From] = append(t.byState[e.From], e)
	}
	return t
}

func (t *Table) lookup(from State, elem string) (Transition, bool) {
	for _, e := range t.byState[from] {
		if e.Element == elem {
			return e, true
		}
	}
	return Transition{}, false
}

// StartFunc is called when entering a new element after a successful table
// lookup, with the state being entered, the element name, and its
// attributes. Returning an error aborts the parse with CallbackInterrupted.
// Calling skip() from within StartFunc causes the just-entered subtree to be
// skipped (its children are consumed but produce no further callbacks) --
// this is how a primary-parser new-pkg callback that returns "skip this
// package" is implemented on top of the framework.
type StartFunc func(to State, elem string, attrs []xml.Attr, skip func()) error

// EndFunc is called on the matching end tag, with the text accumulated if
// the transition requested CaptureText.
type EndFunc func(state State, elem string, text string) error

// WarnFunc delivers a Warning; a non-nil return escalates it.
type WarnFunc func(w Warning) error

// Parser drives one XML document/snippet through a Table.
type Parser struct {
	table   *Table
	onStart StartFunc
	onEnd   EndFunc
	onWarn  WarnFunc
}

// New creates a Parser. onWarn may be nil, in which case warnings are
// swallowed (never escalated).
func New(table *Table, onStart StartFunc, onEnd EndFunc, onWarn WarnFunc) *Parser {
	return &Parser{table: table, onStart: onStart, onEnd: onEnd, onWarn: onWarn}
}

type frame struct {
	state       State
	elem        string
	captureText bool
	text        strings.Builder
	skip        bool
	skipDepth   int
}

// Run streams r token-by-token through the table starting from initial,
// invoking onStart/onEnd/onWarn as described above. Unknown elements emit
// an UnknownTag warning and are skipped (never fatal), per spec.md §4.E.
func (p *Parser) Run(r io.Reader, initial State) error {
	once.Do(initLibrary)

	dec := xml.NewDecoder(r)
	stack := []frame{{state: initial}}
	var path []string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errs.Wrap(errs.XmlParse, "xml token", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			top := &stack[len(stack)-1]
			name := t.Name.Local
			path = append(path, name)

			// The document element (<metadata>, <filelists>, ...) wraps the
			// records: it is entered without a table lookup or callbacks,
			// and the parse stays in the initial state beneath it.
			if len(path) == 1 {
				stack = append(stack, frame{state: initial})
				continue
			}

			if top.skip {
				top.skipDepth++
				stack = append(stack, frame{skip: true})
				continue
			}

			trans, ok := p.table.lookup(top.state, name)
			if !ok {
				if err := p.warn(Warning{Kind: UnknownTag, Path: strings.Join(path, "/"), Message: name}); err != nil {
					return err
				}
				stack = append(stack, frame{skip: true, skipDepth: 1})
				continue
			}

			nf := frame{state: trans.To, elem: name, captureText: trans.CaptureText}

			skipRequested := false
			skipFn := func() { skipRequested = true }

			if p.onStart != nil {
				if err := p.onStart(trans.To, name, t.Attr, skipFn); err != nil {
					return errs.Wrap(errs.CallbackInterrupted, "start callback", err)
				}
			}

			if skipRequested {
				nf.skip = true
				nf.skipDepth = 1
			}
			stack = append(stack, nf)

		case xml.EndElement:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if len(path) == 0 {
				continue // end of the document element
			}

			if top.skip {
				if len(stack) > 0 {
					parent := &stack[len(stack)-1]
					if parent.skip {
						parent.skipDepth--
					}
				}
				continue
			}

			if p.onEnd != nil {
				if err := p.onEnd(top.state, top.elem, top.text.String()); err != nil {
					return errs.Wrap(errs.CallbackInterrupted, "end callback", err)
				}
			}

			if len(stack) > 0 {
				parent := &stack[len(stack)-1]
				if parent.captureText {
					parent.text.WriteString(top.text.String())
				}
			}

		case xml.CharData:
			top := &stack[len(stack)-1]
			if top.captureText && !top.skip {
				top.text.Write(t)
			}
		}
	}

	return nil
}

// warn delivers w to the configured WarnFunc, if any, and wraps a non-nil
// return into a CallbackInterrupted error.
func (p *Parser) warn(w Warning) error {
	if p.onWarn == nil {
		return nil
	}
	if err := p.onWarn(w); err != nil {
		return errs.Wrap(errs.CallbackInterrupted, w.Path+": "+w.Message, err)
	}
	return nil
}

// Warn delivers w through the same WarnFunc/escalation path Run uses for its
// own UnknownTag warnings. Domain parsers call this from onStart/onEnd to
// raise conditions (an unrecognized attribute value, a missing attribute)
// that the table-driven state machine itself never sees.
func (p *Parser) Warn(w Warning) error {
	return p.warn(w)
}

var once sync.Once

// initLibrary is the lazy, thread-safe, teardown-free initialization spec.md
// §9 asks for (generalizing createrepo_c's explicit xmlInitParser/threads.c
// global once-init, which Go's encoding/xml needs no equivalent of). Kept as a real sync.Once rather than removed outright so
// future global setup (e.g. a shared xml.Decoder CharsetReader registry) has
// an obvious place to live.
func initLibrary() {}
