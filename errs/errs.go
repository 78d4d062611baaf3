// Package errs defines the closed error taxonomy shared by every fallible
// call in the module, mirroring createrepo_c's cr_Error domain/code split
// with an idiomatic wrapped Go error.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of failure categories. New members are never
// added silently by callers; the set here is the wire contract between the
// core and anything that inspects errors.Is/As across a package boundary.
type Kind int

const (
	Io Kind = iota
	Memory
	Stat
	Database
	BadArg
	NoFile
	NoDir
	Exists
	UnknownChecksumType
	UnknownCompression
	XmlParse
	XmlBadData
	CallbackInterrupted
	BadPrimaryXml
	BadFilelistsXml
	BadOtherXml
	BadUpdateInfoXml
	Magic
	Gz
	Bz2
	Xz
	Zck
	Crypto
	Http
	SpawnExitCode
	SpawnKilled
	SpawnStopped
	SpawnAbnormal
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "Io"
	case Memory:
		return "Memory"
	case Stat:
		return "Stat"
	case Database:
		return "Database"
	case BadArg:
		return "BadArg"
	case NoFile:
		return "NoFile"
	case NoDir:
		return "NoDir"
	case Exists:
		return "Exists"
	case UnknownChecksumType:
		return "UnknownChecksumType"
	case UnknownCompression:
		return "UnknownCompression"
	case XmlParse:
		return "XmlParse"
	case XmlBadData:
		return "XmlBadData"
	case CallbackInterrupted:
		return "CallbackInterrupted"
	case BadPrimaryXml:
		return "BadPrimaryXml"
	case BadFilelistsXml:
		return "BadFilelistsXml"
	case BadOtherXml:
		return "BadOtherXml"
	case BadUpdateInfoXml:
		return "BadUpdateInfoXml"
	case Magic:
		return "Magic"
	case Gz:
		return "Gz"
	case Bz2:
		return "Bz2"
	case Xz:
		return "Xz"
	case Zck:
		return "Zck"
	case Crypto:
		return "Crypto"
	case Http:
		return "Http"
	case SpawnExitCode:
		return "SpawnExitCode"
	case SpawnKilled:
		return "SpawnKilled"
	case SpawnStopped:
		return "SpawnStopped"
	case SpawnAbnormal:
		return "SpawnAbnormal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried through the module. Path and
// Elem are optional context (file path, XML element) appended to the
// message when present.
type Error struct {
	Kind Kind
	Path string
	Elem string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Path != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, e.Path)
	}
	if e.Elem != "" {
		prefix = fmt.Sprintf("%s <%s>", prefix, e.Elem)
	}
	if e.Msg != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error around a lower-level cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// WithPath attaches a file path to the error for logging/propagation.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithElem attaches an XML element path to the error.
func (e *Error) WithElem(elem string) *Error {
	e.Elem = elem
	return e
}

// Is supports errors.Is(err, Kind) style checks by comparing Kind values
// when the target is itself an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, returning
// ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
