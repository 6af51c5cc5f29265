package manifest

import (
	"errors"
	"fmt"

	"limedb/pkg/aol"
)

var (
	ErrEncodeBufferTooSmall = errors.New("buffer too small to encode manifest record")
	ErrNotEnoughBytes       = errors.New("not enough bytes to decode manifest record")
)

// Op names the manifest operation that failed.
type Op string

const (
	OpOpen    Op = "open"
	OpAppend  Op = "append"
	OpRewrite Op = "rewrite"
	OpClose   Op = "close"
)

// Error is the single error type returned by File, whatever the backend.
type Error struct {
	Op   Op
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("manifest %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op Op, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// appendError tells a failed write apart from a successful write whose
// follow-up rewrite failed.
func appendError(kind Kind, err error) error {
	if errors.Is(err, aol.ErrRewriteFailed) {
		return newError(OpRewrite, kind, err)
	}
	return newError(OpAppend, kind, err)
}
