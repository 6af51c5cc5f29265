package aol

import "errors"

var (
	ErrBadMagic        = errors.New("aol: bad magic")
	ErrVersionMismatch = errors.New("aol: magic version mismatch")
	ErrCorrupted       = errors.New("aol: corrupted entry")
	ErrClosed          = errors.New("aol: log closed")
	ErrRewriteFailed   = errors.New("aol: rewrite failed")
	// ErrBroken is returned by every write once a rewrite replaced the file
	// on disk but the log could not switch over to it.
	ErrBroken = errors.New("aol: log unusable after rewrite")
)
