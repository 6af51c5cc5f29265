package aol

import "iter"

// EntryFlag marks what an entry means to the snapshot it is folded into.
type EntryFlag uint8

const (
	FlagCreation EntryFlag = 1
	// FlagDeletion is reserved for snapshots that track removals.
	FlagDeletion EntryFlag = 2
)

func (f EntryFlag) valid() bool {
	return f == FlagCreation || f == FlagDeletion
}

func (f EntryFlag) String() string {
	switch f {
	case FlagCreation:
		return "creation"
	case FlagDeletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// Entry is a single logical record of the log.
type Entry[T any] struct {
	Flag EntryFlag
	Data T
}

// Creation wraps data into a creation entry.
func Creation[T any](data T) Entry[T] {
	return Entry[T]{Flag: FlagCreation, Data: data}
}

// Codec turns entry payloads into bytes and back.
type Codec[T any] interface {
	// EncodedSize returns the exact number of bytes Encode writes for v.
	EncodedSize(v T) int
	Encode(v T, buf []byte) (int, error)
	Decode(buf []byte) (int, T, error)
}

// Snapshot is the in-memory state a log folds its entries into.
//
// The log owns when the snapshot is fed; the snapshot owns what the entries
// mean and when the file has grown enough to be rewritten.
type Snapshot[T any] interface {
	Insert(e Entry[T]) error
	InsertBatch(entries []Entry[T]) error
	Clear() error
	// ShouldRewrite is consulted after every append with the current file
	// size in bytes and the number of entries the file holds.
	ShouldRewrite(size int64, entries int) bool
	// Entries yields the minimal sequence of entries reproducing the snapshot.
	Entries() iter.Seq[Entry[T]]
}
