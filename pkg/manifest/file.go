package manifest

import (
	"fmt"
	"iter"

	"limedb/pkg/aol"
)

// Kind is the backend a File is built on.
type Kind uint8

const (
	KindMemory Kind = iota
	KindDisk
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindDisk:
		return "disk"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// File records watermark updates either in memory or in a MANIFEST log.
//
// Exactly one backend is set, selected by kind. File is not safe for
// concurrent use; the owner serializes Append, AppendBatch and LastRecord.
type File struct {
	kind   Kind
	memory *memoryManifest
	disk   *diskManifest
}

// Open builds a disk backed File over <dir>/MANIFEST, replaying whatever is
// already there, or a volatile in-memory File when dir is empty.
func Open(dir string, opts Options) (*File, error) {
	if dir == "" {
		return &File{kind: KindMemory, memory: newMemoryManifest(opts)}, nil
	}

	disk, err := openDiskManifest(dir, opts)
	if err != nil {
		return nil, newError(OpOpen, KindDisk, err)
	}
	return &File{kind: KindDisk, disk: disk}, nil
}

// Append records one watermark update and folds it into LastRecord. On error
// LastRecord is unchanged, unless the error is an OpRewrite one: then the
// update itself was persisted and only compaction of the log failed.
func (f *File) Append(e aol.Entry[Record]) error {
	switch f.kind {
	case KindMemory:
		f.memory.append(e)
		return nil
	case KindDisk:
		return appendError(f.kind, f.disk.append(e))
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}

// AppendBatch records entries as a single write. The folded result equals
// appending each entry in order.
func (f *File) AppendBatch(entries []aol.Entry[Record]) error {
	switch f.kind {
	case KindMemory:
		f.memory.appendBatch(entries)
		return nil
	case KindDisk:
		return appendError(f.kind, f.disk.appendBatch(entries))
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}

// LastRecord returns the current watermark.
func (f *File) LastRecord() Record {
	switch f.kind {
	case KindMemory:
		return f.memory.lastRecord()
	case KindDisk:
		return f.disk.lastRecord()
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}

// ShouldRewrite reports whether the backend would compact its log now.
func (f *File) ShouldRewrite() bool {
	switch f.kind {
	case KindMemory:
		return f.memory.shouldRewrite()
	case KindDisk:
		return f.disk.shouldRewrite()
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}

// Entries yields the minimal entry sequence reproducing LastRecord.
func (f *File) Entries() iter.Seq[aol.Entry[Record]] {
	switch f.kind {
	case KindMemory:
		return f.memory.entries()
	case KindDisk:
		return f.disk.log.Snapshot().Entries()
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}

func (f *File) Options() Options {
	switch f.kind {
	case KindMemory:
		return f.memory.manifest.Options()
	case KindDisk:
		return f.disk.log.Snapshot().Options()
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}

func (f *File) Kind() Kind {
	return f.kind
}

func (f *File) Close() error {
	switch f.kind {
	case KindMemory:
		return nil
	case KindDisk:
		return newError(OpClose, f.kind, f.disk.close())
	default:
		panic(fmt.Sprintf("manifest: unknown backend %s", f.kind))
	}
}
