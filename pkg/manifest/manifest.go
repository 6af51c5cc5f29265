package manifest

import (
	"iter"

	"limedb/pkg/aol"
)

// Manifest is the record folded from every manifest entry seen so far.
type Manifest struct {
	last Record
	opts Options
}

func newManifest(opts Options) *Manifest {
	return &Manifest{opts: opts}
}

// Insert folds the entry's record into the current watermark.
func (m *Manifest) Insert(e aol.Entry[Record]) error {
	m.fold(e.Data)
	return nil
}

func (m *Manifest) fold(r Record) {
	m.last.LastFileID.MaxAssign(r.LastFileID)
	m.last.LastCompactVersion = max(m.last.LastCompactVersion, r.LastCompactVersion)
}

// InsertBatch folds entries in the given order.
func (m *Manifest) InsertBatch(entries []aol.Entry[Record]) error {
	for _, e := range entries {
		if err := m.Insert(e); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops the watermark back to the zero record.
func (m *Manifest) Clear() error {
	m.last = Record{}
	return nil
}

// ShouldRewrite reports whether a MANIFEST holding the given number of
// entries, of size bytes, has outgrown the configured limits.
func (m *Manifest) ShouldRewrite(size int64, entries int) bool {
	return entries > m.opts.rewriteThreshold() || size > int64(m.opts.MaximumSize)
}

// Entries yields the single creation entry that reproduces the watermark.
func (m *Manifest) Entries() iter.Seq[aol.Entry[Record]] {
	last := m.last
	return func(yield func(aol.Entry[Record]) bool) {
		yield(aol.Creation(last))
	}
}

func (m *Manifest) LastRecord() Record {
	return m.last
}

func (m *Manifest) Options() Options {
	return m.opts
}

var _ aol.Snapshot[Record] = (*Manifest)(nil)
