package manifest

import (
	"iter"

	"limedb/pkg/aol"
)

// memoryManifest keeps the watermark in memory only. Nothing is persisted, so
// there is never anything to rewrite.
type memoryManifest struct {
	manifest *Manifest
}

func newMemoryManifest(opts Options) *memoryManifest {
	return &memoryManifest{manifest: newManifest(opts)}
}

func (m *memoryManifest) append(e aol.Entry[Record]) {
	m.manifest.fold(e.Data)
}

func (m *memoryManifest) appendBatch(entries []aol.Entry[Record]) {
	for _, e := range entries {
		m.manifest.fold(e.Data)
	}
}

func (m *memoryManifest) shouldRewrite() bool {
	return false
}

func (m *memoryManifest) entries() iter.Seq[aol.Entry[Record]] {
	return m.manifest.Entries()
}

func (m *memoryManifest) lastRecord() Record {
	return m.manifest.LastRecord()
}
