package wal

import (
	"log/slog"
	"sync/atomic"

	"limedb/pkg/types"
)

// Version0 is the version tag every key is written and looked up at.
const Version0 types.Version = 0

// generations is published as a whole so readers never see a half-done swap.
type generations struct {
	// sealed; replaced only by rotation
	old *SkipIndex
	// mutable; nil until the first rotation
	latest *SkipIndex
}

func (g *generations) active() *SkipIndex {
	if g.latest != nil {
		return g.latest
	}
	return g.old
}

// Wal is a two-generation index over recently written keys.
//
// Until the first rotation the only generation is old, and it takes writes.
// After that, writes land in latest and old is frozen. Reads check latest
// first and fall back to old on a miss; an entry in latest shadows old.
//
// Wal never rotates by itself: the owner decides when to seal a generation.
// Rotate and Replace must not run concurrently with Insert.
type Wal struct {
	cmp  Comparator
	gens atomic.Pointer[generations]
}

func New(cmp Comparator) *Wal {
	if cmp == nil {
		cmp = Ascend{}
	}

	w := &Wal{cmp: cmp}
	w.gens.Store(&generations{old: NewSkipIndex(cmp)})
	return w
}

// Contains reports whether key is present in either generation.
func (w *Wal) Contains(key types.Key) bool {
	g := w.gens.Load()
	if g.latest != nil && g.latest.Contains(Version0, key) {
		return true
	}
	return g.old.Contains(Version0, key)
}

// Get returns a copy of the entry for key from the newest generation that
// holds it.
func (w *Wal) Get(key types.Key) (Entry, bool) {
	g := w.gens.Load()
	if g.latest != nil {
		if e, ok := g.latest.Get(Version0, key); ok {
			return e, true
		}
	}
	return g.old.Get(Version0, key)
}

// Insert writes key into the active generation.
func (w *Wal) Insert(key types.Key, value types.Value) {
	w.gens.Load().active().Insert(Version0, key, value)
}

// Rotate seals the active generation into old and installs an empty latest.
// It returns the generation that stopped being readable, or nil on the first
// rotation, when the active generation already was old.
func (w *Wal) Rotate() *SkipIndex {
	for {
		cur := w.gens.Load()
		next := &generations{
			old:    cur.active(),
			latest: NewSkipIndex(w.cmp),
		}
		if !w.gens.CompareAndSwap(cur, next) {
			continue
		}

		var retired *SkipIndex
		if cur.latest != nil {
			retired = cur.old
		}
		slog.Debug("wal rotated", "sealed_entries", next.old.Len(), "retired", retired != nil)
		return retired
	}
}

// Replace installs both generations at once. A nil old is replaced by an
// empty index; a nil latest makes old the active generation again.
func (w *Wal) Replace(old, latest *SkipIndex) {
	if old == nil {
		old = NewSkipIndex(w.cmp)
	}
	w.gens.Store(&generations{old: old, latest: latest})
}

// Generations returns the current old and latest generations.
func (w *Wal) Generations() (old, latest *SkipIndex) {
	g := w.gens.Load()
	return g.old, g.latest
}

// Active returns the generation Insert writes into.
func (w *Wal) Active() *SkipIndex {
	return w.gens.Load().active()
}
