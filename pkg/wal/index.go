package wal

import (
	"bytes"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"limedb/pkg/types"
)

// Entry is a versioned key/value pair held by an index.
type Entry struct {
	Key     types.Key
	Value   types.Value
	Version types.Version
}

func (e Entry) clone() Entry {
	return Entry{
		Key:     bytes.Clone(e.Key),
		Value:   bytes.Clone(e.Value),
		Version: e.Version,
	}
}

type internalKey struct {
	key     types.Key
	version types.Version
}

type orderedMap = skipmap.FuncMap[internalKey, Entry]

// SkipIndex is an ordered map from (key, version) to Entry. Keys follow the
// comparator; versions of the same key go newest first.
//
// Reads may run concurrently with each other and with writes.
type SkipIndex struct {
	m    *orderedMap
	size atomic.Uint64
}

func NewSkipIndex(cmp Comparator) *SkipIndex {
	if cmp == nil {
		cmp = Ascend{}
	}

	return &SkipIndex{
		m: skipmap.NewFunc[internalKey, Entry](func(a, b internalKey) bool {
			if c := cmp.Compare(a.key, b.key); c != 0 {
				return c < 0
			}
			return a.version > b.version
		}),
	}
}

// Insert stores value under (version, key), replacing any previous value.
// Key and value are copied.
func (s *SkipIndex) Insert(version types.Version, key types.Key, value types.Value) {
	const versionSize = 8

	e := Entry{
		Key:     bytes.Clone(key),
		Value:   bytes.Clone(value),
		Version: version,
	}
	s.m.Store(internalKey{key: e.Key, version: version}, e)
	s.size.Add(uint64(len(key)+len(value)) + versionSize)
}

// Get returns a copy of the entry stored under (version, key).
func (s *SkipIndex) Get(version types.Version, key types.Key) (Entry, bool) {
	e, ok := s.m.Load(internalKey{key: key, version: version})
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

func (s *SkipIndex) Contains(version types.Version, key types.Key) bool {
	_, ok := s.m.Load(internalKey{key: key, version: version})
	return ok
}

// Range calls fn for each entry in index order until fn returns false.
// Entries passed to fn must not be modified.
func (s *SkipIndex) Range(fn func(Entry) bool) {
	s.m.Range(func(_ internalKey, e Entry) bool {
		return fn(e)
	})
}

// Len returns the number of (key, version) pairs stored.
func (s *SkipIndex) Len() int {
	return s.m.Len()
}

// Size returns the bytes written into the index, overwrites included.
func (s *SkipIndex) Size() uint64 {
	return s.size.Load()
}
