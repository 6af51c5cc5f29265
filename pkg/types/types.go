package types

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// Value is an immutable byte slice type alias used for clarity.
type Value = []byte

// Version tags an entry of the key index.
type Version = uint64

// FileID identifies a physical data segment.
//
// Values only grow during a store lifetime: the allocator advances it with
// NextAssign and replay combines ids with Max. Overflow past math.MaxUint32
// wraps like any uint32 and is not handled.
type FileID uint32

// Next returns the id following f without modifying f.
func (f FileID) Next() FileID {
	return f + 1
}

// NextAssign advances f by one.
func (f *FileID) NextAssign() {
	*f++
}

// Max returns the larger of f and other.
func (f FileID) Max(other FileID) FileID {
	return max(f, other)
}

// MaxAssign sets f to the larger of f and other.
func (f *FileID) MaxAssign(other FileID) {
	*f = max(*f, other)
}
