package wal

import "bytes"

// Comparator defines a total order over byte keys.
type Comparator interface {
	// Compare returns -1, 0, or +1 depending on whether a is less than,
	// equal to or greater than b.
	Compare(a, b []byte) int
}

// Ascend orders keys bytewise, smallest first.
type Ascend struct{}

func (Ascend) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Descend orders keys bytewise, largest first.
type Descend struct{}

func (Descend) Compare(a, b []byte) int {
	return bytes.Compare(b, a)
}

// ComparatorByName resolves the comparator names accepted in configuration.
func ComparatorByName(name string) (Comparator, bool) {
	switch name {
	case "", "ascend":
		return Ascend{}, true
	case "descend":
		return Descend{}, true
	default:
		return nil, false
	}
}

var (
	_ Comparator = Ascend{}
	_ Comparator = Descend{}
)
