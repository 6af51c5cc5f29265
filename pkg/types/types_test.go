package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileID_Next(t *testing.T) {
	var f FileID
	n := f.Next()

	assert.Equal(t, FileID(0), f, "Next must not mutate the receiver")
	assert.Equal(t, FileID(1), n)

	f.NextAssign()
	f.NextAssign()
	assert.Equal(t, FileID(2), f)
}

func TestFileID_Max(t *testing.T) {
	a, b := FileID(3), FileID(7)

	assert.Equal(t, FileID(7), a.Max(b))
	assert.Equal(t, FileID(7), b.Max(a))
	assert.Equal(t, FileID(3), a, "Max must not mutate the receiver")

	a.MaxAssign(b)
	assert.Equal(t, FileID(7), a)

	// smaller values never move the watermark back
	a.MaxAssign(FileID(1))
	assert.Equal(t, FileID(7), a)
}
