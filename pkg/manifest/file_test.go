package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limedb/pkg/aol"
)

func TestFile_MemoryScenario(t *testing.T) {
	f, err := Open("", DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, KindMemory, f.Kind())
	assert.Equal(t, Record{}, f.LastRecord())
	assert.False(t, f.ShouldRewrite())

	first := Record{LastFileID: 3, LastCompactVersion: 5}
	require.NoError(t, f.Append(aol.Creation(first)))
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 1, LastCompactVersion: 9})))
	assert.Equal(t, Record{LastFileID: 3, LastCompactVersion: 9}, f.LastRecord())

	require.NoError(t, f.Append(aol.Creation(first)))
	assert.Equal(t, Record{LastFileID: 3, LastCompactVersion: 9}, f.LastRecord())

	var snapshot []aol.Entry[Record]
	for e := range f.Entries() {
		snapshot = append(snapshot, e)
	}
	require.Len(t, snapshot, 1)
	assert.Equal(t, f.LastRecord(), snapshot[0].Data)
}

func TestFile_MemoryNeverRewrites(t *testing.T) {
	f, err := Open("", DefaultOptions().WithRewriteThreshold(0).WithMaximumSize(0))
	require.NoError(t, err)

	require.NoError(t, f.AppendBatch(creations([]Record{{LastFileID: 1}, {LastFileID: 2}})))
	assert.False(t, f.ShouldRewrite())
	assert.Equal(t, Record{LastFileID: 2}, f.LastRecord())
}

func TestFile_DiskCreatesManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	f, err := Open(dir, DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, KindDisk, f.Kind())
	assert.Equal(t, Record{}, f.LastRecord())

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
}

func TestFile_DiskReplay(t *testing.T) {
	dir := t.TempDir()

	f, err := Open(dir, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 3, LastCompactVersion: 5})))
	require.NoError(t, f.AppendBatch(creations([]Record{
		{LastFileID: 1, LastCompactVersion: 9},
		{LastFileID: 3, LastCompactVersion: 5},
	})))
	want := f.LastRecord()
	require.Equal(t, Record{LastFileID: 3, LastCompactVersion: 9}, want)
	require.Equal(t, 3, f.disk.log.Len())
	require.NoError(t, f.Close())

	reopened, err := Open(dir, DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, want, reopened.LastRecord())
	assert.Equal(t, 3, reopened.disk.log.Len())
}

func TestFile_DiskBatchMatchesSequentialAppends(t *testing.T) {
	records := []Record{
		{LastFileID: 7, LastCompactVersion: 1},
		{LastFileID: 2, LastCompactVersion: 4},
		{LastFileID: 5, LastCompactVersion: 3},
	}

	seq, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	defer seq.Close()
	for _, r := range records {
		require.NoError(t, seq.Append(aol.Creation(r)))
	}

	batch, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	defer batch.Close()
	require.NoError(t, batch.AppendBatch(creations(records)))

	assert.Equal(t, seq.LastRecord(), batch.LastRecord())
	assert.Equal(t, seq.disk.log.Size(), batch.disk.log.Size())
}

func TestFile_DiskRewriteOnEntryCount(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions().WithRewriteThreshold(1).WithMaximumSize(64)

	f, err := Open(dir, opts)
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 10, LastCompactVersion: uint64(i)})))
		assert.LessOrEqual(t, f.disk.log.Size(), int64(64))
	}
	want := f.LastRecord()
	require.NoError(t, f.Close())

	assertSingleEntry(t, dir, opts, want)
}

func TestFile_DiskRewriteOnSize(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions().WithMaximumSize(64)

	f, err := Open(dir, opts)
	require.NoError(t, err)

	// header (16) + 3 frames (21 each) crosses 64 bytes on the third append
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 1, LastCompactVersion: 1})))
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 2, LastCompactVersion: 7})))
	require.Equal(t, 2, f.disk.log.Len())
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 3, LastCompactVersion: 2})))
	require.Equal(t, 1, f.disk.log.Len())

	want := f.LastRecord()
	assert.Equal(t, Record{LastFileID: 3, LastCompactVersion: 7}, want)
	require.NoError(t, f.Close())

	assertSingleEntry(t, dir, opts, want)
}

// assertSingleEntry checks that the MANIFEST in dir holds exactly one entry
// decoding to want.
func assertSingleEntry(t *testing.T, dir string, opts Options, want Record) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	// header (16) + checksum (4) + flag (1) + length (4) + payload
	require.Len(t, data, 16+9+EncodedSize)
	_, rec, err := DecodeRecord(data[16+9:])
	require.NoError(t, err)
	assert.Equal(t, want, rec)

	reopened, err := Open(dir, opts)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 1, reopened.disk.log.Len())
	assert.Equal(t, want, reopened.LastRecord())
}

func TestFile_DiskVersionMismatch(t *testing.T) {
	dir := t.TempDir()

	f, err := Open(dir, DefaultOptions().WithVersion(1))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(dir, DefaultOptions().WithVersion(2))
	require.Error(t, err)

	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, OpOpen, merr.Op)
	assert.Equal(t, KindDisk, merr.Kind)
	assert.ErrorIs(t, err, aol.ErrVersionMismatch)
}

func TestFile_DiskCorruptRecordFailsOpen(t *testing.T) {
	dir := t.TempDir()

	f, err := Open(dir, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 1})))
	require.NoError(t, f.Close())

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-3] ^= 0x10
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = Open(dir, DefaultOptions())
	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, OpOpen, merr.Op)
	assert.ErrorIs(t, err, aol.ErrCorrupted)
}

func TestFile_DiskOpenFailsOnFileInPlaceOfDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, err := Open(path, DefaultOptions())
	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, OpOpen, merr.Op)
}

func TestFile_AppendFailureKeepsWatermark(t *testing.T) {
	f, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, f.Append(aol.Creation(Record{LastFileID: 2, LastCompactVersion: 2})))
	require.NoError(t, f.Close())

	err = f.Append(aol.Creation(Record{LastFileID: 9, LastCompactVersion: 9}))
	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, OpAppend, merr.Op)
	assert.ErrorIs(t, err, aol.ErrClosed)
	assert.Equal(t, Record{LastFileID: 2, LastCompactVersion: 2}, f.LastRecord())
}

func TestFile_Options(t *testing.T) {
	opts := DefaultOptions().WithVersion(3).WithMaximumSize(4096)

	mem, err := Open("", opts)
	require.NoError(t, err)
	assert.Equal(t, opts, mem.Options())

	disk, err := Open(t.TempDir(), opts)
	require.NoError(t, err)
	defer disk.Close()
	assert.Equal(t, opts, disk.Options())
}
