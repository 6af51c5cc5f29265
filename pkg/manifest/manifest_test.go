package manifest

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limedb/pkg/aol"
)

func creations(records []Record) []aol.Entry[Record] {
	out := make([]aol.Entry[Record], len(records))
	for i, r := range records {
		out[i] = aol.Creation(r)
	}
	return out
}

func TestManifest_InsertIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for _, rec := range randomRecords(r, 32) {
		m := newManifest(DefaultOptions())
		require.NoError(t, m.Insert(aol.Creation(Record{LastFileID: 10, LastCompactVersion: 10})))

		require.NoError(t, m.Insert(aol.Creation(rec)))
		once := m.LastRecord()
		require.NoError(t, m.Insert(aol.Creation(rec)))

		require.Equal(t, once, m.LastRecord())
	}
}

func TestManifest_InsertBatchIsOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	records := randomRecords(r, 50)

	base := newManifest(DefaultOptions())
	require.NoError(t, base.InsertBatch(creations(records)))
	want := base.LastRecord()

	for range 20 {
		shuffled := append([]Record(nil), records...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		m := newManifest(DefaultOptions())
		require.NoError(t, m.InsertBatch(creations(shuffled)))
		require.Equal(t, want, m.LastRecord())
	}
}

func TestManifest_IsMonotonic(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 10))
	records := randomRecords(r, 100)

	m := newManifest(DefaultOptions())
	for _, rec := range records {
		require.NoError(t, m.Insert(aol.Creation(rec)))
	}

	last := m.LastRecord()
	for _, rec := range records {
		assert.GreaterOrEqual(t, last.LastFileID, rec.LastFileID)
		assert.GreaterOrEqual(t, last.LastCompactVersion, rec.LastCompactVersion)
	}
}

func TestManifest_Clear(t *testing.T) {
	m := newManifest(DefaultOptions())
	require.NoError(t, m.Insert(aol.Creation(Record{LastFileID: 4, LastCompactVersion: 2})))

	require.NoError(t, m.Clear())
	assert.Equal(t, Record{}, m.LastRecord())
}

func TestManifest_EntriesYieldsSingleCreation(t *testing.T) {
	m := newManifest(DefaultOptions())
	require.NoError(t, m.InsertBatch(creations([]Record{
		{LastFileID: 2, LastCompactVersion: 8},
		{LastFileID: 6, LastCompactVersion: 1},
	})))

	var got []aol.Entry[Record]
	for e := range m.Entries() {
		got = append(got, e)
	}

	require.Len(t, got, 1)
	assert.Equal(t, aol.FlagCreation, got[0].Flag)
	assert.Equal(t, Record{LastFileID: 6, LastCompactVersion: 8}, got[0].Data)
}

func TestManifest_ShouldRewrite(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		size    int64
		entries int
		want    bool
	}{
		{"below limits", DefaultOptions(), 100, 10, false},
		{"size exceeded", DefaultOptions(), DefaultMaximumSize + 1, 10, true},
		{"size at limit", DefaultOptions(), DefaultMaximumSize, 10, false},
		{"entries exceeded", DefaultOptions().WithRewriteThreshold(5), 100, 6, true},
		{"entries at limit", DefaultOptions().WithRewriteThreshold(5), 100, 5, false},
		{"threshold clamped", DefaultOptions().WithRewriteThreshold(1 << 30).WithMaximumSize(1 << 30), 100, MaxRewriteThreshold + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManifest(tt.opts)
			assert.Equal(t, tt.want, m.ShouldRewrite(tt.size, tt.entries))
		})
	}
}
