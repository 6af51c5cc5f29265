package manifest

import (
	"encoding/binary"
	"fmt"

	"limedb/pkg/types"
)

// EncodedSize is the size of every encoded Record:
// last file id (4 bytes, LE) | last compaction version (8 bytes, LE).
const EncodedSize = 4 + 8

// Record is the watermark state of the store.
type Record struct {
	LastFileID         types.FileID `json:"last_file_id"`
	LastCompactVersion uint64       `json:"last_compact_version"`
}

// Merge returns the field-wise maximum of r and other.
//
// Merge is associative, commutative and idempotent, so replaying a log with
// duplicated or reordered entries always folds to the same record.
func (r Record) Merge(other Record) Record {
	return Record{
		LastFileID:         r.LastFileID.Max(other.LastFileID),
		LastCompactVersion: max(r.LastCompactVersion, other.LastCompactVersion),
	}
}

// Subsumes reports whether merging other into r would leave r unchanged.
func (r Record) Subsumes(other Record) bool {
	return r.Merge(other) == r
}

func (r Record) EncodedSize() int {
	return EncodedSize
}

// Encode writes r into the first EncodedSize bytes of buf.
func (r Record) Encode(buf []byte) (int, error) {
	if len(buf) < EncodedSize {
		return 0, fmt.Errorf("%w: have %d bytes", ErrEncodeBufferTooSmall, len(buf))
	}

	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.LastFileID))
	binary.LittleEndian.PutUint64(buf[4:12], r.LastCompactVersion)
	return EncodedSize, nil
}

// DecodeRecord reads a Record from the first EncodedSize bytes of buf.
func DecodeRecord(buf []byte) (int, Record, error) {
	if len(buf) < EncodedSize {
		return 0, Record{}, fmt.Errorf("%w: have %d bytes", ErrNotEnoughBytes, len(buf))
	}

	return EncodedSize, Record{
		LastFileID:         types.FileID(binary.LittleEndian.Uint32(buf[0:4])),
		LastCompactVersion: binary.LittleEndian.Uint64(buf[4:12]),
	}, nil
}

func (r Record) String() string {
	return fmt.Sprintf("{fid: %d, compact_version: %d}", r.LastFileID, r.LastCompactVersion)
}

// recordCodec plugs the Record encoding into the append log.
type recordCodec struct{}

func (recordCodec) EncodedSize(r Record) int {
	return r.EncodedSize()
}

func (recordCodec) Encode(r Record, buf []byte) (int, error) {
	return r.Encode(buf)
}

func (recordCodec) Decode(buf []byte) (int, Record, error) {
	return DecodeRecord(buf)
}
