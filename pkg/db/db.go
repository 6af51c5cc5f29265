package db

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"limedb/pkg/aol"
	"limedb/pkg/config"
	"limedb/pkg/dberrors"
	"limedb/pkg/manifest"
	"limedb/pkg/types"
	"limedb/pkg/wal"
)

// DB ties the manifest watermarks and the key index together.
//
// Manifest access is serialized by mu. Index reads take no lock; index
// writes and rotations are serialized by writeMu.
type DB struct {
	mu       sync.Mutex
	manifest *manifest.File

	writeMu         sync.Mutex
	wal             *wal.Wal
	rotateThreshold uint64

	closed atomic.Bool
}

func Open(cfg config.DB) (*DB, error) {
	cmp, ok := wal.ComparatorByName(cfg.Wal.Comparator)
	if !ok {
		return nil, fmt.Errorf("%w: unknown comparator %q", dberrors.ErrInvalidArgument, cfg.Wal.Comparator)
	}

	mf, err := manifest.Open(cfg.Path, cfg.Manifest)
	if err != nil {
		return nil, err
	}

	slog.Info("db opened",
		"path", cfg.Path,
		"manifest", mf.Kind().String(),
		"watermark", mf.LastRecord().String(),
	)

	return &DB{
		manifest:        mf,
		wal:             wal.New(cmp),
		rotateThreshold: uint64(max(cfg.Wal.RotateThresholdBytes, 0)),
	}, nil
}

// AllocateFileID durably advances the file id watermark and returns the new id.
func (d *DB) AllocateFileID() (types.FileID, error) {
	ids, err := d.AllocateFileIDs(1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AllocateFileIDs reserves n consecutive file ids with a single manifest write.
func (d *DB) AllocateFileIDs(n int) ([]types.FileID, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot allocate %d file ids", dberrors.ErrInvalidArgument, n)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() {
		return nil, dberrors.ErrClosed
	}

	last := d.manifest.LastRecord()
	ids := make([]types.FileID, n)
	entries := make([]aol.Entry[manifest.Record], n)
	fid := last.LastFileID
	for i := range n {
		fid.NextAssign()
		ids[i] = fid
		entries[i] = aol.Creation(manifest.Record{
			LastFileID:         fid,
			LastCompactVersion: last.LastCompactVersion,
		})
	}

	var err error
	if n == 1 {
		err = d.manifest.Append(entries[0])
	} else {
		err = d.manifest.AppendBatch(entries)
	}
	if err != nil && !isRewriteError(err) {
		return nil, err
	}
	logRewriteError(err)
	return ids, nil
}

// CompleteCompaction records that the compaction generation version finished.
func (d *DB) CompleteCompaction(version uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() {
		return dberrors.ErrClosed
	}

	last := d.manifest.LastRecord()
	if last.Subsumes(manifest.Record{LastCompactVersion: version}) {
		slog.Debug("compaction version already recorded", "version", version, "watermark", last.String())
		return nil
	}

	err := d.manifest.Append(aol.Creation(manifest.Record{
		LastFileID:         last.LastFileID,
		LastCompactVersion: version,
	}))
	if err != nil && !isRewriteError(err) {
		return err
	}
	logRewriteError(err)
	return nil
}

// Watermark returns the current manifest record.
func (d *DB) Watermark() manifest.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.manifest.LastRecord()
}

// Put writes key into the active index generation and rotates it once it
// outgrows the configured threshold.
func (d *DB) Put(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", dberrors.ErrInvalidArgument)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.closed.Load() {
		return dberrors.ErrClosed
	}

	d.wal.Insert(key, value)
	if d.rotateThreshold > 0 && d.wal.Active().Size() >= d.rotateThreshold {
		d.rotate()
	}
	return nil
}

// Get returns a copy of the value stored for key.
func (d *DB) Get(key []byte) ([]byte, error) {
	if d.closed.Load() {
		return nil, dberrors.ErrClosed
	}

	e, ok := d.wal.Get(key)
	if !ok {
		return nil, dberrors.ErrNotFound
	}
	return e.Value, nil
}

func (d *DB) Contains(key []byte) bool {
	return !d.closed.Load() && d.wal.Contains(key)
}

// Rotate seals the active index generation.
func (d *DB) Rotate() error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.closed.Load() {
		return dberrors.ErrClosed
	}

	d.rotate()
	return nil
}

func (d *DB) rotate() {
	retired := d.wal.Rotate()
	if retired != nil {
		slog.Info("index generation retired", "entries", retired.Len(), "bytes", retired.Size())
	}
}

// ManifestKind reports which backend holds the watermarks.
func (d *DB) ManifestKind() manifest.Kind {
	return d.manifest.Kind()
}

// Close waits for in-flight manifest and index writes; none start after it.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.closed.Swap(true) {
		return nil
	}
	if err := d.manifest.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}

	slog.Info("db closed")
	return nil
}

// isRewriteError reports a manifest error raised after the update itself was
// persisted, when only compacting the log failed.
func isRewriteError(err error) bool {
	var merr *manifest.Error
	return errors.As(err, &merr) && merr.Op == manifest.OpRewrite
}

func logRewriteError(err error) {
	if err != nil {
		slog.Warn("manifest rewrite failed, log left uncompacted", "error", err)
	}
}
