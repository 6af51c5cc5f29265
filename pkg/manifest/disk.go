package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"limedb/pkg/aol"
)

// FileName is the name of the manifest log inside the store directory.
const FileName = "MANIFEST"

type diskManifest struct {
	log *aol.Log[Record, *Manifest]
}

// openDiskManifest opens <dir>/MANIFEST and replays it.
func openDiskManifest(dir string, opts Options) (*diskManifest, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	log, err := aol.Open[Record](
		filepath.Join(dir, FileName),
		newManifest(opts),
		recordCodec{},
		aol.DefaultOptions().WithMagicVersion(opts.Version),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("manifest opened",
		"path", log.Path(),
		"entries", log.Len(),
		"size", log.Size(),
		"last", log.Snapshot().LastRecord().String(),
	)

	return &diskManifest{log: log}, nil
}

func (d *diskManifest) append(e aol.Entry[Record]) error {
	return d.log.Append(e)
}

func (d *diskManifest) appendBatch(entries []aol.Entry[Record]) error {
	return d.log.AppendBatch(entries)
}

func (d *diskManifest) shouldRewrite() bool {
	return d.log.Snapshot().ShouldRewrite(d.log.Size(), d.log.Len())
}

func (d *diskManifest) lastRecord() Record {
	return d.log.Snapshot().LastRecord()
}

func (d *diskManifest) close() error {
	return d.log.Close()
}
