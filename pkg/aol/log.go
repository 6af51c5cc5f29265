package aol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	// header: magic (4) | magic version (2) | reserved (2) | created at, unix nanos (8)
	headerSize = 16
	// frame: checksum (4) | flag (1) | payload length (4) | payload
	frameHeaderSize = 9

	rewriteSuffix = ".rewrite"

	maxPayloadSize = 1 << 20
)

var magic = [4]byte{'L', 'I', 'M', 'E'}

// Replaced in tests to inject filesystem faults.
var (
	openFile = os.OpenFile
	syncDir  = syncDirectory
)

// Log is an append-only file of checksummed entries folded into a Snapshot.
//
// Every entry written is replayed into the snapshot on the next Open. When the
// snapshot asks for it, the file is atomically replaced by the snapshot's
// minimal entry sequence.
type Log[T any, S Snapshot[T]] struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	snapshot S
	codec    Codec[T]
	opts     Options

	createdAt time.Time
	size      int64
	entries   int

	// dirDirty is set while the rename of the last rewrite is not yet
	// durable; writes retry the directory sync first.
	dirDirty bool
	// broken holds the reason the log lost its file.
	broken error
}

// Open opens or creates the log at path and replays it into snapshot.
func Open[T any, S Snapshot[T]](path string, snapshot S, codec Codec[T], opts Options) (*Log[T, S], error) {
	path = filepath.Clean(path)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Log[T, S]{
		path:     path,
		file:     file,
		snapshot: snapshot,
		codec:    codec,
		opts:     opts,
	}

	if err := l.load(); err != nil {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close log file", "path", path, "error", cerr)
		}
		return nil, err
	}

	if l.snapshot.ShouldRewrite(l.size, l.entries) {
		if err := l.rewrite(); err != nil {
			if l.file != nil {
				if cerr := l.file.Close(); cerr != nil {
					slog.Warn("failed to close log file", "path", path, "error", cerr)
				}
			}
			return nil, fmt.Errorf("%w: %w", ErrRewriteFailed, err)
		}
	}

	return l, nil
}

// load writes a fresh header into an empty file, or validates the header and
// replays every entry of an existing one.
func (l *Log[T, S]) load() error {
	stat, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if stat.Size() == 0 {
		l.createdAt = time.Now()
		if _, err := l.file.Write(l.header()); err != nil {
			return fmt.Errorf("failed to write log header: %w", err)
		}
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync log header: %w", err)
		}
		l.size = headerSize
		slog.Debug("append log created", "path", l.path, "magic_version", l.opts.MagicVersion)
		return nil
	}

	if err := l.snapshot.Clear(); err != nil {
		return fmt.Errorf("failed to reset snapshot: %w", err)
	}

	reader := bufio.NewReader(io.NewSectionReader(l.file, 0, stat.Size()))
	if err := l.readHeader(reader); err != nil {
		return err
	}

	for {
		entry, n, err := l.readEntry(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to replay entry %d: %w", l.entries, err)
		}

		if err := l.snapshot.Insert(entry); err != nil {
			return fmt.Errorf("failed to fold entry %d: %w", l.entries, err)
		}
		l.entries++
		l.size += int64(n)
	}
	l.size += headerSize

	slog.Debug("append log replayed", "path", l.path, "entries", l.entries, "size", l.size)
	return nil
}

func (l *Log[T, S]) header() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], l.opts.MagicVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(l.createdAt.UnixNano()))
	return buf
}

func (l *Log[T, S]) readHeader(reader io.Reader) error {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("%w: short header: %w", ErrCorrupted, err)
	}

	if [4]byte(buf[0:4]) != magic {
		return ErrBadMagic
	}

	if v := binary.LittleEndian.Uint16(buf[4:6]); v != l.opts.MagicVersion {
		return fmt.Errorf("%w: file has %d, expected %d", ErrVersionMismatch, v, l.opts.MagicVersion)
	}

	l.createdAt = time.Unix(0, int64(binary.LittleEndian.Uint64(buf[8:16])))
	return nil
}

// readEntry returns io.EOF only on a clean frame boundary.
func (l *Log[T, S]) readEntry(reader io.Reader) (Entry[T], int, error) {
	var entry Entry[T]

	hdr := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(reader, hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return entry, 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return entry, 0, fmt.Errorf("%w: truncated frame header", ErrCorrupted)
		}
		return entry, 0, err
	}

	payloadLen := binary.LittleEndian.Uint32(hdr[5:9])
	if payloadLen > maxPayloadSize {
		return entry, 0, fmt.Errorf("%w: payload length %d", ErrCorrupted, payloadLen)
	}
	frame := make([]byte, frameHeaderSize-4+int(payloadLen))
	copy(frame, hdr[4:])
	if _, err := io.ReadFull(reader, frame[frameHeaderSize-4:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return entry, 0, fmt.Errorf("%w: truncated payload", ErrCorrupted)
		}
		return entry, 0, err
	}

	if checksum(frame) != binary.LittleEndian.Uint32(hdr[0:4]) {
		return entry, 0, fmt.Errorf("%w: checksum mismatch", ErrCorrupted)
	}

	entry.Flag = EntryFlag(frame[0])
	if !entry.Flag.valid() {
		return entry, 0, fmt.Errorf("%w: unknown flag %d", ErrCorrupted, frame[0])
	}

	_, data, err := l.codec.Decode(frame[frameHeaderSize-4:])
	if err != nil {
		return entry, 0, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	entry.Data = data

	return entry, frameHeaderSize + int(payloadLen), nil
}

// appendFrame encodes e as one frame at the end of dst.
func (l *Log[T, S]) appendFrame(dst []byte, e Entry[T]) ([]byte, error) {
	n := l.codec.EncodedSize(e.Data)
	off := len(dst)
	dst = append(dst, make([]byte, frameHeaderSize+n)...)
	frame := dst[off:]

	written, err := l.codec.Encode(e.Data, frame[frameHeaderSize:])
	if err != nil {
		return dst[:off], err
	}
	frame = frame[:frameHeaderSize+written]

	frame[4] = byte(e.Flag)
	binary.LittleEndian.PutUint32(frame[5:9], uint32(written))
	binary.LittleEndian.PutUint32(frame[0:4], checksum(frame[4:]))

	return dst[:off+len(frame)], nil
}

func checksum(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// Append writes one entry and folds it into the snapshot.
func (l *Log[T, S]) Append(e Entry[T]) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.write([]Entry[T]{e}); err != nil {
		return err
	}
	if err := l.snapshot.Insert(e); err != nil {
		return fmt.Errorf("failed to fold entry: %w", err)
	}

	return l.maybeRewrite()
}

// AppendBatch writes all entries with a single write and a single sync.
func (l *Log[T, S]) AppendBatch(entries []Entry[T]) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.write(entries); err != nil {
		return err
	}
	if err := l.snapshot.InsertBatch(entries); err != nil {
		return fmt.Errorf("failed to fold batch: %w", err)
	}

	return l.maybeRewrite()
}

// write persists entries or leaves the file as it was.
func (l *Log[T, S]) write(entries []Entry[T]) error {
	if l.broken != nil {
		return fmt.Errorf("%w: %w", ErrBroken, l.broken)
	}
	if l.file == nil {
		return ErrClosed
	}
	if l.dirDirty {
		if err := syncDir(filepath.Dir(l.path)); err != nil {
			return err
		}
		l.dirDirty = false
	}

	var (
		buf []byte
		err error
	)
	for _, e := range entries {
		if buf, err = l.appendFrame(buf, e); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}

	if n, err := l.file.Write(buf); err != nil {
		if n > 0 {
			if terr := l.file.Truncate(l.size); terr != nil {
				slog.Error("failed to drop partial append", "path", l.path, "error", terr)
			}
		}
		return fmt.Errorf("failed to write log: %w", err)
	}

	if l.opts.Sync {
		if err := l.file.Sync(); err != nil {
			if terr := l.file.Truncate(l.size); terr != nil {
				slog.Error("failed to drop unsynced append", "path", l.path, "error", terr)
			}
			return fmt.Errorf("failed to sync log: %w", err)
		}
	}

	l.size += int64(len(buf))
	l.entries += len(entries)
	return nil
}

func (l *Log[T, S]) maybeRewrite() error {
	if !l.snapshot.ShouldRewrite(l.size, l.entries) {
		return nil
	}
	if err := l.rewrite(); err != nil {
		return fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}
	return nil
}

// Rewrite replaces the file with the snapshot's minimal entry sequence.
func (l *Log[T, S]) Rewrite() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.broken != nil {
		return fmt.Errorf("%w: %w", ErrBroken, l.broken)
	}
	if l.file == nil {
		return ErrClosed
	}
	if err := l.rewrite(); err != nil {
		return fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}
	return nil
}

func (l *Log[T, S]) rewrite() error {
	var (
		buf     = l.header()
		entries int
		err     error
	)
	for e := range l.snapshot.Entries() {
		if buf, err = l.appendFrame(buf, e); err != nil {
			return fmt.Errorf("failed to encode snapshot entry: %w", err)
		}
		entries++
	}

	tmpPath := l.path + rewriteSuffix
	if err := writeFileSync(tmpPath, buf); err != nil {
		removeRewriteFile(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		removeRewriteFile(tmpPath)
		return fmt.Errorf("failed to install rewritten log: %w", err)
	}

	// The open descriptor now points at an unlinked file: nothing may be
	// written through it again.
	if cerr := l.file.Close(); cerr != nil {
		slog.Warn("failed to close replaced log file", "path", l.path, "error", cerr)
	}
	l.file = nil

	file, err := openFile(l.path, os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		l.broken = err
		slog.Error("append log lost its file after rewrite", "path", l.path, "error", err)
		return fmt.Errorf("failed to reopen rewritten log: %w", err)
	}

	before := l.size
	l.file = file
	l.size = int64(len(buf))
	l.entries = entries

	if err := syncDir(filepath.Dir(l.path)); err != nil {
		l.dirDirty = true
		return err
	}

	slog.Info("append log rewritten", "path", l.path, "entries", entries, "size_before", before, "size_after", l.size)
	return nil
}

func removeRewriteFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove rewrite file", "path", path, "error", err)
	}
}

func writeFileSync(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create rewrite file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write rewrite file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync rewrite file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close rewrite file: %w", err)
	}

	return nil
}

func syncDirectory(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open log directory: %w", err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			slog.Warn("failed to close log directory", "dir", dir, "error", cerr)
		}
	}()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync log directory: %w", err)
	}
	return nil
}

// Snapshot returns the state folded from every entry written so far.
func (l *Log[T, S]) Snapshot() S {
	return l.snapshot
}

// Size returns the file size in bytes, header included.
func (l *Log[T, S]) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Len returns the number of entries currently stored in the file.
func (l *Log[T, S]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries
}

func (l *Log[T, S]) Path() string {
	return l.path
}

// CreatedAt returns when the log file was first created. Rewrites keep it.
func (l *Log[T, S]) CreatedAt() time.Time {
	return l.createdAt
}

func (l *Log[T, S]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	l.file = nil

	return nil
}
