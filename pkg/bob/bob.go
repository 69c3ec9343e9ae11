// Package bob stores a single binary object in a flash-friendly
// container file. Each replacement of the object appends a record
// instead of rewriting the file; whenever the log would outgrow a
// cue-sized region the object is rewritten at the next cue-aligned
// offset and the dead prefix is punched out as a sparse hole. Opening a
// file replays the surviving records to reconstruct the current object.
//
// A handle must not be shared with another handle on the same file; the
// package takes no lock. Within those limits distinct handles may be
// used from distinct goroutines freely.
package bob

import (
	"BobFS/pkg/utils"
	"BobFS/pkg/varint"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("bob")

// ErrCorrupt reports a byte sequence that is not a valid container:
// malformed varints, unknown record or config ids, truncated records,
// or an out-of-bounds geometry.
var ErrCorrupt = errors.New("illegal byte sequence")

// ErrClosed reports an operation on a closed or never-opened handle.
var ErrClosed = errors.New("handle is closed")

// BOB is an exclusive handle on a container file.
//
// data holds the most recently committed bytes. After a Set it is the
// whole encoded rewrite record and offset marks where the payload
// begins, so the view returned by Current aliases the record without a
// second allocation.
type BOB struct {
	len    int
	offset int
	data   []byte
	file   *bobFile
}

// Create creates the file at path and returns a handle to the empty
// container. It fails if path already exists. cfg may be nil for all
// defaults; only resolved values are persisted.
func Create(cfg *Config, path string) (*BOB, error) {
	file, err := createFile(cfg, path)
	if err != nil {
		return nil, err
	}
	return &BOB{file: file}, nil
}

// Open opens an existing container, replays its records and returns a
// handle positioned for appending.
func Open(path string) (*BOB, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	data, err := file.parse()
	if err != nil {
		_ = file.close()
		return nil, err
	}
	return &BOB{len: len(data), data: data, file: file}, nil
}

// Close commits buffered data, syncs and releases the handle. The
// handle is unusable afterwards even if an error is returned.
func (b *BOB) Close() error {
	if b == nil || b.file == nil {
		return ErrClosed
	}
	file := b.file
	b.file = nil
	b.data = nil
	b.len = 0
	b.offset = 0
	return file.close()
}

// Set replaces the stored object with data and commits the record. If
// the record does not fit in the current cue a new segment is started
// at the next cue boundary and the previous segments are punched out
// after the write committed. If the cue check, cue rotation, write or
// commit fails, the previously visible bytes remain intact. A failure of the
// final hole punch is returned after the record committed, with the new
// bytes already current.
func (b *BOB) Set(data []byte) error {
	if b == nil || b.file == nil {
		return ErrClosed
	}
	var vbuf [varint.MaxLen]byte
	vlen := varint.Encode(vbuf[:], uint64(len(data)))
	rec := make([]byte, 0, 1+vlen+len(data))
	rec = append(rec, blockIDRewrite)
	rec = append(rec, vbuf[:vlen]...)
	rec = append(rec, data...)

	remaining, err := b.file.cueRemaining()
	if err != nil {
		return err
	}
	var startOff int64
	if remaining < int64(len(rec)) {
		if startOff, err = b.file.newCue(); err != nil {
			return err
		}
	}
	if err := b.file.write(rec); err != nil {
		return err
	}
	if err := b.file.writeCommit(); err != nil {
		return err
	}
	b.data = rec
	b.len = len(rec)
	b.offset = len(rec) - len(data)
	if startOff > 0 {
		return b.file.zap(startOff)
	}
	return nil
}

// Flush commits buffered data and syncs the file to disk.
func (b *BOB) Flush() error {
	if b == nil || b.file == nil {
		return ErrClosed
	}
	return b.file.flush()
}

// Current returns the currently committed bytes. The slice aliases
// memory owned by the handle and is invalidated by the next Set or
// Close. A container with no records yields nil.
func (b *BOB) Current() []byte {
	if b == nil || b.data == nil {
		return nil
	}
	return b.data[b.offset:b.len]
}

// Len returns the length of the currently committed bytes.
func (b *BOB) Len() int {
	if b == nil {
		return 0
	}
	return b.len - b.offset
}

// BlockSize returns the resolved block size of the open container.
func (b *BOB) BlockSize() int {
	if b == nil || b.file == nil {
		return 0
	}
	return b.file.blocksize
}

// CueSize returns the resolved cue size of the open container.
func (b *BOB) CueSize() int {
	if b == nil || b.file == nil {
		return 0
	}
	return b.file.cuesize
}
