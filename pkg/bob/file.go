package bob

import (
	"BobFS/pkg/sys"
	"BobFS/pkg/varint"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// fileMagic marks the very start of a container file. It appears only at
// offset 0 of the original first segment; segments started later by cue
// rotation begin directly with the header pairs, and a reclaimed file
// therefore opens at a cue-aligned offset with no magic at all.
var fileMagic = [4]byte{'B', 'O', 'B', 0}

// Header config ids, serialized as varint pairs.
const (
	confIDEnd       = 0
	confIDBlockSize = 1
	confIDCueSize   = 2
)

// blockIDRewrite identifies a record whose payload replaces the whole
// object. Other ids are reserved.
const blockIDRewrite = 1

// bobFile is the buffered block-aligned file under a handle.
//
// buf is a single block-sized scratch buffer. While an existing file is
// parsed it is a read buffer: [pos, written) holds prefetched input.
// Afterwards it is a write buffer: [written, pos) holds bytes not yet
// written to fd. parse flips the mode exactly once by setting both
// cursors to blocksize, which forces the next write through the slow
// path and realigns it to a block boundary.
type bobFile struct {
	fd        int
	blocksize int
	cuesize   int
	buf       []byte
	pos       int
	written   int
}

// createFile opens path exclusively, resolves the geometry and buffers
// the first segment header. cfg may be nil for all defaults.
func createFile(cfg *Config, path string) (*bobFile, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	fd, err := sys.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	f := &bobFile{fd: fd}
	f.blocksize = realBlockSize(fd, cfg.BlockSize)
	f.cuesize = realCueSize(f.blocksize, cfg.CueSize)
	if err := f.initBuf(); err != nil {
		_ = sys.Close(fd)
		_ = sys.Unlink(path)
		return nil, err
	}
	if err := f.writeHeader(true); err != nil {
		_ = sys.Close(fd)
		_ = sys.Unlink(path)
		return nil, err
	}
	return f, nil
}

// openFile opens an existing file and reads its header. A successful
// call must be followed by parse, otherwise writing will trash the file.
func openFile(path string) (*bobFile, error) {
	// The true block size is not known until the header has been read,
	// so start with a provisional buffer and resize it later if needed.
	f := &bobFile{
		blocksize: DefaultBlockSize,
		buf:       make([]byte, DefaultBlockSize),
	}
	fd, err := sys.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	f.fd = fd
	// Skip the hole left by reclamation, if any.
	off, err := sys.Seek(fd, 0, unix.SEEK_DATA)
	if err != nil {
		_ = sys.Close(fd)
		return nil, errors.Wrapf(err, "seek to data in %s", path)
	}
	if off == 0 {
		var magic [4]byte
		if err := f.read(magic[:]); err != nil {
			_ = sys.Close(fd)
			return nil, err
		}
		if magic != fileMagic {
			_ = sys.Close(fd)
			return nil, errors.Wrapf(ErrCorrupt, "bad magic %q", magic[:])
		}
	}
	if err := f.readHeader(); err != nil {
		_ = sys.Close(fd)
		return nil, err
	}
	return f, nil
}

// initBuf reserves the first block and sets up the scratch buffer.
func (f *bobFile) initBuf() error {
	if err := sys.FallocateNext(f.fd, int64(f.blocksize)); err != nil {
		return errors.Wrap(err, "preallocate first block")
	}
	f.buf = make([]byte, f.blocksize)
	f.pos = 0
	f.written = 0
	return nil
}

// write appends p to the file through the scratch buffer. No write(2)
// is issued while the data still fits in the buffer.
func (f *bobFile) write(p []byte) error {
	if f.pos+len(p) <= f.blocksize {
		copy(f.buf[f.pos:], p)
		f.pos += len(p)
		return nil
	}
	// Reserve file space up to the next block boundary past the data.
	alloc := int64(f.pos + len(p))
	if rem := alloc % int64(f.blocksize); rem != 0 {
		alloc += int64(f.blocksize) - rem
	}
	if err := sys.FallocateNext(f.fd, alloc-int64(f.pos)); err != nil {
		return errors.Wrap(err, "preallocate")
	}
	// Flush the dirty prefix, then write whole blocks straight from p.
	if f.written != f.pos {
		if err := sys.Write(f.fd, f.buf[f.written:f.pos]); err != nil {
			return errors.Wrap(err, "flush buffer")
		}
	}
	surplus := f.blocksize - f.pos
	numblocks := (len(p) - surplus) / f.blocksize
	towrite := surplus + numblocks*f.blocksize
	if err := sys.Write(f.fd, p[:towrite]); err != nil {
		return errors.Wrap(err, "write blocks")
	}
	f.written = 0
	f.pos = copy(f.buf, p[towrite:])
	return nil
}

// writeCommit writes any unwritten buffered data to the file. It does
// not reset the cursors at a full buffer; the write slow path handles
// that case.
func (f *bobFile) writeCommit() error {
	if f.written == f.pos {
		return nil
	}
	if err := sys.Write(f.fd, f.buf[f.written:f.pos]); err != nil {
		return errors.Wrap(err, "commit buffer")
	}
	f.written = f.pos
	return nil
}

// writeHeader buffers a segment header. withMagic is true only for the
// very first segment of a new file.
func (f *bobFile) writeHeader(withMagic bool) error {
	if withMagic {
		if err := f.write(fileMagic[:]); err != nil {
			return err
		}
	}
	var vbuf [varint.MaxLen]byte
	for _, n := range []uint64{
		confIDBlockSize, uint64(f.blocksize),
		confIDCueSize, uint64(f.cuesize),
		confIDEnd,
	} {
		size := varint.Encode(vbuf[:], n)
		if err := f.write(vbuf[:size]); err != nil {
			return err
		}
	}
	return nil
}

// isEOF reports whether the file is exhausted, refilling the read
// buffer if necessary.
func (f *bobFile) isEOF() (bool, error) {
	if f.pos != f.written {
		return false, nil
	}
	if f.written == f.blocksize {
		f.pos = 0
		f.written = 0
	}
	rd, err := sys.Read(f.fd, f.buf[f.written:f.blocksize])
	if err != nil {
		return false, errors.Wrap(err, "read")
	}
	if rd == 0 {
		return true, nil
	}
	f.written += rd
	return false, nil
}

// read fills p from the prefetched window [pos, written), refilling
// from the file as needed. EOF before p is full is a format error.
func (f *bobFile) read(p []byte) error {
	for {
		if f.pos+len(p) <= f.written {
			copy(p, f.buf[f.pos:])
			f.pos += len(p)
			return nil
		}
		n := copy(p, f.buf[f.pos:f.written])
		p = p[n:]
		f.pos = f.written
		if f.written == f.blocksize {
			f.pos = 0
			f.written = 0
		}
		rd, err := sys.Read(f.fd, f.buf[f.written:f.blocksize])
		if err != nil {
			return errors.Wrap(err, "read")
		}
		if rd == 0 {
			return errors.Wrap(ErrCorrupt, "unexpected end of file")
		}
		f.written += rd
	}
}

// readUvarint reads one varint from the file.
func (f *bobFile) readUvarint() (uint64, error) {
	var d varint.Decoder
	var b [1]byte
	for {
		if err := f.read(b[:]); err != nil {
			return 0, err
		}
		done, err := d.Feed(b[0])
		if err != nil {
			return 0, errors.Wrap(ErrCorrupt, err.Error())
		}
		if done {
			return d.Value(), nil
		}
	}
}

// readHeader reads and validates a segment header, adopting the block
// and cue sizes it declares. The provisional read buffer is resized to
// the true block size; when it shrinks, the fd is rewound by the
// prefetched surplus.
func (f *bobFile) readHeader() error {
	var blocksize, cuesize uint64
	for {
		id, err := f.readUvarint()
		if err != nil {
			return err
		}
		switch id {
		case confIDBlockSize:
			if blocksize, err = f.readUvarint(); err != nil {
				return err
			}
		case confIDCueSize:
			if cuesize, err = f.readUvarint(); err != nil {
				return err
			}
		case confIDEnd:
			return f.adoptHeader(blocksize, cuesize)
		default:
			return errors.Wrapf(ErrCorrupt, "unknown config id %d", id)
		}
	}
}

func (f *bobFile) adoptHeader(blocksize, cuesize uint64) error {
	if blocksize < MinBlockSize || blocksize > MaxBlockSize ||
		cuesize < blocksize || cuesize%blocksize != 0 {
		return errors.Wrapf(ErrCorrupt,
			"invalid geometry: block size %d, cue size %d", blocksize, cuesize)
	}
	bs := int(blocksize)
	if f.written > bs {
		if _, err := sys.Seek(f.fd, int64(bs)-int64(f.written), unix.SEEK_CUR); err != nil {
			return errors.Wrap(err, "rewind surplus")
		}
		f.written = bs
	}
	if bs != f.blocksize {
		newbuf := make([]byte, bs)
		copy(newbuf, f.buf)
		f.buf = newbuf
		f.blocksize = bs
	}
	f.cuesize = int(cuesize)
	return nil
}

// parse replays the record log and returns the reconstructed object.
// On success the buffer is switched to write mode and the fd is
// positioned at the end of the last record.
func (f *bobFile) parse() ([]byte, error) {
	size, err := f.logicalSize()
	if err != nil {
		return nil, err
	}
	var data []byte
	for {
		eof, err := f.isEOF()
		if err != nil {
			return nil, err
		}
		if eof {
			f.pos = f.blocksize
			f.written = f.blocksize
			return data, nil
		}
		id, err := f.readUvarint()
		if err != nil {
			return nil, err
		}
		switch id {
		case blockIDRewrite:
			n, err := f.readUvarint()
			if err != nil {
				return nil, err
			}
			if n > uint64(size) {
				return nil, errors.Wrapf(ErrCorrupt, "record length %d exceeds file size", n)
			}
			data = make([]byte, n)
			if err := f.read(data); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Wrapf(ErrCorrupt, "unknown record type %d", id)
		}
	}
}

// logicalSize returns the current size of the underlying file.
func (f *bobFile) logicalSize() (int64, error) {
	var st unix.Stat_t
	if err := sys.Fstat(f.fd, &st); err != nil {
		return 0, errors.Wrap(err, "fstat")
	}
	return st.Size, nil
}

// writeOffset is the logical append position: the fd offset plus any
// buffered-but-uncommitted bytes. Only meaningful in write mode.
func (f *bobFile) writeOffset() (int64, error) {
	cur, err := sys.Seek(f.fd, 0, unix.SEEK_CUR)
	if err != nil {
		return 0, errors.Wrap(err, "seek")
	}
	return cur + int64(f.pos-f.written), nil
}

// cueRemaining returns the space left in the current cue block, or 0
// when the append position sits exactly on a cue boundary.
func (f *bobFile) cueRemaining() (int64, error) {
	cur, err := f.writeOffset()
	if err != nil {
		return 0, err
	}
	if cur%int64(f.cuesize) == 0 {
		return 0, nil
	}
	return int64(f.cuesize) - cur%int64(f.cuesize), nil
}

// newCue commits the buffer, aligns the file to the next cue boundary
// and buffers a fresh segment header there. It returns the boundary
// offset, which is also the new start of live data.
func (f *bobFile) newCue() (int64, error) {
	if err := f.writeCommit(); err != nil {
		return 0, err
	}
	cur, err := sys.Seek(f.fd, 0, unix.SEEK_CUR)
	if err != nil {
		return 0, errors.Wrap(err, "seek")
	}
	if rem := cur % int64(f.cuesize); rem != 0 {
		cur += int64(f.cuesize) - rem
		if _, err := sys.Seek(f.fd, cur, unix.SEEK_SET); err != nil {
			return 0, errors.Wrap(err, "seek to cue boundary")
		}
	}
	f.pos = 0
	f.written = 0
	if err := f.writeHeader(false); err != nil {
		return 0, err
	}
	logger.Debugf("new cue at offset %d", cur)
	return cur, nil
}

// zap punches out [0, start), releasing the storage behind the dead
// prefix while keeping the logical file size.
func (f *bobFile) zap(start int64) error {
	err := sys.Fallocate(f.fd, unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, 0, start)
	if err != nil {
		return errors.Wrapf(err, "punch hole [0, %d)", start)
	}
	logger.Debugf("reclaimed %d bytes", start)
	return nil
}

// close commits, syncs and releases the file. All three steps are
// attempted; the first failure is the one reported.
func (f *bobFile) close() error {
	var firstErr error
	if err := f.writeCommit(); err != nil {
		firstErr = err
	}
	f.buf = nil
	if err := sys.Fsync(f.fd); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "fsync")
	}
	if err := sys.Close(f.fd); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "close")
	}
	return firstErr
}

// flush commits the buffer and syncs the file to disk.
func (f *bobFile) flush() error {
	var firstErr error
	if err := f.writeCommit(); err != nil {
		firstErr = err
	}
	if err := sys.Fsync(f.fd); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "fsync")
	}
	return firstErr
}
