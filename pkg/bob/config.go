package bob

import (
	"BobFS/pkg/sys"

	"golang.org/x/sys/unix"
)

const (
	// DefaultBlockSize is the fallback block size when neither the
	// configuration nor the filesystem yields a usable one.
	DefaultBlockSize = 32768

	// MinBlockSize is the smallest allowed block size.
	MinBlockSize = 512

	// MaxBlockSize is the largest allowed block size.
	MaxBlockSize = 4 * 1024 * 1024

	// MaxCueSize caps the interval between forced full rewrites.
	MaxCueSize = 1024 * 1024 * 1024

	// cueSizeMultiplier derives the cue size from the block size when no
	// usable cue size is configured.
	cueSizeMultiplier = 32
)

// Config controls the on-disk geometry of a container. The zero value
// selects everything automatically.
type Config struct {
	// BlockSize is the filesystem I/O unit in bytes. 0 means probe the
	// filesystem, falling back to DefaultBlockSize. Values outside
	// [MinBlockSize, MaxBlockSize] are treated like 0.
	BlockSize uint64

	// CueSize is the interval in bytes between forced full rewrites.
	// 0 means 32 times the block size. Values are clamped to MaxCueSize
	// and rounded down to a multiple of the block size; values below the
	// block size are replaced by the default.
	CueSize uint64
}

// DefaultConfig returns a configuration with everything auto-selected.
func DefaultConfig() *Config {
	return &Config{}
}

// realBlockSize resolves the block size actually used for file
// operations. An unusable configured size falls back to the block size
// of the filesystem holding fd, then to DefaultBlockSize.
func realBlockSize(fd int, conf uint64) int {
	if conf >= MinBlockSize && conf <= MaxBlockSize {
		return int(conf)
	}
	var st unix.Statfs_t
	if err := sys.Fstatfs(fd, &st); err != nil {
		logger.Debugf("fstatfs: %s, using default block size", err)
		return DefaultBlockSize
	}
	if st.Bsize < MinBlockSize || st.Bsize > MaxBlockSize {
		return DefaultBlockSize
	}
	return int(st.Bsize)
}

// realCueSize resolves the cue size actually used. The result is a
// multiple of blocksize, at least blocksize and at most MaxCueSize.
func realCueSize(blocksize int, conf uint64) int {
	if conf < uint64(blocksize) {
		return blocksize * cueSizeMultiplier
	}
	if conf > MaxCueSize {
		conf = MaxCueSize
	}
	return int(conf) - int(conf)%blocksize
}
