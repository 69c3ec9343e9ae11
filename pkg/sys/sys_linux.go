// Package sys wraps the raw system calls the file layer is built on.
// Every wrapper retries on EINTR so the callers never see an interrupted
// call. The package is Linux-only: the container format depends on
// fallocate hole punching and SEEK_DATA.
package sys

import (
	"golang.org/x/sys/unix"
)

// Open wraps open(2).
func Open(path string, flags int, perm uint32) (int, error) {
	for {
		fd, err := unix.Open(path, flags, perm)
		if err == unix.EINTR {
			continue
		}
		return fd, err
	}
}

// Close wraps close(2).
func Close(fd int) error {
	for {
		err := unix.Close(fd)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Read wraps read(2). A zero count with a nil error means EOF.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Write wraps write(2), looping until all of p is drained or a
// non-EINTR error occurs.
func Write(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		p = p[n:]
	}
	return nil
}

// Seek wraps lseek(2).
func Seek(fd int, offset int64, whence int) (int64, error) {
	for {
		off, err := unix.Seek(fd, offset, whence)
		if err == unix.EINTR {
			continue
		}
		return off, err
	}
}

// Fsync wraps fsync(2).
func Fsync(fd int) error {
	for {
		err := unix.Fsync(fd)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Fallocate wraps fallocate(2).
func Fallocate(fd int, mode uint32, off, length int64) error {
	for {
		err := unix.Fallocate(fd, mode, off, length)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// FallocateNext reserves length bytes starting at the current file
// offset. The reservation keeps the logical file size unchanged.
func FallocateNext(fd int, length int64) error {
	cur, err := Seek(fd, 0, unix.SEEK_CUR)
	if err != nil {
		return err
	}
	return Fallocate(fd, unix.FALLOC_FL_KEEP_SIZE, cur, length)
}

// Fstat wraps fstat(2).
func Fstat(fd int, st *unix.Stat_t) error {
	for {
		err := unix.Fstat(fd, st)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Fstatfs wraps fstatfs(2).
func Fstatfs(fd int, st *unix.Statfs_t) error {
	for {
		err := unix.Fstatfs(fd, st)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Unlink wraps unlink(2).
func Unlink(path string) error {
	for {
		err := unix.Unlink(path)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
