package sys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWriteReadSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	fd, err := Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	require.NoError(t, err)
	defer Close(fd)

	require.NoError(t, Write(fd, []byte("hello world")))

	off, err := Seek(fd, 0, unix.SEEK_SET)
	require.NoError(t, err)
	require.Equal(t, int64(0), off)

	buf := make([]byte, 11)
	n, err := Read(fd, buf)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(buf))

	// EOF reads as zero bytes without error
	n, err = Read(fd, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestFallocateNextKeepsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	fd, err := Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	require.NoError(t, err)
	defer Close(fd)

	require.NoError(t, FallocateNext(fd, 4096))

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), st.Size(), "KEEP_SIZE must not extend the file")
}

func TestUnlink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	fd, err := Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	require.NoError(t, err)
	require.NoError(t, Close(fd))
	require.NoError(t, Unlink(path))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
