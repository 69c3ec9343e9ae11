package bob

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func createTestFile(t *testing.T, cfg *Config) (*bobFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.bob")
	f, err := createFile(cfg, path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if f.buf != nil {
			_ = f.close()
		}
	})
	return f, path
}

func TestWriteCrossesBlockBoundary(t *testing.T) {
	f, path := createTestFile(t, &Config{BlockSize: 512, CueSize: 4096})
	hdr := headerLen(512, 4096)

	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, f.write(payload))
	// the slow path flushed whole blocks and kept the tail buffered
	require.Equal(t, 0, f.written)
	require.Equal(t, (hdr+1000)%512, f.pos)

	require.NoError(t, f.writeCommit())
	require.Equal(t, f.pos, f.written)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, hdr+1000, len(content))
	require.Equal(t, payload, content[hdr:])
}

func TestWriteFastPathBuffersOnly(t *testing.T) {
	f, path := createTestFile(t, &Config{BlockSize: 512, CueSize: 4096})
	require.NoError(t, f.write([]byte("tiny")))

	// nothing reaches the file until commit
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), st.Size())

	require.NoError(t, f.writeCommit())
	st, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(headerLen(512, 4096)+4), st.Size())
}

func TestCommitIdempotent(t *testing.T) {
	f, path := createTestFile(t, &Config{BlockSize: 512, CueSize: 4096})
	require.NoError(t, f.writeCommit())
	st1, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, f.writeCommit())
	st2, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, st1.Size(), st2.Size())
}

func TestHeaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bob")
	f, err := createFile(&Config{BlockSize: 512, CueSize: 4096}, path)
	require.NoError(t, err)
	require.NoError(t, f.close())

	// the provisional read buffer is larger than the true block size
	f, err = openFile(path)
	require.NoError(t, err)
	require.Equal(t, 512, f.blocksize)
	require.Equal(t, 4096, f.cuesize)
	require.Equal(t, 512, len(f.buf))

	data, err := f.parse()
	require.NoError(t, err)
	require.Empty(t, data)
	// parse leaves the buffer in write mode
	require.Equal(t, f.blocksize, f.pos)
	require.Equal(t, f.blocksize, f.written)
	require.NoError(t, f.close())
}

func TestCueRemainingCountsBufferedBytes(t *testing.T) {
	f, _ := createTestFile(t, &Config{BlockSize: 512, CueSize: 4096})
	hdr := headerLen(512, 4096)

	// the header is buffered but not yet committed
	off, err := f.writeOffset()
	require.NoError(t, err)
	require.Equal(t, int64(hdr), off)

	remaining, err := f.cueRemaining()
	require.NoError(t, err)
	require.Equal(t, int64(4096-hdr), remaining)
}

func TestNewCueAlignsToBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bob")
	f, err := createFile(&Config{BlockSize: 512, CueSize: 4096}, path)
	require.NoError(t, err)

	start, err := f.newCue()
	require.NoError(t, err)
	require.Equal(t, int64(4096), start)

	// the new segment header is buffered at the boundary, without magic
	require.NoError(t, f.writeCommit())
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 4096+headerLen(512, 4096)-len(fileMagic), len(content))
	require.NotEqual(t, fileMagic[:], content[4096:4100])
	require.NoError(t, f.close())
}
