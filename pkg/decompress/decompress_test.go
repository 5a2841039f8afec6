package decompress

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/go-pistonlauncher/pkg/utils"
)

func lzmaBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func payload() []byte {
	return bytes.Repeat([]byte("Minecraft Dungeons asset bytes\n"), 4096)
}

func TestInPlace_ChunkSizes(t *testing.T) {
	data := payload()
	for _, chunk := range []uint64{0, 7, 4096, 1 << 20} {
		path := filepath.Join(t.TempDir(), "asset.pak")
		require.NoError(t, os.WriteFile(path, lzmaBytes(t, data), 0644))

		d := New(chunk, utils.NewDiscardLogger())
		require.NoError(t, d.InPlace(path), "chunk %d", chunk)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, got, "chunk %d", chunk)
		assert.NoFileExists(t, TempPath(path))
	}
}

func TestInPlace_XZContainer(t *testing.T) {
	data := payload()
	path := filepath.Join(t.TempDir(), "asset.xz")
	require.NoError(t, os.WriteFile(path, xzBytes(t, data), 0644))

	require.NoError(t, New(1024, utils.NewDiscardLogger()).InPlace(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestInPlace_OverwritesStrayTempFile(t *testing.T) {
	data := []byte("fresh content")
	path := filepath.Join(t.TempDir(), "asset")
	require.NoError(t, os.WriteFile(path, lzmaBytes(t, data), 0644))
	require.NoError(t, os.WriteFile(TempPath(path), bytes.Repeat([]byte("stale"), 1000), 0644))

	require.NoError(t, New(0, utils.NewDiscardLogger()).InPlace(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.NoFileExists(t, TempPath(path))
}

func TestInPlace_CorruptStreamLeavesOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken")
	garbage := []byte("this is not an lzma stream at all")
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	err := New(16, utils.NewDiscardLogger()).InPlace(path)
	var decErr *Error
	require.True(t, errors.As(err, &decErr), "expected *Error, got %v", err)
	assert.Equal(t, path, decErr.Path)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, garbage, got)
	assert.NoFileExists(t, TempPath(path))
}

func TestInPlace_TruncatedStreamLeavesOriginal(t *testing.T) {
	compressed := lzmaBytes(t, payload())
	truncated := compressed[:len(compressed)/2]

	for _, chunk := range []uint64{0, 7, 4096, 1 << 20} {
		path := filepath.Join(t.TempDir(), "asset.pak")
		require.NoError(t, os.WriteFile(path, truncated, 0644))

		err := New(chunk, utils.NewDiscardLogger()).InPlace(path)
		var decErr *Error
		require.True(t, errors.As(err, &decErr), "chunk %d: expected *Error, got %v", chunk, err)

		got, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, truncated, got, "chunk %d: compressed file must be untouched", chunk)
		assert.NoFileExists(t, TempPath(path))
	}
}

func TestInPlace_ReusesChunkBuffer(t *testing.T) {
	d := New(4096, utils.NewDiscardLogger())
	dir := t.TempDir()

	first := filepath.Join(dir, "first")
	require.NoError(t, os.WriteFile(first, lzmaBytes(t, []byte("tiny")), 0644))
	require.NoError(t, d.InPlace(first))
	require.Len(t, d.buf, 4096)
	buf := &d.buf[0]

	second := filepath.Join(dir, "second")
	require.NoError(t, os.WriteFile(second, lzmaBytes(t, payload()), 0644))
	require.NoError(t, d.InPlace(second))
	assert.Same(t, buf, &d.buf[0])

	got, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, payload(), got)
}

// failAfter accepts limit bytes then fails every write, simulating a crash
// after a partial write to the temporary file.
type failAfter struct {
	w     io.Writer
	limit int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.limit <= 0 {
		return 0, errors.New("injected write fault")
	}
	if len(p) > f.limit {
		n, _ := f.w.Write(p[:f.limit])
		f.limit = 0
		return n, errors.New("injected write fault")
	}
	f.limit -= len(p)
	return f.w.Write(p)
}

func TestInPlace_FaultMidWriteIsAtomic(t *testing.T) {
	data := payload()
	compressed := lzmaBytes(t, data)
	path := filepath.Join(t.TempDir(), "asset.pak")
	require.NoError(t, os.WriteFile(path, compressed, 0644))

	var partial int64
	d := New(1000, utils.NewDiscardLogger())
	d.wrapOutput = func(w io.Writer) io.Writer {
		return &failAfter{w: writerFunc(func(p []byte) (int, error) {
			n, err := w.Write(p)
			partial += int64(n)
			return n, err
		}), limit: 2500}
	}

	err := d.InPlace(path)
	require.Error(t, err)
	assert.Equal(t, int64(2500), partial, "fault should hit after a partial write")

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, compressed, got, "compressed file must be untouched")
	assert.NoFileExists(t, TempPath(path))
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
