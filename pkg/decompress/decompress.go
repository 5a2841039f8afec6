// Package decompress replaces an LZMA (or XZ) compressed file with its
// decompressed content without ever exposing a partially written file at the
// final path.
package decompress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/go-pistonlauncher/pkg/utils"
)

// TempSuffix is appended to the target path while decompressing
const TempSuffix = ".tmp"

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Error is returned when a file could not be decompressed. The compressed
// file at Path is left untouched and the temporary file is removed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to decompress %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// TempPath returns the sibling file used while decompressing path
func TempPath(path string) string {
	return path + TempSuffix
}

// Decompressor decompresses files in place under a memory budget. It reuses
// one output buffer across calls and must not be shared between goroutines.
type Decompressor struct {
	chunkSize uint64
	logger    *utils.Logger
	buf       []byte

	// wrapOutput lets tests interpose on writes to the temporary file
	wrapOutput func(io.Writer) io.Writer
}

// New creates a Decompressor. chunkSize bounds how many decompressed bytes are
// held in memory at once; 0 reads the whole stream into memory before writing.
func New(chunkSize uint64, logger *utils.Logger) *Decompressor {
	return &Decompressor{chunkSize: chunkSize, logger: logger}
}

// InPlace decompresses path into path+".tmp" and renames it over path
func (d *Decompressor) InPlace(path string) error {
	tmpPath := TempPath(path)

	written, err := d.decompressTo(path, tmpPath)
	if err != nil {
		if rmErr := utils.RemoveIfExists(tmpPath); rmErr != nil {
			d.logger.Error("Failed to remove temporary file %s: %v", tmpPath, rmErr)
		}
		return &Error{Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if rmErr := utils.RemoveIfExists(tmpPath); rmErr != nil {
			d.logger.Error("Failed to remove temporary file %s: %v", tmpPath, rmErr)
		}
		return &Error{Path: path, Err: fmt.Errorf("failed to replace compressed file: %w", err)}
	}

	d.logger.Debug("Decompressed %s (%s)", path, humanize.IBytes(uint64(written)))
	return nil
}

func (d *Decompressor) decompressTo(srcPath, tmpPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	reader, err := newStreamReader(bufio.NewReader(src))
	if err != nil {
		return 0, err
	}

	// os.Create truncates a stray temporary file left by an earlier crash
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	var w io.Writer = out
	if d.wrapOutput != nil {
		w = d.wrapOutput(out)
	}

	written, err := d.copy(w, reader)
	if err != nil {
		out.Close()
		return written, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return written, fmt.Errorf("failed to flush temporary file: %w", err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("failed to close temporary file: %w", err)
	}
	return written, nil
}

func (d *Decompressor) copy(w io.Writer, r io.Reader) (int64, error) {
	if d.chunkSize == 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return 0, err
		}
		n, err := w.Write(data)
		return int64(n), err
	}

	if d.buf == nil {
		d.buf = make([]byte, d.chunkSize)
	}
	var written int64
	for {
		n, readErr := r.Read(d.buf)
		if n > 0 {
			m, err := w.Write(d.buf[:n])
			written += int64(m)
			if err != nil {
				return written, err
			}
		}
		// Only a clean EOF ends the stream; a truncated one surfaces as io.ErrUnexpectedEOF
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// newStreamReader detects XZ containers and otherwise assumes a classic
// LZMA ("lzma alone") stream, which is what the upstream CDN serves.
func newStreamReader(br *bufio.Reader) (io.Reader, error) {
	head, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if bytes.Equal(head, xzMagic) {
		return xz.NewReader(br)
	}
	return lzma.NewReader(br)
}
