package manifest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"

	"github.com/go-pistonlauncher/pkg/checksum"
)

func writeFile(t *testing.T, path string, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

func TestBuild_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "game", "data.pak"), "pak contents", 0o644)
	writeFile(t, filepath.Join(dir, "game", "sub dir", "x.txt"), "x", 0o644)
	writeFile(t, filepath.Join(dir, "launch.sh"), "#!/bin/sh\n", 0o755)
	writeFile(t, filepath.Join(dir, ".version"), "1.0", 0o644)
	writeFile(t, filepath.Join(dir, "stray.tmp"), "junk", 0o644)

	root, err := Build(dir, BuildOptions{BaseURL: "http://cdn/base/", Skip: []string{".version"}})
	require.NoError(t, err)

	// game/, game/data.pak, game/sub dir/, game/sub dir/x.txt, launch.sh
	assert.Equal(t, uint64(5), Count(root))
	require.Len(t, root.Children, 2)
	assert.Equal(t, "game", root.Children[0].Name)

	launch := root.Children[1]
	assert.Equal(t, "launch.sh", launch.Name)
	if runtime.GOOS != "windows" {
		assert.True(t, launch.Executable)
	}

	game := root.Children[0]
	pak := game.Children[0]
	want, err := checksum.DigestReader(bytes.NewReader([]byte("pak contents")))
	require.NoError(t, err)
	assert.Equal(t, want, pak.Downloads.Raw.SHA1)
	assert.Equal(t, int64(len("pak contents")), pak.Downloads.Raw.Size)
	assert.Equal(t, "http://cdn/base/game/data.pak", pak.Downloads.Raw.URL)

	sub := game.Children[1]
	assert.Equal(t, "sub dir", sub.Name)
	assert.Equal(t, "http://cdn/base/game/sub%20dir/x.txt", sub.Children[0].Downloads.Raw.URL)

	doc, err := MarshalDocument(root)
	require.NoError(t, err)
	parsed, err := ParseDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, root, parsed)
}

func TestBuild_WithLZMAPayloads(t *testing.T) {
	dir := t.TempDir()
	payloads := t.TempDir()
	content := bytes.Repeat([]byte("compress me "), 200)
	writeFile(t, filepath.Join(dir, "a", "big.bin"), string(content), 0o644)

	root, err := Build(dir, BuildOptions{BaseURL: "http://cdn", PayloadDir: payloads})
	require.NoError(t, err)

	big := root.Children[0].Children[0]
	require.NotNil(t, big.Downloads.LZMA)
	assert.Equal(t, "http://cdn/a/big.bin.lzma", big.Downloads.LZMA.URL)

	payload := filepath.Join(payloads, "a", "big.bin.lzma")
	sum, err := checksum.Digest(payload)
	require.NoError(t, err)
	assert.Equal(t, sum, big.Downloads.LZMA.SHA1)

	f, err := os.Open(payload)
	require.NoError(t, err)
	defer f.Close()
	r, err := lzma.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "missing"), BuildOptions{BaseURL: "http://x"})
	assert.Error(t, err)

	_, err = Build(t.TempDir(), BuildOptions{})
	assert.ErrorContains(t, err, "base URL")
}
