package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedTree = `{
  "a": {
    "type": "directory",
    "b": {"type": "file", "downloads": {"raw": {"url": "http://x/b", "sha1": "abc"}}}
  }
}`

func TestParseTree_Nested(t *testing.T) {
	root, err := ParseTree([]byte(nestedTree))
	require.NoError(t, err)

	require.True(t, root.IsDirectory())
	require.Len(t, root.Children, 1)

	a := root.Children[0]
	assert.Equal(t, "a", a.Name)
	assert.True(t, a.IsDirectory())
	require.Len(t, a.Children, 1)

	b := a.Children[0]
	assert.Equal(t, "b", b.Name)
	assert.True(t, b.IsFile())
	require.NotNil(t, b.Downloads.Raw)
	assert.Equal(t, "http://x/b", b.Downloads.Raw.URL)
	assert.Equal(t, "abc", b.Downloads.Raw.SHA1)
	assert.Nil(t, b.Downloads.LZMA)

	assert.Equal(t, uint64(2), Count(root))
	assert.Equal(t, 1, Files(root))
}

func TestParseTree_KeepsDocumentOrder(t *testing.T) {
	root, err := ParseTree([]byte(`{
		"zeta": {"type": "directory"},
		"alpha": {"type": "directory"},
		"mid": {"type": "file", "downloads": {}}
	}`))
	require.NoError(t, err)

	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestParseTree_UnknownAndOddEntries(t *testing.T) {
	root, err := ParseTree([]byte(`{
		"weird": {"type": "symlink", "target": "x"},
		"": {"type": "directory"},
		"notanode": "string value",
		"list": [1, 2],
		"run.sh": {"type": "file", "executable": true, "downloads": {
			"lzma": {"url": "http://x/run.lzma", "sha1": "1", "size": 10},
			"raw": {"url": "http://x/run", "sha1": "2", "size": 42}
		}}
	}`))
	require.NoError(t, err)

	// Non-object values are not nodes; every object entry is
	require.Len(t, root.Children, 3)
	assert.Equal(t, NodeType("symlink"), root.Children[0].Type)
	assert.Equal(t, "", root.Children[1].Name)
	assert.True(t, root.Children[1].IsDirectory())

	run := root.Children[2]
	assert.True(t, run.Executable)
	assert.Equal(t, int64(42), run.Downloads.Raw.Size)

	v, enc := run.Downloads.Select(false)
	assert.Equal(t, EncodingLZMA, enc)
	assert.Equal(t, "http://x/run.lzma", v.URL)

	v, enc = run.Downloads.Select(true)
	assert.Equal(t, EncodingRaw, enc)
	assert.Equal(t, "http://x/run", v.URL)

	assert.Equal(t, uint64(3), Count(root))
}

func TestParseTree_DuplicateKeyReplacesInPlace(t *testing.T) {
	root, err := ParseTree([]byte(`{
		"a": {"type": "directory"},
		"b": {"type": "directory"},
		"a": {"type": "file", "downloads": {}}
	}`))
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "a", root.Children[0].Name)
	assert.True(t, root.Children[0].IsFile())
}

func TestDownloads_SelectNone(t *testing.T) {
	v, enc := Downloads{}.Select(false)
	assert.Nil(t, v)
	assert.Equal(t, Encoding(""), enc)
	assert.True(t, Downloads{}.Empty())

	lzmaOnly := Downloads{LZMA: &Variant{URL: "u"}}
	v, _ = lzmaOnly.Select(true)
	assert.Nil(t, v, "preferRaw with only lzma offers nothing")
}

func TestParseDocument(t *testing.T) {
	root, err := ParseDocument([]byte(`{"files": ` + nestedTree + `}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), Count(root))

	_, err = ParseDocument([]byte(nestedTree))
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Contains(t, err.Error(), `missing "files"`)

	_, err = ParseDocument([]byte(`{"files": `))
	require.True(t, errors.As(err, &formatErr))

	_, err = ParseDocument([]byte(`[1,2]`))
	require.True(t, errors.As(err, &formatErr))

	_, err = ParseDocument([]byte(`{"files": {"f": {"type": "file", "downloads": "nope"}}}`))
	require.True(t, errors.As(err, &formatErr))
	assert.Contains(t, err.Error(), `"f"`)
}

func TestParse_AcceptsBothShapes(t *testing.T) {
	bare, err := Parse([]byte(nestedTree))
	require.NoError(t, err)
	wrapped, err := Parse([]byte(`{"files": ` + nestedTree + `}`))
	require.NoError(t, err)
	assert.Equal(t, bare, wrapped)
}

func TestParseIndex(t *testing.T) {
	release, err := ParseIndex([]byte(`{"dungeons":[
		{"manifest":{"url":"http://x/manifest.json"},"version":{"name":"1.17.0.0"}},
		{"manifest":{"url":"http://x/old.json"},"version":{"name":"1.16.0.0"}}
	]}`), "dungeons")
	require.NoError(t, err)
	assert.Equal(t, "1.17.0.0", release.Version)
	assert.Equal(t, "http://x/manifest.json", release.ManifestURL)
	assert.Equal(t, "dungeons", release.Product)

	cases := map[string]string{
		"not json":       `nope`,
		"wrong product":  `{"other":[]}`,
		"not a list":     `{"dungeons":{}}`,
		"empty list":     `{"dungeons":[]}`,
		"no manifest":    `{"dungeons":[{"version":{"name":"1"}}]}`,
		"no version":     `{"dungeons":[{"manifest":{"url":"u"}}]}`,
		"empty manifest": `{"dungeons":[{"manifest":{},"version":{"name":"1"}}]}`,
		"empty url":      `{"dungeons":[{"manifest":{"url":""},"version":{"name":"1"}}]}`,
		"numeric name":   `{"dungeons":[{"manifest":{"url":"u"},"version":{"name":17}}]}`,
		"not an object":  `[1, 2]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIndex([]byte(doc), "dungeons")
			var formatErr *FormatError
			assert.True(t, errors.As(err, &formatErr), "got %v", err)
		})
	}
}

func TestParseIndex_OnlyFirstReleaseMatters(t *testing.T) {
	release, err := ParseIndex([]byte(`{
		"launcher": {"not": "a list"},
		"dungeons": [
			{"manifest":{"url":"http://x/current.json"},"version":{"name":"1.17.0.0"}},
			{"version":"legacy entry in an older shape"}
		]
	}`), "dungeons")
	require.NoError(t, err)
	assert.Equal(t, "1.17.0.0", release.Version)
	assert.Equal(t, "http://x/current.json", release.ManifestURL)
}

func TestParseIndex_ErrorNamesMissingField(t *testing.T) {
	_, err := ParseIndex([]byte(`{"dungeons":[{"manifest":{"url":"u"},"version":{}}]}`), "dungeons")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dungeons")
	assert.Contains(t, err.Error(), "name")
}

type fakeFetcher map[string]string

func (f fakeFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("404")
	}
	return []byte(body), nil
}

func TestRemoteSource_Resolve(t *testing.T) {
	src := &RemoteSource{
		Fetcher: fakeFetcher{
			"http://idx":    `{"dungeons":[{"manifest":{"url":"http://m"},"version":{"name":"2.0"}}]}`,
			"http://m":      `{"files":` + nestedTree + `}`,
			"http://broken": `{"dungeons":[{"manifest":{"url":"http://missing"},"version":{"name":"2.0"}}]}`,
		},
		IndexURL: "http://idx",
		Product:  "dungeons",
	}

	release, err := src.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0", release.Version)
	assert.Equal(t, uint64(2), Count(release.Root))

	src.IndexURL = "http://broken"
	_, err = src.Resolve(context.Background())
	assert.ErrorContains(t, err, "failed to fetch manifest")

	src.IndexURL = ""
	_, err = src.Resolve(context.Background())
	assert.Error(t, err)
}

func TestFileSource_Resolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.2.3.json")
	require.NoError(t, os.WriteFile(path, []byte(nestedTree), 0o644))

	release, err := (&FileSource{Path: path}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", release.Version)
	assert.Equal(t, uint64(2), Count(release.Root))

	release, err = (&FileSource{Path: path, Version: "custom"}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "custom", release.Version)

	_, err = (&FileSource{Path: filepath.Join(dir, "missing.json")}).Resolve(context.Background())
	assert.Error(t, err)
}
