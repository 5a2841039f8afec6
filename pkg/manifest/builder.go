package manifest

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz/lzma"

	"github.com/go-pistonlauncher/pkg/checksum"
	"github.com/go-pistonlauncher/pkg/utils"
)

// BuildOptions controls manifest generation from a local directory
type BuildOptions struct {
	// BaseURL is where the directory will be hosted; file URLs are BaseURL/<relative path>
	BaseURL string

	// PayloadDir, when set, receives an .lzma copy of every file and the
	// manifest gains an lzma variant pointing at BaseURL/<relative path>.lzma
	PayloadDir string

	// Skip lists base names to leave out, such as the version marker
	Skip []string

	Logger *utils.Logger
}

// Build walks dir and returns the manifest tree describing it. Children are
// sorted by name so the output is stable.
func Build(dir string, opts BuildOptions) (*Node, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	b := &builder{dir: dir, opts: opts, skip: make(map[string]bool)}
	for _, name := range opts.Skip {
		b.skip[name] = true
	}
	if opts.PayloadDir != "" {
		if abs, err := filepath.Abs(opts.PayloadDir); err == nil {
			b.payloadAbs = abs
		}
	}

	children, err := b.children("")
	if err != nil {
		return nil, err
	}
	return NewDirectory("", children...), nil
}

type builder struct {
	dir        string
	opts       BuildOptions
	skip       map[string]bool
	payloadAbs string
}

func (b *builder) children(rel string) ([]*Node, error) {
	entries, err := os.ReadDir(filepath.Join(b.dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var nodes []*Node
	for _, entry := range entries {
		name := entry.Name()
		if b.skip[name] || strings.HasSuffix(name, ".tmp") {
			continue
		}
		childRel := path.Join(rel, name)
		full := filepath.Join(b.dir, filepath.FromSlash(childRel))

		if b.payloadAbs != "" {
			if abs, err := filepath.Abs(full); err == nil && abs == b.payloadAbs {
				continue
			}
		}

		switch {
		case entry.IsDir():
			sub, err := b.children(childRel)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, NewDirectory(name, sub...))

		case entry.Type().IsRegular():
			node, err := b.file(name, childRel, full)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		default:
			b.opts.Logger.Warn("Skipping %s: not a regular file", childRel)
		}
	}
	return nodes, nil
}

func (b *builder) file(name, rel, full string) (*Node, error) {
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	sum, err := checksum.Digest(full)
	if err != nil {
		return nil, err
	}

	node := NewFile(name, Downloads{
		Raw: &Variant{URL: b.url(rel), SHA1: sum, Size: info.Size()},
	})
	node.Executable = info.Mode().Perm()&0o111 != 0

	if b.opts.PayloadDir != "" {
		dest := filepath.Join(b.opts.PayloadDir, filepath.FromSlash(rel)+".lzma")
		size, err := compressFile(full, dest)
		if err != nil {
			return nil, fmt.Errorf("failed to compress %s: %w", rel, err)
		}
		compressedSum, err := checksum.Digest(dest)
		if err != nil {
			return nil, err
		}
		node.Downloads.LZMA = &Variant{URL: b.url(rel + ".lzma"), SHA1: compressedSum, Size: size}
	}

	b.opts.Logger.Debug("Added %s (%s)", rel, sum)
	return node, nil
}

func (b *builder) url(rel string) string {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return b.opts.BaseURL + "/" + strings.Join(parts, "/")
}

// compressFile writes an LZMA-alone stream of src to dest and returns its size
func compressFile(src, dest string) (int64, error) {
	if err := utils.EnsureDirForFile(dest); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	w, err := lzma.NewWriter(out)
	if err != nil {
		out.Close()
		return 0, err
	}
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		out.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
