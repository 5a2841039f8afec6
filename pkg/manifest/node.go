// Package manifest models the upstream game manifest: a tree of directory and
// file nodes, where every file offers a raw and/or an LZMA download.
package manifest

// NodeType is the manifest's "type" tag
type NodeType string

const (
	TypeDirectory NodeType = "directory"
	TypeFile      NodeType = "file"
)

// Encoding names a download variant
type Encoding string

const (
	EncodingRaw  Encoding = "raw"
	EncodingLZMA Encoding = "lzma"
)

// Variant is one way to obtain a file's bytes
type Variant struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size,omitempty"`
}

// Downloads holds at most one variant per encoding
type Downloads struct {
	Raw  *Variant `json:"raw,omitempty"`
	LZMA *Variant `json:"lzma,omitempty"`
}

// Select picks the variant to install: LZMA when present unless preferRaw,
// otherwise raw. It returns nil when nothing applies.
func (d Downloads) Select(preferRaw bool) (*Variant, Encoding) {
	if d.LZMA != nil && !preferRaw {
		return d.LZMA, EncodingLZMA
	}
	if d.Raw != nil {
		return d.Raw, EncodingRaw
	}
	return nil, ""
}

// Empty reports whether no variant is offered
func (d Downloads) Empty() bool {
	return d.Raw == nil && d.LZMA == nil
}

// Node is a directory, a file, or an entry with a type this launcher does not know.
// The tree is read-only once parsed.
type Node struct {
	Name string
	Type NodeType

	// Directory
	Children []*Node

	// File
	Downloads  Downloads
	Executable bool
}

// NewDirectory builds a directory node
func NewDirectory(name string, children ...*Node) *Node {
	return &Node{Name: name, Type: TypeDirectory, Children: children}
}

// NewFile builds a file node
func NewFile(name string, downloads Downloads) *Node {
	return &Node{Name: name, Type: TypeFile, Downloads: downloads}
}

// IsDirectory reports whether n is a directory node
func (n *Node) IsDirectory() bool { return n.Type == TypeDirectory }

// IsFile reports whether n is a file node
func (n *Node) IsFile() bool { return n.Type == TypeFile }

// Count returns the number of nodes below root, which is the number of
// progress ticks a walk of root produces. root itself is not counted.
func Count(root *Node) uint64 {
	if root == nil {
		return 0
	}
	var n uint64
	for _, child := range root.Children {
		n++
		if child.IsDirectory() {
			n += Count(child)
		}
	}
	return n
}

// Files returns the number of file nodes below root
func Files(root *Node) int {
	if root == nil {
		return 0
	}
	n := 0
	for _, child := range root.Children {
		switch {
		case child.IsFile():
			n++
		case child.IsDirectory():
			n += Files(child)
		}
	}
	return n
}
