package manifest

import (
	"bytes"
	"encoding/json"
)

// MarshalDocument encodes root as an upstream manifest document, children in tree order
func MarshalDocument(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n  \"files\": ")
	if err := writeChildren(&buf, root, "  "); err != nil {
		return nil, err
	}
	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

func writeChildren(buf *bytes.Buffer, dir *Node, indent string) error {
	return writeObject(buf, indent, nil, dir.Children)
}

// writeObject writes {"field": value..., "child": {...}...}. fields come first.
func writeObject(buf *bytes.Buffer, indent string, fields []field, children []*Node) error {
	if len(fields) == 0 && len(children) == 0 {
		buf.WriteString("{}")
		return nil
	}

	inner := indent + "  "
	buf.WriteString("{")
	first := true
	sep := func() {
		if !first {
			buf.WriteString(",")
		}
		first = false
		buf.WriteString("\n" + inner)
	}

	for _, f := range fields {
		sep()
		if err := writeKey(buf, f.key); err != nil {
			return err
		}
		value, err := json.MarshalIndent(f.value, inner, "  ")
		if err != nil {
			return err
		}
		buf.Write(value)
	}

	for _, child := range children {
		sep()
		if err := writeKey(buf, child.Name); err != nil {
			return err
		}
		if err := writeNode(buf, child, inner); err != nil {
			return err
		}
	}

	buf.WriteString("\n" + indent + "}")
	return nil
}

func writeNode(buf *bytes.Buffer, n *Node, indent string) error {
	fields := []field{{"type", n.Type}}
	switch n.Type {
	case TypeDirectory:
		return writeObject(buf, indent, fields, n.Children)
	case TypeFile:
		fields = append(fields, field{"downloads", n.Downloads})
		if n.Executable {
			fields = append(fields, field{"executable", true})
		}
	}
	return writeObject(buf, indent, fields, nil)
}

func writeKey(buf *bytes.Buffer, key string) error {
	encoded, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	buf.WriteString(": ")
	return nil
}

type field struct {
	key   string
	value any
}
