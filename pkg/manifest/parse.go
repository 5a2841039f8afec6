package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// filesKey is the member of the upstream manifest document that holds the tree
const filesKey = "files"

// FormatError reports a document whose shape this launcher does not support.
// Callers treat it as fatal for the whole operation.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported manifest format: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unsupported manifest format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseDocument parses an upstream manifest, which wraps the tree as {"files": {...}}
func ParseDocument(data []byte) (*Node, error) {
	members, isObject, err := objectMembers(data)
	if err != nil {
		return nil, &FormatError{Reason: "invalid JSON", Err: err}
	}
	if !isObject {
		return nil, &FormatError{Reason: "manifest is not a JSON object"}
	}
	for _, m := range members {
		if m.key == filesKey {
			return parseRoot(m.value)
		}
	}
	return nil, &FormatError{Reason: fmt.Sprintf("missing %q mapping", filesKey)}
}

// ParseTree parses a bare mapping of name -> node
func ParseTree(data []byte) (*Node, error) {
	return parseRoot(data)
}

// Parse accepts either a full document or a bare tree
func Parse(data []byte) (*Node, error) {
	members, isObject, err := objectMembers(data)
	if err != nil {
		return nil, &FormatError{Reason: "invalid JSON", Err: err}
	}
	if !isObject {
		return nil, &FormatError{Reason: "manifest is not a JSON object"}
	}
	for _, m := range members {
		if m.key == filesKey && isJSONObject(m.value) {
			return parseRoot(m.value)
		}
	}
	return parseRoot(data)
}

func parseRoot(data []byte) (*Node, error) {
	members, isObject, err := objectMembers(data)
	if err != nil {
		return nil, &FormatError{Reason: "invalid JSON", Err: err}
	}
	if !isObject {
		return nil, &FormatError{Reason: "file tree is not a JSON object"}
	}
	children, err := parseChildren(members, "")
	if err != nil {
		return nil, err
	}
	return NewDirectory("", children...), nil
}

// parseChildren turns object members into nodes. Values that are not objects
// (such as a directory's own "type" tag) are not nodes.
func parseChildren(members []member, parent string) ([]*Node, error) {
	var children []*Node
	for _, m := range members {
		if !isJSONObject(m.value) {
			continue
		}
		node, err := parseNode(m.key, m.value, parent)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return children, nil
}

func parseNode(name string, data json.RawMessage, parent string) (*Node, error) {
	members, _, err := objectMembers(data)
	if err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("entry %q", joinName(parent, name)), Err: err}
	}

	var nodeType NodeType
	for _, m := range members {
		if m.key != "type" {
			continue
		}
		var s string
		if json.Unmarshal(m.value, &s) == nil {
			nodeType = NodeType(s)
		}
	}

	node := &Node{Name: name, Type: nodeType}
	switch nodeType {
	case TypeDirectory:
		var childMembers []member
		for _, m := range members {
			if m.key != "type" {
				childMembers = append(childMembers, m)
			}
		}
		children, err := parseChildren(childMembers, joinName(parent, name))
		if err != nil {
			return nil, err
		}
		node.Children = children

	case TypeFile:
		for _, m := range members {
			switch m.key {
			case "downloads":
				if err := json.Unmarshal(m.value, &node.Downloads); err != nil {
					return nil, &FormatError{Reason: fmt.Sprintf("downloads of %q", joinName(parent, name)), Err: err}
				}
			case "executable":
				// Tolerate non-boolean values; they just leave the flag unset
				_ = json.Unmarshal(m.value, &node.Executable)
			}
		}
	}
	return node, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// objectMembers decodes a JSON object keeping member order. A repeated key
// replaces the earlier value in place. isObject is false for other JSON values.
func objectMembers(data []byte) (members []member, isObject bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false, nil
	}

	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, true, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, true, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, true, err
		}
		if i, seen := index[key]; seen {
			members[i].value = value
			continue
		}
		index[key] = len(members)
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, true, err
	}
	return members, true, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func joinName(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
