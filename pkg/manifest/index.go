package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Release is a resolved game version: where its manifest lives and, once
// fetched, the parsed tree.
type Release struct {
	Product     string
	Version     string
	ManifestURL string
	Root        *Node
}

type indexEntry struct {
	Manifest *struct {
		URL string `json:"url"`
	} `json:"manifest"`
	Version *struct {
		Name string `json:"name"`
	} `json:"version"`
}

// indexSchema describes the part of the index the launcher reads: the first
// release listed under the product key. %[1]s is the JSON-quoted product.
const indexSchema = `{
	"type": "object",
	"required": [%[1]s],
	"properties": {
		%[1]s: {
			"type": "array",
			"minItems": 1,
			"prefixItems": [{
				"type": "object",
				"required": ["manifest", "version"],
				"properties": {
					"manifest": {
						"type": "object",
						"required": ["url"],
						"properties": {"url": {"type": "string", "minLength": 1}}
					},
					"version": {
						"type": "object",
						"required": ["name"],
						"properties": {"name": {"type": "string", "minLength": 1}}
					}
				}
			}]
		}
	}
}`

func compileIndexSchema(product string) (*jsonschema.Schema, error) {
	key, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("index.json", strings.NewReader(fmt.Sprintf(indexSchema, key))); err != nil {
		return nil, err
	}
	return compiler.Compile("index.json")
}

// ParseIndex reads the version index and returns the first release listed for product.
//
//	{"dungeons":[{"manifest":{"url":"..."},"version":{"name":"..."}}]}
func ParseIndex(data []byte, product string) (*Release, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Reason: "version index is not valid JSON", Err: err}
	}

	schema, err := compileIndexSchema(product)
	if err != nil {
		return nil, fmt.Errorf("failed to compile version index schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("version index has no usable %q release", product), Err: err}
	}

	// Only the first release is decoded; the schema has checked its shape
	var index map[string]json.RawMessage
	var releases []json.RawMessage
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, &FormatError{Reason: "version index does not decode", Err: err}
	}
	if err := json.Unmarshal(index[product], &releases); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("%q does not decode", product), Err: err}
	}
	var first indexEntry
	if err := json.Unmarshal(releases[0], &first); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("%q[0] does not decode", product), Err: err}
	}

	return &Release{
		Product:     product,
		Version:     first.Version.Name,
		ManifestURL: first.Manifest.URL,
	}, nil
}
