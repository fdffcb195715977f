// document.go handles loading a single compose file into a Document.
//
// Only the three top-level sections the aggregator merges are extracted.
// Everything else in the file (version, x-* extensions, configs, secrets)
// is ignored, matching what ends up in the combined output.
package compose

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Section names of a compose document.
const (
	SectionServices = "services"
	SectionVolumes  = "volumes"
	SectionNetworks = "networks"
)

// Document is the parsed form of one compose file. Each section is a
// mapping node, or nil when the file does not define it.
type Document struct {
	// Path is the file the document was loaded from.
	Path string

	Services *yaml.Node
	Volumes  *yaml.Node
	Networks *yaml.Node
}

// IsEmpty reports whether the document defines none of the sections.
func (d *Document) IsEmpty() bool {
	return d.Services == nil && d.Volumes == nil && d.Networks == nil
}

// Counts returns the number of services, volumes, and networks defined.
func (d *Document) Counts() (services, volumes, networks int) {
	return mappingLen(d.Services), mappingLen(d.Volumes), mappingLen(d.Networks)
}

// LoadDocument reads a compose file and parses it with ParseDocument.
//
// The file is read in full with os.ReadFile, which closes it before
// returning, so at most one compose file is open at any time.
//
// Returns an IOError if the file cannot be read.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return ParseDocument(path, data)
}

// ParseDocument parses compose YAML into a Document.
//
// Aliases and "<<" merge keys are resolved and anchors, comments, and flow
// styles are dropped while parsing (see normalize), so nodes taken from
// different files can be placed in one output tree without anchor names
// clashing, and paths brought in by a merge are rewritten like any other.
//
// An empty file yields an empty Document. A null section is treated as
// absent.
//
// Returns a ParseError for malformed YAML and a ShapeError if the
// document or one of its sections is not a mapping.
func ParseDocument(path string, data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	doc := &Document{Path: path}

	// An empty stream decodes to a zero node with no document content.
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return doc, nil
	}

	body, err := normalize(root.Content[0])
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if isNull(body) {
		return doc, nil
	}
	if body.Kind != yaml.MappingNode {
		return nil, &ShapeError{Path: path, Field: "(root)", Message: "compose document must be a mapping"}
	}

	sections := []struct {
		name string
		dst  **yaml.Node
	}{
		{SectionServices, &doc.Services},
		{SectionVolumes, &doc.Volumes},
		{SectionNetworks, &doc.Networks},
	}
	for _, s := range sections {
		value, ok := mappingValue(body, s.name)
		if !ok || isNull(value) {
			continue
		}
		if value.Kind != yaml.MappingNode {
			return nil, &ShapeError{Path: path, Field: s.name, Message: fmt.Sprintf("expected a mapping, got %s", kindName(value))}
		}
		*s.dst = value
	}

	return doc, nil
}

// normalize returns a deep copy of n with aliases replaced by copies of
// their targets, merge keys resolved, anchors and comments removed, and
// flow style cleared so the encoder writes block style.
func normalize(n *yaml.Node) (*yaml.Node, error) {
	return normalizeNode(n, make(map[*yaml.Node]bool))
}

func normalizeNode(n *yaml.Node, active map[*yaml.Node]bool) (*yaml.Node, error) {
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unresolved alias %q", n.Line, n.Value)
		}
		if active[n.Alias] {
			return nil, fmt.Errorf("line %d: alias %q refers to itself", n.Line, n.Value)
		}
		return normalizeNode(n.Alias, active)
	}

	active[n] = true
	defer delete(active, n)

	if n.Kind == yaml.MappingNode {
		return normalizeMapping(n, active)
	}

	c := &yaml.Node{
		Kind:   n.Kind,
		Style:  n.Style &^ yaml.FlowStyle,
		Tag:    n.Tag,
		Value:  n.Value,
		Line:   n.Line,
		Column: n.Column,
	}
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, 0, len(n.Content))
		for _, child := range n.Content {
			cc, err := normalizeNode(child, active)
			if err != nil {
				return nil, err
			}
			c.Content = append(c.Content, cc)
		}
	}
	return c, nil
}

// normalizeMapping normalizes a mapping and resolves its "<<" merge keys.
//
// Merged pairs come first, in the order of the merged mappings; with a
// sequence of mappings, an earlier mapping wins over a later one. Keys
// written in the mapping itself override merged keys in place. The "<<"
// pairs are dropped.
func normalizeMapping(n *yaml.Node, active map[*yaml.Node]bool) (*yaml.Node, error) {
	c := &yaml.Node{
		Kind:   n.Kind,
		Style:  n.Style &^ yaml.FlowStyle,
		Tag:    n.Tag,
		Line:   n.Line,
		Column: n.Column,
	}

	var local []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if isMergeKey(key) {
			pairs, err := mergePairs(key, value, active)
			if err != nil {
				return nil, err
			}
			for j := 0; j+1 < len(pairs); j += 2 {
				if _, ok := mappingValue(c, pairs[j].Value); !ok {
					c.Content = append(c.Content, pairs[j], pairs[j+1])
				}
			}
			continue
		}

		nk, err := normalizeNode(key, active)
		if err != nil {
			return nil, err
		}
		nv, err := normalizeNode(value, active)
		if err != nil {
			return nil, err
		}
		local = append(local, nk, nv)
	}

	for i := 0; i+1 < len(local); i += 2 {
		if !setMappingValue(c, local[i].Value, local[i+1]) {
			c.Content = append(c.Content, local[i], local[i+1])
		}
	}
	return c, nil
}

// mergePairs returns the normalized key/value pairs a merge key brings in.
// The value must be a mapping or a sequence of mappings.
func mergePairs(key, value *yaml.Node, active map[*yaml.Node]bool) ([]*yaml.Node, error) {
	merged, err := normalizeNode(value, active)
	if err != nil {
		return nil, err
	}

	switch merged.Kind {
	case yaml.MappingNode:
		return merged.Content, nil
	case yaml.SequenceNode:
		var pairs []*yaml.Node
		seen := make(map[string]bool)
		for _, item := range merged.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge key sequence must contain only mappings, got %s", key.Line, kindName(item))
			}
			for j := 0; j+1 < len(item.Content); j += 2 {
				k := item.Content[j].Value
				if seen[k] {
					continue
				}
				seen[k] = true
				pairs = append(pairs, item.Content[j], item.Content[j+1])
			}
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("line %d: merge key value must be a mapping or a sequence of mappings, got %s", key.Line, kindName(merged))
	}
}

// isMergeKey reports whether a mapping key is the YAML merge key "<<".
func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!merge"
}

// setMappingValue replaces the value stored under key, reporting whether
// the key was present.
func setMappingValue(m *yaml.Node, key string, value *yaml.Node) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return true
		}
	}
	return false
}

// deepCopy returns an independent copy of a normalized node tree.
func deepCopy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = deepCopy(child)
		}
	}
	return &c
}

// mappingValue returns the value stored under key in a mapping node.
func mappingValue(m *yaml.Node, key string) (*yaml.Node, bool) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], true
		}
	}
	return nil, false
}

// mappingLen returns the number of key/value pairs in a mapping node.
func mappingLen(m *yaml.Node) int {
	if m == nil {
		return 0
	}
	return len(m.Content) / 2
}

// newMapping returns an empty block-style mapping node.
func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// newString returns a plain string scalar node.
func newString(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// appendPair adds key: value to the end of a mapping node.
func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, newString(key), value)
}

// isNull reports whether n is missing or an explicit YAML null.
func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// stringValue returns the value of a string scalar.
func stringValue(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", false
	}
	return n.Value, true
}

// kindName describes a node for error messages.
func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar " + n.ShortTag()
	default:
		return "node"
	}
}
