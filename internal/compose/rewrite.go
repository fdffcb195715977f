// rewrite.go handles the per-file transforms applied before merging.
//
// A compose file in <root>/api refers to its own directory as "./". Once
// its services live in a file at <root>, the same paths must read
// "./api/...". Names are prefixed with the directory token so that two
// directories can both define a "web" service or a "cache" volume.
//
// The rewrite is a plain string prefix substitution. Applying it twice
// prefixes twice, so each document must be transformed exactly once.
package compose

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/compose-combine/internal/model"
)

// relativePrefix marks a path relative to the compose file's directory.
const relativePrefix = "./"

// mountSeparator splits a short-syntax mount "source:target[:mode]".
const mountSeparator = ":"

// Relocation records one service volume entry before and after rewriting.
type Relocation struct {
	Original  string
	Rewritten string
}

// RelocatePath moves a "./"-relative path under the token directory:
//
//	RelocatePath("./data", "api")   → "./api/data", true
//	RelocatePath("/srv/data", "api") → "/srv/data", false
//
// The boolean reports whether the path was rewritten.
func RelocatePath(path, token string) (string, bool) {
	if !strings.HasPrefix(path, relativePrefix) {
		return path, false
	}
	return relativePrefix + token + "/" + path[len(relativePrefix):], true
}

// RelocateMount rewrites the source side of a short-syntax mount entry:
//
//	RelocateMount("./data:/app/data:ro", "api") → "./api/data:/app/data:ro", true
//	RelocateMount("pgdata:/var/lib/pg", "api")  → unchanged, false
//	RelocateMount("./data", "api")              → unchanged, false
//
// Entries without a ":" are returned unchanged, even if they start with "./".
func RelocateMount(entry, token string) (string, bool) {
	if !strings.Contains(entry, mountSeparator) {
		return entry, false
	}
	parts := strings.Split(entry, mountSeparator)
	source, ok := RelocatePath(parts[0], token)
	if !ok {
		return entry, false
	}
	parts[0] = source
	return strings.Join(parts, mountSeparator), true
}

// UpdateVolumePaths returns a shallow copy of a service with its bind
// mount sources relocated under the token directory.
//
// A new mapping is built with the same key/value pairs as the input; only
// the `volumes` value is replaced by a new sequence. String entries go
// through RelocateMount. Long-syntax (mapping) entries and other non-string
// entries are copied through unchanged. The input node is not modified.
//
// A null service is returned as is. Returns a ShapeError if the service is
// not a mapping or its `volumes` is not a sequence.
func UpdateVolumePaths(service *yaml.Node, token string) (*yaml.Node, []Relocation, error) {
	if isNull(service) {
		return service, nil, nil
	}
	if service.Kind != yaml.MappingNode {
		return nil, nil, shapeErrorf("", "expected a mapping, got %s", kindName(service))
	}

	updated := &yaml.Node{Kind: service.Kind, Style: service.Style, Tag: service.Tag}
	updated.Content = make([]*yaml.Node, len(service.Content))
	copy(updated.Content, service.Content)

	var relocations []Relocation
	for i := 0; i+1 < len(updated.Content); i += 2 {
		if updated.Content[i].Value != "volumes" {
			continue
		}
		volumes := updated.Content[i+1]
		if isNull(volumes) {
			continue
		}
		if volumes.Kind != yaml.SequenceNode {
			return nil, nil, shapeErrorf("volumes", "expected a sequence, got %s", kindName(volumes))
		}

		entries := &yaml.Node{Kind: volumes.Kind, Style: volumes.Style, Tag: volumes.Tag}
		entries.Content = make([]*yaml.Node, 0, len(volumes.Content))
		for _, entry := range volumes.Content {
			value, ok := stringValue(entry)
			if !ok {
				entries.Content = append(entries.Content, entry)
				continue
			}
			rewritten, changed := RelocateMount(value, token)
			if !changed {
				entries.Content = append(entries.Content, entry)
				continue
			}
			scalar := *entry
			scalar.Value = rewritten
			entries.Content = append(entries.Content, &scalar)
			relocations = append(relocations, Relocation{Original: value, Rewritten: rewritten})
		}
		updated.Content[i+1] = entries
	}

	return updated, relocations, nil
}

// UpdateNamedVolumes returns a new volumes mapping with every key
// renamed to "<token>_<key>" and every "./" path relocated.
//
// A string spec is relocated directly. A mapping spec has its
// `driver_opts.device` and `source` fields relocated; all other fields are
// kept. Specs are deep-copied, so the input mapping is not modified.
//
// A nil or empty input yields an empty mapping. Returns a ShapeError if
// driver_opts is not a mapping, or device/source is not a string.
func UpdateNamedVolumes(volumes *yaml.Node, token string) (*yaml.Node, error) {
	updated := newMapping()
	if volumes == nil {
		return updated, nil
	}
	if volumes.Kind != yaml.MappingNode {
		return nil, shapeErrorf("", "expected a mapping, got %s", kindName(volumes))
	}

	for i := 0; i+1 < len(volumes.Content); i += 2 {
		name := volumes.Content[i].Value
		spec := deepCopy(volumes.Content[i+1])

		if err := relocateVolumeSpec(spec, token); err != nil {
			return nil, withContext(err, "", name)
		}
		appendPair(updated, model.Qualify(token, name), spec)
	}

	return updated, nil
}

// relocateVolumeSpec rewrites a single volume spec in place.
func relocateVolumeSpec(spec *yaml.Node, token string) error {
	if value, ok := stringValue(spec); ok {
		spec.Value, _ = RelocatePath(value, token)
		return nil
	}
	if spec.Kind != yaml.MappingNode {
		return nil
	}

	if opts, ok := mappingValue(spec, "driver_opts"); ok && !isNull(opts) {
		if opts.Kind != yaml.MappingNode {
			return shapeErrorf("driver_opts", "expected a mapping, got %s", kindName(opts))
		}
		if err := relocateField(opts, "device", token); err != nil {
			return withContext(err, "", "driver_opts")
		}
	}

	return relocateField(spec, "source", token)
}

// relocateField rewrites a "./" string stored under key in a mapping.
func relocateField(m *yaml.Node, key, token string) error {
	value, ok := mappingValue(m, key)
	if !ok || isNull(value) {
		return nil
	}
	path, ok := stringValue(value)
	if !ok {
		return shapeErrorf(key, "expected a string, got %s", kindName(value))
	}
	value.Value, _ = RelocatePath(path, token)
	return nil
}

// RenameNetworks returns a new networks mapping with every key renamed
// to "<token>_<key>". Network specs are carried over unchanged.
func RenameNetworks(networks *yaml.Node, token string) (*yaml.Node, error) {
	updated := newMapping()
	if networks == nil {
		return updated, nil
	}
	if networks.Kind != yaml.MappingNode {
		return nil, shapeErrorf("", "expected a mapping, got %s", kindName(networks))
	}
	for i := 0; i+1 < len(networks.Content); i += 2 {
		appendPair(updated, model.Qualify(token, networks.Content[i].Value), networks.Content[i+1])
	}
	return updated, nil
}

// describeRelocations is used for debug logging.
func describeRelocations(relocations []Relocation) string {
	parts := make([]string, 0, len(relocations))
	for _, r := range relocations {
		parts = append(parts, fmt.Sprintf("%s → %s", r.Original, r.Rewritten))
	}
	return strings.Join(parts, ", ")
}
