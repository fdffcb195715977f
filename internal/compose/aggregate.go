// aggregate.go merges transformed documents into the combined document.
//
// The Aggregator is the only mutable state of a run. It is created empty,
// receives one Add call per discovered compose file, and is read once with
// Document when all files have been merged.
package compose

import (
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/compose-combine/internal/model"
)

// Aggregator accumulates services, volumes, and networks from many
// compose documents. It is not safe for concurrent use.
type Aggregator struct {
	version  string
	services *yaml.Node
	volumes  *yaml.Node
	networks *yaml.Node

	// owners maps section → namespaced name → compose file that added it.
	owners map[string]map[string]string

	summary model.RunSummary
	logger  *zap.SugaredLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithVersion sets the top-level `version` of the combined document.
func WithVersion(version string) Option {
	return func(a *Aggregator) {
		a.version = version
	}
}

// WithLogger sets the logger used for debug output and warnings.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		version:  model.DefaultComposeVersion,
		services: newMapping(),
		volumes:  newMapping(),
		networks: newMapping(),
		owners: map[string]map[string]string{
			SectionServices: {},
			SectionVolumes:  {},
			SectionNetworks: {},
		},
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add transforms one document and merges it into the combined document.
//
// All three sections are transformed and checked for name collisions
// before anything is merged, so a failed Add leaves the Aggregator as it
// was. Errors carry the document's path.
func (a *Aggregator) Add(src model.ComposeSource, doc *Document) error {
	log := a.logger.With("path", src.Path, "token", src.Token)

	services := newMapping()
	var mounts []model.MountEntry
	if doc.Services != nil {
		for i := 0; i+1 < len(doc.Services.Content); i += 2 {
			name := doc.Services.Content[i].Value
			service := doc.Services.Content[i+1]

			updated, relocations, err := UpdateVolumePaths(service, src.Token)
			if err != nil {
				return withContext(err, src.Path, SectionServices+"."+name)
			}
			qualified := src.QualifiedName(name)
			if len(relocations) > 0 {
				log.Debugw("relocated service mounts", "service", qualified, "mounts", describeRelocations(relocations))
			}
			appendPair(services, qualified, updated)
			mounts = append(mounts, describeMounts(qualified, service, updated)...)
		}
	}

	volumes, err := UpdateNamedVolumes(doc.Volumes, src.Token)
	if err != nil {
		return withContext(err, src.Path, SectionVolumes)
	}

	networks, err := RenameNetworks(doc.Networks, src.Token)
	if err != nil {
		return withContext(err, src.Path, SectionNetworks)
	}

	staged := []struct {
		section string
		entries *yaml.Node
		into    *yaml.Node
	}{
		{SectionServices, services, a.services},
		{SectionVolumes, volumes, a.volumes},
		{SectionNetworks, networks, a.networks},
	}

	for _, s := range staged {
		if err := a.checkNames(s.section, s.entries, src.Path); err != nil {
			return err
		}
	}

	for _, s := range staged {
		owners := a.owners[s.section]
		for i := 0; i+1 < len(s.entries.Content); i += 2 {
			owners[s.entries.Content[i].Value] = src.Path
		}
		s.into.Content = append(s.into.Content, s.entries.Content...)
	}

	a.warnRenamedVolumeRefs(log, doc.Volumes, src.Token, mounts)

	a.summary.Sources = append(a.summary.Sources, model.SourceSummary{
		ComposeSource: src,
		Services:      mappingLen(services),
		Volumes:       mappingLen(volumes),
		Networks:      mappingLen(networks),
	})
	a.summary.Mounts = append(a.summary.Mounts, mounts...)

	log.Debugw("merged compose file",
		"services", mappingLen(services),
		"volumes", mappingLen(volumes),
		"networks", mappingLen(networks),
	)
	return nil
}

// checkNames returns a CollisionError if any name in entries is already
// owned in section, or appears twice in entries.
func (a *Aggregator) checkNames(section string, entries *yaml.Node, path string) error {
	owners := a.owners[section]
	seen := make(map[string]bool, mappingLen(entries))
	for i := 0; i+1 < len(entries.Content); i += 2 {
		name := entries.Content[i].Value
		if existing, ok := owners[name]; ok {
			return &CollisionError{Section: section, Name: name, Path: path, Existing: existing}
		}
		if seen[name] {
			return &CollisionError{Section: section, Name: name, Path: path, Existing: path}
		}
		seen[name] = true
	}
	return nil
}

// warnRenamedVolumeRefs logs a warning for every service mount that names
// a volume declared in the same file. The declaration was renamed to
// "<token>_<name>" but the reference was not, so Compose will treat the
// reference as a different, undeclared volume.
func (a *Aggregator) warnRenamedVolumeRefs(log *zap.SugaredLogger, declared *yaml.Node, token string, mounts []model.MountEntry) {
	if mappingLen(declared) == 0 {
		return
	}
	for _, m := range mounts {
		if m.Kind != model.MountVolume || m.Source == "" {
			continue
		}
		if _, ok := mappingValue(declared, m.Source); ok {
			log.Warnw("service mounts a volume that was renamed in the combined file",
				"service", m.Service,
				"volume", m.Source,
				"renamed", model.Qualify(token, m.Source),
			)
		}
	}
}

// Document returns the combined document.
//
// `version` and `services` are always present; `services` is written as
// {} when no service was merged. `volumes` and `networks` are left out
// when empty. The returned tree shares nodes with the Aggregator and must
// not be modified.
func (a *Aggregator) Document() *yaml.Node {
	out := newMapping()
	appendPair(out, "version", &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.DoubleQuotedStyle,
		Value: a.version,
	})
	appendPair(out, SectionServices, a.services)
	if mappingLen(a.volumes) > 0 {
		appendPair(out, SectionVolumes, a.volumes)
	}
	if mappingLen(a.networks) > 0 {
		appendPair(out, SectionNetworks, a.networks)
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{out}}
}

// Summary returns what has been merged so far.
func (a *Aggregator) Summary() model.RunSummary {
	s := a.summary
	s.Sources = append([]model.SourceSummary(nil), a.summary.Sources...)
	s.Mounts = append([]model.MountEntry(nil), a.summary.Mounts...)
	s.Services = mappingLen(a.services)
	s.Volumes = mappingLen(a.volumes)
	s.Networks = mappingLen(a.networks)
	return s
}

// Combine loads each source in order and merges it into a new Aggregator.
// The first error aborts the run; there is no partial result.
func Combine(sources []model.ComposeSource, opts ...Option) (*Aggregator, error) {
	a := NewAggregator(opts...)
	for _, src := range sources {
		a.logger.Debugw("loading compose file", "path", src.Path, "token", src.Token)

		doc, err := LoadDocument(src.Path)
		if err != nil {
			return nil, err
		}
		if doc.IsEmpty() {
			a.logger.Debugw("compose file defines no services, volumes or networks", "path", src.Path)
		}
		if err := a.Add(src, doc); err != nil {
			return nil, err
		}
	}
	return a, nil
}
