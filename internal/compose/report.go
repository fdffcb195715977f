package compose

import (
	"github.com/compose-spec/compose-go/v2/format"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/compose-combine/internal/model"
)

// ClassifyMount reports how Compose interprets a short-syntax service
// volume entry, and the source it names. The rewrite itself never depends
// on this; it only feeds the run summary and warnings.
func ClassifyMount(entry string) (model.MountKind, string) {
	cfg, err := format.ParseVolume(entry)
	if err != nil {
		return model.MountUnknown, ""
	}
	switch cfg.Type {
	case types.VolumeTypeBind:
		return model.MountBind, cfg.Source
	case types.VolumeTypeVolume:
		return model.MountVolume, cfg.Source
	default:
		return model.MountUnknown, cfg.Source
	}
}

// describeMounts pairs the string volume entries of a service before and
// after UpdateVolumePaths. Both nodes must come from the same call, so
// their volume sequences line up entry by entry.
func describeMounts(service string, original, updated *yaml.Node) []model.MountEntry {
	before, ok := mappingValue(original, "volumes")
	if !ok || before.Kind != yaml.SequenceNode {
		return nil
	}
	after, ok := mappingValue(updated, "volumes")
	if !ok || len(after.Content) != len(before.Content) {
		return nil
	}

	var mounts []model.MountEntry
	for i, entry := range before.Content {
		value, ok := stringValue(entry)
		if !ok {
			continue
		}
		rewritten := after.Content[i].Value
		kind, source := ClassifyMount(rewritten)
		mounts = append(mounts, model.MountEntry{
			Service:   service,
			Original:  value,
			Rewritten: rewritten,
			Source:    source,
			Kind:      kind,
			Relocated: rewritten != value,
		})
	}
	return mounts
}
