package presets

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

// SchemaFormatDescriptors represents the flattened field descriptors.
const SchemaFormatDescriptors SchemaFormat = "descriptors"

// FieldDescriptor describes one registered configuration property for UI and
// tooling consumers.
type FieldDescriptor struct {
	Path    string `json:"path"`
	Label   string `json:"label,omitempty"`
	GroupID int    `json:"group_id"`
	Kind    string `json:"kind"`
}

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat `json:"format"`
	Document any          `json:"document"`
}

// Schema exports the registry as a descriptor document, one entry per
// registered path in insertion order.
func (r *Registry) Schema() SchemaDocument {
	descriptors := make([]FieldDescriptor, 0, len(r.order))
	for _, path := range r.order {
		entry := r.entries[path]
		descriptors = append(descriptors, FieldDescriptor{
			Path:    entry.Path,
			Label:   entry.Label,
			GroupID: entry.GroupID,
			Kind:    entry.Kind.String(),
		})
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}
}
