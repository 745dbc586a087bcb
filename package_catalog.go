package presets

import (
	"fmt"

	"github.com/goliatone/go-presets/internal/hydrate"
)

// LoadPresets hydrates preset definitions from raw JSON-shaped payloads, the
// decoded contents of a preset package manifest. Every payload must carry an
// id; presets without an explicit package inherit pkg.
func LoadPresets(pkg string, payloads []map[string]any) ([]Preset, error) {
	decoder := hydrate.NewDecoder[Preset](
		hydrate.WithUseNumber[Preset](),
		hydrate.WithPostHook[Preset](func(ctx hydrate.Context, preset *Preset) error {
			if preset.ID == "" {
				return fmt.Errorf("preset payload missing id")
			}
			if preset.Package == "" {
				preset.Package = ctx.Package
			}
			return nil
		}),
	)

	out := make([]Preset, 0, len(payloads))
	for _, payload := range payloads {
		ctx := hydrate.Context{Package: pkg}
		if id, ok := payload["id"].(string); ok {
			ctx.PresetID = id
		}
		preset, err := decoder.Decode(ctx, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, preset)
	}
	return out, nil
}

// LoadPackageCatalog hydrates payloads into a ready-to-use in-memory catalog.
func LoadPackageCatalog(pkg string, payloads []map[string]any) (*MemoryCatalog, error) {
	presets, err := LoadPresets(pkg, payloads)
	if err != nil {
		return nil, err
	}
	catalog := &MemoryCatalog{presets: make(map[string]Preset)}
	for _, preset := range presets {
		if err := catalog.Register(preset); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
