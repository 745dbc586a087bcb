package presets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the typed payload a Value carries.
type Kind int

const (
	// KindUnset marks the explicit "no value" sentinel, distinct from any
	// zero value.
	KindUnset Kind = iota
	// KindBool carries a boolean.
	KindBool
	// KindInt carries a 64-bit integer.
	KindInt
	// KindFloat carries a 64-bit float.
	KindFloat
	// KindVec3 carries a 3-component vector.
	KindVec3
	// KindColor carries an RGBA color with float components.
	KindColor
	// KindEnum carries an enum variant encoded as its string name.
	KindEnum
	// KindResource carries a resource reference: the logical resource id in
	// a preset definition, or the materialized instance id once applied.
	KindResource
)

var kindNames = map[Kind]string{
	KindUnset:    "unset",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindVec3:     "vec3",
	KindColor:    "color",
	KindEnum:     "enum",
	KindResource: "resource",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Vec3 is a 3-component vector property payload.
type Vec3 struct {
	X, Y, Z float64
}

// Color is an RGBA color property payload with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Value is the typed cell used for both preset override values and the
// "before" snapshots captured when an override is applied. The zero Value is
// unset.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	v    Vec3
	c    Color
}

// Unset returns the explicit "no value" sentinel.
func Unset() Value {
	return Value{}
}

// BoolValue wraps a boolean.
func BoolValue(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// IntValue wraps an integer.
func IntValue(v int64) Value {
	return Value{kind: KindInt, i: v}
}

// FloatValue wraps a float.
func FloatValue(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

// Vec3Value wraps a 3-vector.
func Vec3Value(v Vec3) Value {
	return Value{kind: KindVec3, v: v}
}

// ColorValue wraps an RGBA color.
func ColorValue(c Color) Value {
	return Value{kind: KindColor, c: c}
}

// EnumValue wraps an enum variant name.
func EnumValue(name string) Value {
	return Value{kind: KindEnum, s: name}
}

// ResourceValue wraps a resource reference id.
func ResourceValue(id string) Value {
	return Value{kind: KindResource, s: id}
}

// Kind reports the payload kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsSet reports whether the cell holds a meaningful value.
func (v Value) IsSet() bool {
	return v.kind != KindUnset
}

// AsBool returns the boolean payload when present.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt returns the integer payload when present.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the float payload when present.
func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// AsVec3 returns the vector payload when present.
func (v Value) AsVec3() (Vec3, bool) {
	return v.v, v.kind == KindVec3
}

// AsColor returns the color payload when present.
func (v Value) AsColor() (Color, bool) {
	return v.c, v.kind == KindColor
}

// AsEnum returns the enum variant name when present.
func (v Value) AsEnum() (string, bool) {
	return v.s, v.kind == KindEnum
}

// AsResource returns the resource reference id when present.
func (v Value) AsResource() (string, bool) {
	return v.s, v.kind == KindResource
}

// Interface returns the payload as a plain Go value suitable for evaluator
// environments and trace output. Unset yields nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindVec3:
		return []float64{v.v.X, v.v.Y, v.v.Z}
	case KindColor:
		return []float64{v.c.R, v.c.G, v.c.B, v.c.A}
	case KindEnum, KindResource:
		return v.s
	default:
		return nil
	}
}

// Equal reports payload equality, including kind.
func (v Value) Equal(other Value) bool {
	return v == other
}

// Encode serialises the value into its string transport form. The encoding is
// kind-prefixed so it round-trips without external type information. Unset
// encodes to the empty string.
func (v Value) Encode() string {
	switch v.kind {
	case KindBool:
		return "bool:" + strconv.FormatBool(v.b)
	case KindInt:
		return "int:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		return "float:" + formatFloat(v.f)
	case KindVec3:
		return "vec3:" + strings.Join([]string{
			formatFloat(v.v.X), formatFloat(v.v.Y), formatFloat(v.v.Z),
		}, ",")
	case KindColor:
		return "color:" + strings.Join([]string{
			formatFloat(v.c.R), formatFloat(v.c.G), formatFloat(v.c.B), formatFloat(v.c.A),
		}, ",")
	case KindEnum:
		return "enum:" + v.s
	case KindResource:
		return "resource:" + v.s
	default:
		return ""
	}
}

func (v Value) String() string {
	if !v.IsSet() {
		return "<unset>"
	}
	return v.Encode()
}

// DecodeValue parses the transport form produced by Encode. The empty string
// decodes to Unset.
func DecodeValue(raw string) (Value, error) {
	if raw == "" {
		return Unset(), nil
	}
	prefix, payload, found := strings.Cut(raw, ":")
	if !found {
		return Unset(), fmt.Errorf("presets: malformed value %q", raw)
	}
	switch prefix {
	case "bool":
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return Unset(), fmt.Errorf("presets: decode bool %q: %w", raw, err)
		}
		return BoolValue(b), nil
	case "int":
		i, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return Unset(), fmt.Errorf("presets: decode int %q: %w", raw, err)
		}
		return IntValue(i), nil
	case "float":
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return Unset(), fmt.Errorf("presets: decode float %q: %w", raw, err)
		}
		return FloatValue(f), nil
	case "vec3":
		parts, err := parseFloats(payload, 3)
		if err != nil {
			return Unset(), fmt.Errorf("presets: decode vec3 %q: %w", raw, err)
		}
		return Vec3Value(Vec3{X: parts[0], Y: parts[1], Z: parts[2]}), nil
	case "color":
		parts, err := parseFloats(payload, 4)
		if err != nil {
			return Unset(), fmt.Errorf("presets: decode color %q: %w", raw, err)
		}
		return ColorValue(Color{R: parts[0], G: parts[1], B: parts[2], A: parts[3]}), nil
	case "enum":
		return EnumValue(payload), nil
	case "resource":
		return ResourceValue(payload), nil
	default:
		return Unset(), fmt.Errorf("presets: unknown value kind %q", prefix)
	}
}

// MarshalJSON encodes the value as its transport string.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Encode())
}

// UnmarshalJSON decodes the transport string form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeValue(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// CoerceValue converts a loosely typed evaluator result into a Value of the
// requested kind. KindUnset infers the kind from the dynamic type.
func CoerceValue(kind Kind, value any) (Value, error) {
	if value == nil {
		return Unset(), nil
	}
	if kind == KindUnset {
		return inferValue(value)
	}
	switch kind {
	case KindBool:
		if b, ok := value.(bool); ok {
			return BoolValue(b), nil
		}
	case KindInt:
		if i, ok := toInt64(value); ok {
			return IntValue(i), nil
		}
	case KindFloat:
		if f, ok := toFloat64(value); ok {
			return FloatValue(f), nil
		}
	case KindVec3:
		if parts, ok := toFloatSlice(value, 3); ok {
			return Vec3Value(Vec3{X: parts[0], Y: parts[1], Z: parts[2]}), nil
		}
	case KindColor:
		if parts, ok := toFloatSlice(value, 4); ok {
			return ColorValue(Color{R: parts[0], G: parts[1], B: parts[2], A: parts[3]}), nil
		}
	case KindEnum:
		if s, ok := value.(string); ok {
			return EnumValue(s), nil
		}
	case KindResource:
		if s, ok := value.(string); ok {
			return ResourceValue(s), nil
		}
	}
	return Unset(), fmt.Errorf("presets: cannot coerce %T into %s", value, kind)
}

func inferValue(value any) (Value, error) {
	switch typed := value.(type) {
	case Value:
		return typed, nil
	case bool:
		return BoolValue(typed), nil
	case string:
		return EnumValue(typed), nil
	case Vec3:
		return Vec3Value(typed), nil
	case Color:
		return ColorValue(typed), nil
	case int, int32, int64:
		i, _ := toInt64(typed)
		return IntValue(i), nil
	case float32, float64:
		f, _ := toFloat64(typed)
		return FloatValue(f), nil
	}
	if parts, ok := toFloatSlice(value, 3); ok {
		return Vec3Value(Vec3{X: parts[0], Y: parts[1], Z: parts[2]}), nil
	}
	if parts, ok := toFloatSlice(value, 4); ok {
		return ColorValue(Color{R: parts[0], G: parts[1], B: parts[2], A: parts[3]}), nil
	}
	return Unset(), fmt.Errorf("presets: cannot infer value kind for %T", value)
}

func toInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case float64:
		if typed == float64(int64(typed)) {
			return int64(typed), true
		}
	case float32:
		if float64(typed) == float64(int64(typed)) {
			return int64(typed), true
		}
	}
	return 0, false
}

func toFloat64(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	}
	return 0, false
}

func toFloatSlice(value any, size int) ([]float64, bool) {
	switch typed := value.(type) {
	case []float64:
		if len(typed) == size {
			out := make([]float64, size)
			copy(out, typed)
			return out, true
		}
	case []any:
		if len(typed) != size {
			return nil, false
		}
		out := make([]float64, size)
		for i, item := range typed {
			f, ok := toFloat64(item)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloats(payload string, size int) ([]float64, error) {
	parts := strings.Split(payload, ",")
	if len(parts) != size {
		return nil, fmt.Errorf("expected %d components, got %d", size, len(parts))
	}
	out := make([]float64, size)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// SavedProperty is one snapshot cell: the value a configuration path held
// before an override was written onto it. Set=false records that the path
// held no meaningful value at snapshot time.
type SavedProperty struct {
	Path string `json:"path"`
	Raw  string `json:"raw_value"`
	Set  bool   `json:"is_set"`
}

// SaveProperty snapshots value under path.
func SaveProperty(path string, value Value) SavedProperty {
	return SavedProperty{
		Path: path,
		Raw:  value.Encode(),
		Set:  value.IsSet(),
	}
}

// Value decodes the saved transport form. Unset snapshots decode to the
// Unset sentinel.
func (p SavedProperty) Value() (Value, error) {
	if !p.Set {
		return Unset(), nil
	}
	return DecodeValue(p.Raw)
}
