package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

// Value is one node of a marketplace payload tree. Objects keep key
// insertion order so the serialized payload stays stable across runs.
type Value struct {
	kind Kind
	keys []string
	obj  map[string]*Value
	arr  []*Value
	str  string
	num  float64
	b    bool
}

// Object returns an empty object node.
func Object() *Value {
	return &Value{kind: KindObject, obj: map[string]*Value{}}
}

// Array returns an array node holding the given elements.
func Array(elems ...*Value) *Value {
	return &Value{kind: KindArray, arr: elems}
}

// String returns a string node.
func String(s string) *Value {
	return &Value{kind: KindString, str: s}
}

// Number returns a numeric node.
func Number(f float64) *Value {
	return &Value{kind: KindNumber, num: f}
}

// Int returns a numeric node from an integer.
func Int(n int) *Value {
	return &Value{kind: KindNumber, num: float64(n)}
}

// Bool returns a boolean node.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, b: v}
}

// Null returns an explicit null node.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Kind reports the variant of the node; nil nodes count as null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// Set stores a child under key, creating or replacing it. No-op on
// non-object nodes.
func (v *Value) Set(key string, child *Value) *Value {
	if v == nil || v.kind != KindObject {
		return v
	}
	if _, exists := v.obj[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.obj[key] = child
	return v
}

// Get looks up an object child by key.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.kind != KindObject {
		return nil, false
	}
	child, ok := v.obj[key]
	return child, ok
}

// Append adds elements to an array node.
func (v *Value) Append(elems ...*Value) *Value {
	if v == nil || v.kind != KindArray {
		return v
	}
	v.arr = append(v.arr, elems...)
	return v
}

// Index returns the i-th array element.
func (v *Value) Index(i int) (*Value, bool) {
	if v == nil || v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return nil, false
	}
	return v.arr[i], true
}

// Len reports the element count of arrays and key count of objects.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.keys)
	default:
		return 0
	}
}

// Str returns the string content of string nodes.
func (v *Value) Str() string {
	if v == nil || v.kind != KindString {
		return ""
	}
	return v.str
}

// Num returns the numeric content of number nodes.
func (v *Value) Num() float64 {
	if v == nil || v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Path walks a dotted path; numeric segments index into arrays
// ("originProduct.images.0.url"). Missing segments report false.
func (v *Value) Path(path string) (*Value, bool) {
	current := v
	for _, part := range strings.Split(path, ".") {
		switch current.Kind() {
		case KindObject:
			child, ok := current.Get(part)
			if !ok {
				return nil, false
			}
			current = child
		case KindArray:
			idx, err := strconv.Atoi(part)
			if err != nil {
				return nil, false
			}
			child, ok := current.Index(idx)
			if !ok {
				return nil, false
			}
			current = child
		default:
			return nil, false
		}
	}
	return current, true
}

// Clone deep-copies the node.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, str: v.str, num: v.num, b: v.b}
	switch v.kind {
	case KindObject:
		out.obj = make(map[string]*Value, len(v.obj))
		out.keys = append([]string(nil), v.keys...)
		for k, child := range v.obj {
			out.obj[k] = child.Clone()
		}
	case KindArray:
		out.arr = make([]*Value, len(v.arr))
		for i, child := range v.arr {
			out.arr[i] = child.Clone()
		}
	}
	return out
}

// Merge deep-merges override onto v and returns the result; neither input
// is mutated. Nested objects merge key by key, every other combination is
// replaced wholesale (arrays included).
func (v *Value) Merge(override *Value) *Value {
	if override == nil {
		return v.Clone()
	}
	if v.Kind() != KindObject || override.Kind() != KindObject {
		return override.Clone()
	}

	merged := v.Clone()
	for _, key := range override.keys {
		incoming := override.obj[key]
		if existing, ok := merged.Get(key); ok && existing.Kind() == KindObject && incoming.Kind() == KindObject {
			merged.Set(key, existing.Merge(incoming))
			continue
		}
		merged.Set(key, incoming.Clone())
	}
	return merged
}

// FromAny converts a decoded-JSON value (maps, slices, scalars) into a tree.
func FromAny(raw any) (*Value, error) {
	switch value := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(value), nil
	case string:
		return String(value), nil
	case float64:
		return Number(value), nil
	case int:
		return Int(value), nil
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", value.String(), err)
		}
		return Number(f), nil
	case []any:
		arr := Array()
		for i, elem := range value {
			child, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr.Append(child)
		}
		return arr, nil
	case map[string]any:
		obj := Object()
		for _, key := range sortedKeys(value) {
			child, err := FromAny(value[key])
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			obj.Set(key, child)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion order is lost after json decoding anyway; sort for stability
	sort.Strings(keys)
	return keys
}

// MarshalJSON renders the tree preserving object key order.
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := elem.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			raw, err := v.obj[key].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown kind %d", v.kind)
	}
}

// UnmarshalJSON decodes arbitrary JSON into the tree.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}
