package bundle

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
)

// Bundle maps keys to typed values. A nil Bundle means "no payload".
type Bundle map[string]Value

func New() Bundle { return Bundle{} }

func (b Bundle) Set(key string, v Value) Bundle {
	if v.kind.Valid() {
		b[key] = v
	}
	return b
}

func (b Bundle) Get(key string) (Value, bool) {
	v, ok := b[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (b Bundle) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v.clone()
	}
	return out
}

// Merge returns a new bundle holding b overlaid with other.
func (b Bundle) Merge(other Bundle) Bundle {
	out := make(Bundle, len(b)+len(other))
	for k, v := range b {
		out[k] = v.clone()
	}
	for k, v := range other {
		out[k] = v.clone()
	}
	return out
}

func (b Bundle) Equal(o Bundle) bool {
	if len(b) != len(o) {
		return false
	}
	for k, v := range b {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// ToMap converts the bundle to plain Go values; nested bundles become map[string]any.
func (b Bundle) ToMap() map[string]any {
	if b == nil {
		return nil
	}
	out := make(map[string]any, len(b))
	for k, v := range b {
		if nb, ok := v.AsBundle(); ok {
			out[k] = nb.ToMap()
			continue
		}
		out[k] = v.clone().v
	}
	return out
}

// FromMap converts plain Go values into a Bundle. Values of unsupported
// types are dropped and logged; their keys are returned (nested keys as "a.b").
// Plain int is accepted as int64.
func FromMap(ctx context.Context, m map[string]any) (Bundle, []string) {
	if m == nil {
		return nil, nil
	}
	out := make(Bundle, len(m))
	var dropped []string
	for _, k := range sortedKeys(m) {
		v, ok, nestedDropped := fromAny(ctx, m[k])
		for _, d := range nestedDropped {
			dropped = append(dropped, k+"."+d)
		}
		if !ok {
			logging.Warn(ctx, "dropping unsupported payload value",
				zap.String("key", k), zap.String("type", fmt.Sprintf("%T", m[k])))
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	return out, dropped
}

func fromAny(ctx context.Context, x any) (Value, bool, []string) {
	switch t := x.(type) {
	case Value:
		return t.clone(), t.kind.Valid(), nil
	case bool:
		return Bool(t), true, nil
	case float64:
		return Float64(t), true, nil
	case []float64:
		return Float64Array(t...), true, nil
	case int32:
		return Int32(t), true, nil
	case []int32:
		return Int32Array(t...), true, nil
	case int64:
		return Int64(t), true, nil
	case int:
		return Int64(int64(t)), true, nil
	case []int64:
		return Int64Array(t...), true, nil
	case string:
		return String(t), true, nil
	case []string:
		return StringArray(t...), true, nil
	case Bundle:
		return Nested(t), true, nil
	case map[string]any:
		nb, dropped := FromMap(ctx, t)
		return Value{KindBundle, nb}, true, dropped
	default:
		return Value{}, false, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
