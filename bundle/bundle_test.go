package bundle

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func sample() Bundle {
	inner := New().Set("depth", Int32(2)).Set("tags", StringArray("x", "y"))
	return New().
		Set("flag", Bool(true)).
		Set("ratio", Float64(0.5)).
		Set("ratios", Float64Array(1.5, 2.5)).
		Set("count", Int32(7)).
		Set("counts", Int32Array(1, 2, 3)).
		Set("big", Int64(1<<53+1)).
		Set("bigs", Int64Array(-1, 1<<40)).
		Set("name", String("worker")).
		Set("names", StringArray("a", "b")).
		Set("inner", Nested(inner))
}

func TestJSONRoundTripPreservesKinds(t *testing.T) {
	in := sample()
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count":{"kind":"int32","value":7}`)

	var out Bundle
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
	big, ok := out["big"].AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(1<<53+1), big)
}

func TestBinaryRoundTrip(t *testing.T) {
	in := sample()
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Bundle
	require.NoError(t, out.UnmarshalBinary(data))
	assert.True(t, in.Equal(out))
	inner, ok := out["inner"].AsBundle()
	require.True(t, ok)
	tags, _ := inner["tags"].AsStringArray()
	assert.Equal(t, []string{"x", "y"}, tags)
}

func TestBinaryDropsUnknownKinds(t *testing.T) {
	data, err := msgpack.Marshal(map[string][]any{
		"keep": {uint8(KindString), "v"},
		"odd":  {uint8(99), "???"},
	})
	require.NoError(t, err)

	var out Bundle
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, []string{"keep"}, out.Keys())
}

func TestJSONDropsUnknownKindButRejectsBrokenDocuments(t *testing.T) {
	var b Bundle
	require.NoError(t, json.Unmarshal([]byte(`{"a":{"kind":"string","value":"x"},"b":{"kind":"parcelable","value":{}}}`), &b))
	assert.Equal(t, []string{"a"}, b.Keys())

	assert.Error(t, json.Unmarshal([]byte(`{"a":{"kind":"int32","value":"seven"}}`), &b))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &b))
}

func TestFromMapReportsDroppedKeys(t *testing.T) {
	type custom struct{ X int }
	b, dropped := FromMap(context.Background(), map[string]any{
		"n":      3,
		"s":      "x",
		"obj":    custom{X: 1},
		"nested": map[string]any{"ok": true, "ch": make(chan int)},
	})
	assert.ElementsMatch(t, []string{"obj", "nested.ch"}, dropped)
	n, ok := b["n"].AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(3), n)
	nested, ok := b["nested"].AsBundle()
	require.True(t, ok)
	assert.Equal(t, []string{"ok"}, nested.Keys())
}

func TestMergeAndCloneAreIndependent(t *testing.T) {
	base := New().Set("a", StringArray("1")).Set("b", Int32(1))
	merged := base.Merge(New().Set("b", Int32(2)))

	b, _ := merged["b"].AsInt32()
	assert.Equal(t, int32(2), b)
	orig, _ := base["b"].AsInt32()
	assert.Equal(t, int32(1), orig)

	clone := base.Clone()
	clone["a"] = StringArray("changed")
	assert.False(t, clone.Equal(base))
	assert.Nil(t, Bundle(nil).Clone())
}

func TestSetIgnoresInvalidValue(t *testing.T) {
	b := New().Set("zero", Value{})
	assert.Empty(t, b)
	assert.Equal(t, "int32_array", KindInt32Array.String())
	k, ok := ParseKind("bundle")
	assert.True(t, ok)
	assert.Equal(t, KindBundle, k)
	_, ok = ParseKind("invalid")
	assert.False(t, ok)
}
