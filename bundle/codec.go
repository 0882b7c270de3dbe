package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
)

var ErrUnknownKind = errors.New("unknown bundle value kind")

type jsonValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.kind.Valid() {
		return nil, fmt.Errorf("marshal bundle value: %w", ErrUnknownKind)
	}
	raw, err := json.Marshal(v.v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Kind: v.kind.String(), Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return fmt.Errorf("decode bundle value: %w", err)
	}
	kind, ok := ParseKind(jv.Kind)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKind, jv.Kind)
	}
	var err error
	switch kind {
	case KindBool:
		*v, err = decodeJSON[bool](kind, jv.Value)
	case KindFloat64:
		*v, err = decodeJSON[float64](kind, jv.Value)
	case KindFloat64Array:
		*v, err = decodeJSON[[]float64](kind, jv.Value)
	case KindInt32:
		*v, err = decodeJSON[int32](kind, jv.Value)
	case KindInt32Array:
		*v, err = decodeJSON[[]int32](kind, jv.Value)
	case KindInt64:
		*v, err = decodeJSON[int64](kind, jv.Value)
	case KindInt64Array:
		*v, err = decodeJSON[[]int64](kind, jv.Value)
	case KindString:
		*v, err = decodeJSON[string](kind, jv.Value)
	case KindStringArray:
		*v, err = decodeJSON[[]string](kind, jv.Value)
	case KindBundle:
		*v, err = decodeJSON[Bundle](kind, jv.Value)
	}
	return err
}

func decodeJSON[T any](kind Kind, raw json.RawMessage) (Value, error) {
	var x T
	if err := json.Unmarshal(raw, &x); err != nil {
		return Value{}, fmt.Errorf("decode %s value: %w", kind, err)
	}
	return Value{kind, x}, nil
}

// UnmarshalJSON drops entries of unknown kind with a warning; any other
// decoding problem fails the whole bundle.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	out := make(Bundle, len(raw))
	for k, r := range raw {
		var v Value
		if err := v.UnmarshalJSON(r); err != nil {
			if errors.Is(err, ErrUnknownKind) {
				logging.Warn(context.Background(), "dropping bundle entry of unknown kind", zap.String("key", k), zap.Error(err))
				continue
			}
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	*b = out
	return nil
}

// EncodeMsgpack writes the value as [kind, value].
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(v.kind)); err != nil {
		return err
	}
	if v.kind == KindBundle {
		return enc.Encode(map[string]Value(v.v.(Bundle)))
	}
	return enc.Encode(v.v)
}

// DecodeMsgpack leaves the value invalid when the stored kind is unknown;
// Bundle decoding prunes such entries.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("bundle value: expected 2-element array, got %d", n)
	}
	k, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	kind := Kind(k)
	switch kind {
	case KindBool:
		*v, err = decodeMsgpack[bool](dec, kind)
	case KindFloat64:
		*v, err = decodeMsgpack[float64](dec, kind)
	case KindFloat64Array:
		*v, err = decodeMsgpack[[]float64](dec, kind)
	case KindInt32:
		*v, err = decodeMsgpack[int32](dec, kind)
	case KindInt32Array:
		*v, err = decodeMsgpack[[]int32](dec, kind)
	case KindInt64:
		*v, err = decodeMsgpack[int64](dec, kind)
	case KindInt64Array:
		*v, err = decodeMsgpack[[]int64](dec, kind)
	case KindString:
		*v, err = decodeMsgpack[string](dec, kind)
	case KindStringArray:
		*v, err = decodeMsgpack[[]string](dec, kind)
	case KindBundle:
		var m map[string]Value
		if err = dec.Decode(&m); err == nil {
			*v = Value{kind, Bundle(m).prune()}
		}
	default:
		*v = Value{}
		err = dec.Skip()
	}
	return err
}

func decodeMsgpack[T any](dec *msgpack.Decoder, kind Kind) (Value, error) {
	var x T
	if err := dec.Decode(&x); err != nil {
		return Value{}, fmt.Errorf("decode %s value: %w", kind, err)
	}
	return Value{kind, x}, nil
}

func (b Bundle) prune() Bundle {
	for k, v := range b {
		if !v.kind.Valid() {
			logging.Warn(context.Background(), "dropping bundle entry of unknown kind", zap.String("key", k))
			delete(b, k)
		}
	}
	return b
}

// MarshalBinary encodes the bundle with msgpack; this is the stored payload form.
func (b Bundle) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(map[string]Value(b))
}

func (b *Bundle) UnmarshalBinary(data []byte) error {
	var m map[string]Value
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	if m == nil {
		m = map[string]Value{}
	}
	*b = Bundle(m).prune()
	return nil
}
