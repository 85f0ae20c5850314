package persistence

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded protobuf field. Varint and fixed64 values land in u,
// length-delimited values in b.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

func (f field) varint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: field %d: want varint, got wire type %d", ErrCorruptSnapshot, f.num, f.typ)
	}
	return f.u, nil
}

func (f field) float() (float64, error) {
	if f.typ != protowire.Fixed64Type {
		return 0, fmt.Errorf("%w: field %d: want fixed64, got wire type %d", ErrCorruptSnapshot, f.num, f.typ)
	}
	return math.Float64frombits(f.u), nil
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: field %d: want bytes, got wire type %d", ErrCorruptSnapshot, f.num, f.typ)
	}
	return f.b, nil
}

// index decodes a varint field that must fit a non-negative int below limit.
func (f field) index(limit int) (int, error) {
	v, err := f.varint()
	if err != nil {
		return 0, err
	}
	if v >= uint64(limit) {
		return 0, fmt.Errorf("%w: field %d: index %d out of range [0,%d)", ErrCorruptSnapshot, f.num, v, limit)
	}
	return int(v), nil
}

// forEachField walks a serialized message. Unknown wire types are skipped.
func forEachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrCorruptSnapshot, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFloatField(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendPackedVarints(b []byte, num protowire.Number, vs []uint64) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, v)
	}
	return appendBytesField(b, num, packed)
}

func appendPackedFloats(b []byte, num protowire.Number, vs []float64) []byte {
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	return appendBytesField(b, num, packed)
}

func unpackVarints(b []byte) ([]uint64, error) {
	var out []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: packed varints: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

func unpackFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: packed fixed64 of %d bytes", ErrCorruptSnapshot, len(b))
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: packed fixed64: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}
	return out, nil
}
