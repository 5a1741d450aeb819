package types

import "math"

// Value is the closed set of value kinds that cross the wire: booleans,
// signed/unsigned integers and single-precision floats. Go has no sum
// types, so the variants are modeled as an interface with an unexported
// marker method, the idiom the pack's own wire-protocol packages use for
// request/response variants (e.g. go-modbus-client's packet.Request).
type Value interface {
	isValue()
	// AsInt64 narrows the value to a signed integer, truncating per the
	// conversion rules in the data model: bools map to 1/0, floats round
	// toward zero.
	AsInt64() int64
	// AsUint64 narrows the value to an unsigned integer using the same
	// truncation rules.
	AsUint64() uint64
	// AsFloat32 widens/narrows the value to a float32.
	AsFloat32() float32
}

// Bool is a boolean value; true/false map to 1/0 when narrowed.
type Bool bool

func (Bool) isValue() {}
func (b Bool) AsInt64() int64 {
	if b {
		return 1
	}
	return 0
}
func (b Bool) AsUint64() uint64 { return uint64(b.AsInt64()) }
func (b Bool) AsFloat32() float32 {
	if b {
		return 1
	}
	return 0
}

// Int is a signed integer value.
type Int int64

func (Int) isValue()             {}
func (i Int) AsInt64() int64     { return int64(i) }
func (i Int) AsUint64() uint64   { return uint64(i) }
func (i Int) AsFloat32() float32 { return float32(i) }

// UnsignedInt is an unsigned integer value.
type UnsignedInt uint64

func (UnsignedInt) isValue()             {}
func (u UnsignedInt) AsInt64() int64     { return int64(u) }
func (u UnsignedInt) AsUint64() uint64   { return uint64(u) }
func (u UnsignedInt) AsFloat32() float32 { return float32(u) }

// Float is a single-precision floating point value. Conversion to an
// integer rounds toward zero (Go's int conversion already truncates).
type Float float32

func (Float) isValue() {}
func (f Float) AsInt64() int64 {
	return int64(math.Trunc(float64(f)))
}
func (f Float) AsUint64() uint64 {
	if f < 0 {
		return uint64(int64(math.Trunc(float64(f))))
	}
	return uint64(math.Trunc(float64(f)))
}
func (f Float) AsFloat32() float32 { return float32(f) }
