package wire

// Kind identifies which field of Data is populated. It is a decoding
// convenience only — the single source of truth for how to interpret a
// payload is Meta.Datatype (see spec.md §3); Kind mirrors that tag so a
// decoder doesn't have to re-derive it from which field is non-zero.
type Kind string

const (
	KindSInt32      Kind = "sint32"
	KindSInt64      Kind = "sint64"
	KindSFixed32    Kind = "sfixed32"
	KindSFixed64    Kind = "sfixed64"
	KindFloat       Kind = "float"
	KindDouble      Kind = "double"
	KindString      Kind = "string"
	KindBytes       Kind = "bytes"
	KindSInt32Array Kind = "array-sint32"
	KindSInt64Array Kind = "array-sint64"
	KindFloatArray  Kind = "array-float"
	KindDoubleArray Kind = "array-double"
	KindStringArray Kind = "array-string"
	KindBytesArray  Kind = "array-bytes"
	KindNative      Kind = "native"
)

// Data is the tagged scalar/array payload container from spec.md §3.
// Exactly one field besides Kind is meaningful for a given Kind value.
type Data struct {
	Kind Kind `msgpack:"kind" json:"kind"`

	I32 int32   `msgpack:"i32,omitempty" json:"i32,omitempty"`
	I64 int64   `msgpack:"i64,omitempty" json:"i64,omitempty"`
	F32 float32 `msgpack:"f32,omitempty" json:"f32,omitempty"`
	F64 float64 `msgpack:"f64,omitempty" json:"f64,omitempty"`
	Str string  `msgpack:"str,omitempty" json:"str,omitempty"`
	Raw []byte  `msgpack:"raw,omitempty" json:"raw,omitempty"`

	I32Arr []int32   `msgpack:"i32arr,omitempty" json:"i32arr,omitempty"`
	I64Arr []int64   `msgpack:"i64arr,omitempty" json:"i64arr,omitempty"`
	F32Arr []float32 `msgpack:"f32arr,omitempty" json:"f32arr,omitempty"`
	F64Arr []float64 `msgpack:"f64arr,omitempty" json:"f64arr,omitempty"`
	StrArr []string  `msgpack:"strarr,omitempty" json:"strarr,omitempty"`
	RawArr [][]byte  `msgpack:"rawarr,omitempty" json:"rawarr,omitempty"`

	// Native carries a nested, already-encoded Data record for the
	// binary/native tag (a Data value whose content is itself a Data).
	Native []byte `msgpack:"native,omitempty" json:"native,omitempty"`
}

func NewSInt32(v int32) Data    { return Data{Kind: KindSInt32, I32: v} }
func NewSInt64(v int64) Data    { return Data{Kind: KindSInt64, I64: v} }
func NewSFixed32(v int32) Data  { return Data{Kind: KindSFixed32, I32: v} }
func NewSFixed64(v int64) Data  { return Data{Kind: KindSFixed64, I64: v} }
func NewFloat(v float32) Data   { return Data{Kind: KindFloat, F32: v} }
func NewDouble(v float64) Data  { return Data{Kind: KindDouble, F64: v} }
func NewString(v string) Data   { return Data{Kind: KindString, Str: v} }
func NewBytes(v []byte) Data    { return Data{Kind: KindBytes, Raw: v} }
func NewSInt32Array(v []int32) Data    { return Data{Kind: KindSInt32Array, I32Arr: v} }
func NewSInt64Array(v []int64) Data    { return Data{Kind: KindSInt64Array, I64Arr: v} }
func NewFloatArray(v []float32) Data   { return Data{Kind: KindFloatArray, F32Arr: v} }
func NewDoubleArray(v []float64) Data  { return Data{Kind: KindDoubleArray, F64Arr: v} }
func NewStringArray(v []string) Data   { return Data{Kind: KindStringArray, StrArr: v} }
func NewBytesArray(v [][]byte) Data    { return Data{Kind: KindBytesArray, RawArr: v} }

// Value returns the Go-native value carried by d, boxed as interface{}.
func (d Data) Value() interface{} {
	switch d.Kind {
	case KindSInt32, KindSFixed32:
		return d.I32
	case KindSInt64, KindSFixed64:
		return d.I64
	case KindFloat:
		return d.F32
	case KindDouble:
		return d.F64
	case KindString:
		return d.Str
	case KindBytes:
		return d.Raw
	case KindSInt32Array:
		return d.I32Arr
	case KindSInt64Array:
		return d.I64Arr
	case KindFloatArray:
		return d.F32Arr
	case KindDoubleArray:
		return d.F64Arr
	case KindStringArray:
		return d.StrArr
	case KindBytesArray:
		return d.RawArr
	case KindNative:
		return d.Native
	default:
		return nil
	}
}
