package actor

import "github.com/JeffersonLab/dift-sub001/internal/wire"

// MIME data-type tags recognized in Meta.Datatype for auto-serialized
// scalars and arrays (spec.md §6). ControlTopic carries liveness and
// subscription-propagation traffic between drivers and the Proxy.
const (
	MimeSInt32   = "binary/sint32"
	MimeSInt64   = "binary/sint64"
	MimeSFixed32 = "binary/sfixed32"
	MimeSFixed64 = "binary/sfixed64"
	MimeFloat    = "binary/float"
	MimeDouble   = "binary/double"
	MimeString   = "text/string"
	MimeBytes    = "binary/bytes"
	MimeNative   = "binary/native"

	MimeSInt32Array = "binary/array-sint32"
	MimeSInt64Array = "binary/array-sint64"
	MimeFloatArray  = "binary/array-float"
	MimeDoubleArray = "binary/array-double"
	MimeStringArray = "binary/array-string"
	MimeBytesArray  = "binary/array-bytes"

	MimeJava   = "binary/java"
	MimeCpp    = "binary/cpp"
	MimePython = "binary/python"
)

// ControlTopic is the reserved topic the Proxy's control responder and
// subscription-propagation traffic ride on.
const ControlTopic = wire.ControlTopic

const (
	ControlCommandPub   = wire.ControlCommandPub
	ControlCommandSub   = wire.ControlCommandSub
	ControlCommandUnsub = wire.ControlCommandUnsub
	ControlCommandRep   = wire.ControlCommandRep
)

// mimeForValue infers the MIME tag and wire.Data for a Go value of a
// recognized scalar or array kind (spec.md §4.2's make_message).
func mimeForValue(v interface{}) (string, wire.Data, error) {
	switch val := v.(type) {
	case int32:
		return MimeSInt32, wire.NewSInt32(val), nil
	case int64:
		return MimeSInt64, wire.NewSInt64(val), nil
	case float32:
		return MimeFloat, wire.NewFloat(val), nil
	case float64:
		return MimeDouble, wire.NewDouble(val), nil
	case string:
		return MimeString, wire.NewString(val), nil
	case []byte:
		return MimeBytes, wire.NewBytes(val), nil
	case []int32:
		return MimeSInt32Array, wire.NewSInt32Array(val), nil
	case []int64:
		return MimeSInt64Array, wire.NewSInt64Array(val), nil
	case []float32:
		return MimeFloatArray, wire.NewFloatArray(val), nil
	case []float64:
		return MimeDoubleArray, wire.NewDoubleArray(val), nil
	case []string:
		return MimeStringArray, wire.NewStringArray(val), nil
	case [][]byte:
		return MimeBytesArray, wire.NewBytesArray(val), nil
	default:
		return "", wire.Data{}, newError(InvalidArgument, "make_message", errInvalidf("unsupported value type %T", v))
	}
}
