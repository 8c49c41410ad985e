package redis

import (
	"fmt"
	"strconv"
)

// Arg is anything that can be framed as a request argument. Byte slices
// and strings are emitted verbatim; numbers are first converted to their
// UTF-8 decimal text form, and other types to their fmt.Sprint text.
type Arg = interface{}

// argBytes converts a single argument to its wire bytes.
func argBytes(a Arg) []byte {
	switch v := a.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	case int:
		return strconv.AppendInt(nil, int64(v), 10)
	case int64:
		return strconv.AppendInt(nil, v, 10)
	case uint64:
		return strconv.AppendUint(nil, v, 10)
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64)
	case bool:
		if v {
			return []byte("1")
		}
		return []byte("0")
	default:
		// Builtin numeric types not handled above (int32, float32, ...)
		// fall through to their decimal text form; fmt.Stringer
		// implementors to their String() text.
		return []byte(fmt.Sprint(v))
	}
}

// encodeRequest frames args as the RESP "array of bulk strings" unified
// request form. Each argument's length prefix is authoritative, so no
// escaping of embedded CRLF is needed or performed.
func encodeRequest(args []Arg) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')

	for _, a := range args {
		b := argBytes(a)
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(b)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, b...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}
