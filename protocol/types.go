package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// FrameType represents the type of a RESP frame
type FrameType byte

const (
	// RESP frame types, keyed by their wire prefix
	TypeSimpleString FrameType = '+'
	TypeError        FrameType = '-'
	TypeInteger      FrameType = ':'
	TypeBulkString   FrameType = '$'
	TypeArray        FrameType = '*'

	// TypeNull is the null bulk string ($-1). It has no prefix of its own.
	TypeNull FrameType = 'N'
)

// String returns a readable name for the frame type
func (t FrameType) String() string {
	switch t {
	case TypeSimpleString:
		return "simple"
	case TypeError:
		return "error"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(%c)", byte(t))
	}
}

// Frame represents one RESP value on the wire.
//
// Only the field matching Type is meaningful: Data for simple strings,
// errors and bulk strings, Integer for integers and Array for arrays.
// Frames are built fresh per decode or per reply and never mutated.
type Frame struct {
	Type    FrameType
	Data    []byte
	Integer uint64
	Array   []Frame
}

// Simple builds a simple string frame
func Simple(s string) Frame {
	return Frame{Type: TypeSimpleString, Data: []byte(s)}
}

// Err builds an error frame
func Err(msg string) Frame {
	return Frame{Type: TypeError, Data: []byte(msg)}
}

// Integer builds an integer frame
func Integer(n uint64) Frame {
	return Frame{Type: TypeInteger, Integer: n}
}

// Bulk builds a bulk string frame. A nil slice is encoded as an empty
// bulk string, not as Null.
func Bulk(b []byte) Frame {
	if b == nil {
		b = []byte{}
	}
	return Frame{Type: TypeBulkString, Data: b}
}

// BulkString builds a bulk string frame from a string
func BulkString(s string) Frame {
	return Bulk([]byte(s))
}

// Null builds the null bulk string frame
func Null() Frame {
	return Frame{Type: TypeNull}
}

// Array builds an array frame
func Array(items ...Frame) Frame {
	if items == nil {
		items = []Frame{}
	}
	return Frame{Type: TypeArray, Array: items}
}

// Command builds the array-of-bulk-strings frame a client sends
func Command(name string, args ...string) Frame {
	items := make([]Frame, 0, len(args)+1)
	items = append(items, BulkString(name))
	for _, arg := range args {
		items = append(items, BulkString(arg))
	}
	return Array(items...)
}

// IsError returns true if this is an error frame
func (f Frame) IsError() bool {
	return f.Type == TypeError
}

// IsNull returns true if this is the null bulk string
func (f Frame) IsNull() bool {
	return f.Type == TypeNull
}

// Text returns the payload of a simple string, error or bulk string
func (f Frame) Text() string {
	return string(f.Data)
}

// Equal reports whether two frames carry the same type and payload
func (f Frame) Equal(other Frame) bool {
	if f.Type != other.Type {
		return false
	}

	switch f.Type {
	case TypeSimpleString, TypeError, TypeBulkString:
		return bytes.Equal(f.Data, other.Data)
	case TypeInteger:
		return f.Integer == other.Integer
	case TypeArray:
		if len(f.Array) != len(other.Array) {
			return false
		}
		for i := range f.Array {
			if !f.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String returns a string representation of the frame
func (f Frame) String() string {
	switch f.Type {
	case TypeSimpleString, TypeError, TypeBulkString:
		return string(f.Data)
	case TypeInteger:
		return strconv.FormatUint(f.Integer, 10)
	case TypeNull:
		return "(nil)"
	case TypeArray:
		parts := make([]string, len(f.Array))
		for i, item := range f.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("unknown type %c", byte(f.Type))
	}
}
