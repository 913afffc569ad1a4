package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/slowdrip-network/roughtimed/internal/rterr"
)

// MaxTags bounds the number of fields the codec will ever attempt to
// decode, guarding against a hostile offset table driving an enormous
// allocation. The protocol itself never uses more than a handful.
const MaxTags = 128

// Field is one (Tag, value) pair of a Message.
type Field struct {
	Tag   Tag
	Value []byte
}

// Message is an ordered collection of distinct, ascending-by-tag fields.
type Message []Field

// Get returns the value for tag and whether it was present.
func (m Message) Get(t Tag) ([]byte, bool) {
	for _, f := range m {
		if f.Tag == t {
			return f.Value, true
		}
	}
	return nil, false
}

// Encode serialises fields into the tagged-message wire format:
//
//	N (u32 LE) | N-1 offsets (u32 LE) | N tags (u32 LE each) | values...
//
// fields must already be in strictly ascending tag order with distinct
// tags; every value except possibly the last must have a length that is
// a multiple of 4.
func Encode(fields []Field) ([]byte, error) {
	n := len(fields)
	if n == 0 || n > MaxTags {
		return nil, fmt.Errorf("%w: %d fields", rterr.ErrInvalidNumTags, n)
	}

	var last Tag
	var valueLen int
	for i, f := range fields {
		if i > 0 && f.Tag <= last {
			return nil, fmt.Errorf("%w: tag %v does not follow %v", rterr.ErrInvalidTagOrdering, f.Tag, last)
		}
		if i < n-1 && len(f.Value)%4 != 0 {
			return nil, fmt.Errorf("%w: field %v length %d not a multiple of 4", rterr.ErrInvalidOffsetValue, f.Tag, len(f.Value))
		}
		last = f.Tag
		if valueLen > math.MaxInt32-len(f.Value) {
			return nil, fmt.Errorf("%w: value region overflow", rterr.ErrOverflow)
		}
		valueLen += len(f.Value)
	}

	headerLen := 4 + (n-1)*4 + n*4
	out := make([]byte, headerLen+valueLen)

	binary.LittleEndian.PutUint32(out, uint32(n))

	offsets := out[4 : 4+(n-1)*4]
	tags := out[4+(n-1)*4 : headerLen]
	values := out[headerLen:]

	off := 0
	for i, f := range fields {
		binary.LittleEndian.PutUint32(tags[i*4:], uint32(f.Tag))
		if i > 0 {
			binary.LittleEndian.PutUint32(offsets[(i-1)*4:], uint32(off))
		}
		copy(values[off:], f.Value)
		off += len(f.Value)
	}

	return out, nil
}

// Decode parses the tagged-message wire format into a Message. It
// validates the invariants Encode enforces: strictly ascending distinct
// tags, offsets non-decreasing (two equal offsets encode an empty value),
// 4-byte aligned and within the value region, and every value but the
// last a multiple of 4 bytes long.
func Decode(b []byte) (Message, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: missing tag count", rterr.ErrMessageTooShort)
	}
	n := binary.LittleEndian.Uint32(b)
	if n == 0 || n > MaxTags {
		return nil, fmt.Errorf("%w: %d", rterr.ErrInvalidNumTags, n)
	}

	headerLen := 4 + (int(n)-1)*4 + int(n)*4
	if len(b) < headerLen {
		return nil, fmt.Errorf("%w: header truncated", rterr.ErrMessageTooShort)
	}

	offsetsRegion := b[4 : 4+(int(n)-1)*4]
	tagsRegion := b[4+(int(n)-1)*4 : headerLen]
	values := b[headerLen:]
	valueLen := len(values)

	offsets := make([]uint32, n-1)
	prev := uint32(0)
	for i := range offsets {
		o := binary.LittleEndian.Uint32(offsetsRegion[i*4:])
		if o < prev || o%4 != 0 || o > uint32(valueLen) {
			return nil, fmt.Errorf("%w: offset %d out of range", rterr.ErrInvalidOffsetValue, o)
		}
		offsets[i] = o
		prev = o
	}

	out := make(Message, n)
	var lastTag Tag
	for i := uint32(0); i < n; i++ {
		t := Tag(binary.LittleEndian.Uint32(tagsRegion[i*4:]))
		if i > 0 && t <= lastTag {
			return nil, fmt.Errorf("%w: tag %v does not follow %v", rterr.ErrInvalidTagOrdering, t, lastTag)
		}
		lastTag = t

		start := uint32(0)
		if i > 0 {
			start = offsets[i-1]
		}
		end := uint32(valueLen)
		if i < n-1 {
			end = offsets[i]
		}
		out[i] = Field{Tag: t, Value: values[start:end]}
	}

	return out, nil
}
