// Package wire implements the tagged-message container used by all
// Roughtime traffic: a self-describing map of 4-byte tags to byte
// values, ordered on the wire by each tag's little-endian numeric value.
package wire

import (
	"encoding/binary"
	"strconv"
)

// Tag is a 4-byte ASCII identifier used as a map key on the wire.
// Its numeric value (the bytes read little-endian) determines wire
// ordering.
type Tag uint32

// Tags used by the core protocol. Values are the little-endian
// interpretation of the ASCII bytes, matching the wire representation
// Roughtime clients expect.
const (
	SIG  Tag = 0x00474953
	NONC Tag = 0x434e4f4e
	DELE Tag = 0x454c4544
	PATH Tag = 0x48544150
	RADI Tag = 0x49444152
	PUBK Tag = 0x4b425550
	MIDP Tag = 0x5044494d
	SREP Tag = 0x50455253
	MINT Tag = 0x544e494d
	ROOT Tag = 0x544f4f52
	CERT Tag = 0x54524543
	MAXT Tag = 0x5458414d
	INDX Tag = 0x58444e49
	PAD  Tag = 0xff444150
)

// String renders the tag as its 4 ASCII bytes, for logging.
func (t Tag) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(t))
	s := strconv.Quote(string(b[:]))
	return s[1 : len(s)-1]
}
