package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/slowdrip-network/roughtimed/internal/rterr"
)

// MinRequestLength is the anti-amplification floor: a datagram shorter
// than this is rejected outright so that a forged response can never be
// larger than the request that solicited it.
const MinRequestLength = 1024

// NonceLength is the fixed size of a client-chosen nonce.
const NonceLength = 64

const (
	nonceOffset = 0x10
	nonceEnd    = nonceOffset + NonceLength // 0x50
)

// ValidateRequest checks buf against the fixed request framing used by
// every Roughtime client: exactly two tags, NONC then PAD, with the
// overall datagram padded out to MinRequestLength. It returns the raw
// 64-byte nonce on success.
//
// This intentionally duplicates the generic Decode path with direct
// offset checks: the request shape is fixed and known in advance, so a
// server handling many requests per second skips the general-purpose
// tag table walk.
func ValidateRequest(buf []byte) ([]byte, error) {
	if len(buf) < MinRequestLength {
		return nil, fmt.Errorf("%w: %d bytes", rterr.ErrRequestTooShort, len(buf))
	}

	numTags := binary.LittleEndian.Uint32(buf[0:4])
	if numTags != 2 {
		return nil, fmt.Errorf("%w: tag count %d", rterr.ErrInvalidRequest, numTags)
	}

	firstTag := Tag(binary.LittleEndian.Uint32(buf[8:12]))
	secondTag := Tag(binary.LittleEndian.Uint32(buf[12:16]))
	if firstTag != NONC || secondTag != PAD {
		return nil, fmt.Errorf("%w: tags %v/%v", rterr.ErrInvalidRequest, firstTag, secondTag)
	}

	return buf[nonceOffset:nonceEnd], nil
}

// EncodeRequest builds a client request: NONC followed by a PAD field
// that brings the datagram up to MinRequestLength. Used by tests that
// exercise the server end to end.
func EncodeRequest(nonce [NonceLength]byte) ([]byte, error) {
	const headerLen = 4 + 4 + 8 // N, one offset, two tags
	padLen := MinRequestLength - headerLen - NonceLength
	return Encode([]Field{
		{Tag: NONC, Value: nonce[:]},
		{Tag: PAD, Value: make([]byte, padLen)},
	})
}
