// Package envelope implements envelope encryption of the server's
// 32-byte long-term seed: a fresh data-encryption key (DEK) encrypts the
// seed locally with AES-256-GCM, and the DEK itself is wrapped by a
// KMS-resident master key via kms.Client. The on-disk/config format is
// len(dek_ct) || dek_ct || nonce || aead_ct || tag.
//
// Grounded on the stdlib AES-256-GCM envelope pattern used elsewhere for
// KMS-wrapped field encryption (GenerateDataKey -> local AES-GCM
// encrypt), adapted here to wrap a fixed-size seed instead of arbitrary
// event fields.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/slowdrip-network/roughtimed/internal/kms"
	"github.com/slowdrip-network/roughtimed/internal/rterr"
)

const nonceSize = 12

// Wrap produces an EnvelopeBlob for seed using a freshly generated DEK
// wrapped by client.
func Wrap(client kms.Client, seed [32]byte) ([]byte, error) {
	var dek [32]byte
	if _, err := cryptorand.Read(dek[:]); err != nil {
		return nil, fmt.Errorf("%w: generate dek: %v", rterr.ErrOperationFailed, err)
	}

	block, err := aes.NewCipher(dek[:])
	if err != nil {
		return nil, fmt.Errorf("%w: aes cipher: %v", rterr.ErrOperationFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: gcm: %v", rterr.ErrOperationFailed, err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := cryptorand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: generate nonce: %v", rterr.ErrOperationFailed, err)
	}

	ctAndTag := gcm.Seal(nil, nonce, seed[:], nil)

	dekCt, err := client.EncryptDEK(dek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrKms, err)
	}
	if len(dekCt) > 0xFFFF {
		return nil, fmt.Errorf("%w: wrapped dek too large", rterr.ErrOperationFailed)
	}

	out := make([]byte, 0, 2+len(dekCt)+nonceSize+len(ctAndTag))
	var lenPrefix [2]byte
	binary.LittleEndian.PutUint16(lenPrefix[:], uint16(len(dekCt)))
	out = append(out, lenPrefix[:]...)
	out = append(out, dekCt...)
	out = append(out, nonce...)
	out = append(out, ctAndTag...)
	return out, nil
}

// Unwrap reverses Wrap, recovering the plaintext seed. It fails closed
// on any AEAD authentication mismatch.
func Unwrap(client kms.Client, blob []byte) ([32]byte, error) {
	var seed [32]byte
	if len(blob) < 2 {
		return seed, fmt.Errorf("%w: blob too short", rterr.ErrInvalidData)
	}
	dekCtLen := int(binary.LittleEndian.Uint16(blob))
	rest := blob[2:]
	if len(rest) < dekCtLen+nonceSize {
		return seed, fmt.Errorf("%w: blob too short for dek/nonce", rterr.ErrInvalidData)
	}

	dekCt := rest[:dekCtLen]
	nonce := rest[dekCtLen : dekCtLen+nonceSize]
	ctAndTag := rest[dekCtLen+nonceSize:]

	dek, err := client.DecryptDEK(dekCt)
	if err != nil {
		return seed, fmt.Errorf("%w: %v", rterr.ErrKms, err)
	}

	block, err := aes.NewCipher(dek[:])
	if err != nil {
		return seed, fmt.Errorf("%w: aes cipher: %v", rterr.ErrOperationFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return seed, fmt.Errorf("%w: gcm: %v", rterr.ErrOperationFailed, err)
	}

	pt, err := gcm.Open(nil, nonce, ctAndTag, nil)
	if err != nil {
		return seed, fmt.Errorf("%w: auth tag mismatch: %v", rterr.ErrInvalidData, err)
	}
	if len(pt) != 32 {
		return seed, fmt.Errorf("%w: unwrapped seed has length %d", rterr.ErrInvalidData, len(pt))
	}
	copy(seed[:], pt)
	return seed, nil
}
