package kms

import (
	"crypto/aes"
	"crypto/cipher"
	cryptorand "crypto/rand"
	"fmt"
)

// LocalClient is an in-process Client that wraps DEKs under a fixed
// AES-256-GCM master key. It exists for tests and for the
// roughtimed-seal CLI's local/offline mode; it is not a substitute for a
// real KMS in production, which is explicitly out of scope for this
// core (see SPEC_FULL.md §6.2). Adapted from the dev/embedded-mode
// LocalProvider pattern used elsewhere in the wider codebase for
// adapting an in-process primitive into a KMSProvider-shaped interface.
type LocalClient struct {
	master [32]byte
}

// NewLocalClient returns a LocalClient using masterKey to wrap DEKs.
func NewLocalClient(masterKey [32]byte) *LocalClient {
	return &LocalClient{master: masterKey}
}

// EncryptDEK wraps plaintext as nonce||ciphertext||tag under the master
// key.
func (l *LocalClient) EncryptDEK(plaintext [32]byte) ([]byte, error) {
	block, err := aes.NewCipher(l.master[:])
	if err != nil {
		return nil, fmt.Errorf("kms: local client cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("kms: local client gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := cryptorand.Read(nonce); err != nil {
		return nil, fmt.Errorf("kms: local client nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext[:], nil), nil
}

// DecryptDEK reverses EncryptDEK.
func (l *LocalClient) DecryptDEK(ciphertext []byte) ([32]byte, error) {
	var out [32]byte
	block, err := aes.NewCipher(l.master[:])
	if err != nil {
		return out, fmt.Errorf("kms: local client cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return out, fmt.Errorf("kms: local client gcm: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return out, fmt.Errorf("kms: local client ciphertext too short")
	}
	nonce, ct := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return out, fmt.Errorf("kms: local client decrypt: %w", err)
	}
	if len(pt) != 32 {
		return out, fmt.Errorf("kms: local client unexpected DEK length %d", len(pt))
	}
	copy(out[:], pt)
	return out, nil
}
