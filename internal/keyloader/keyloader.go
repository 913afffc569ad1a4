// Package keyloader resolves the server's 32-byte long-term Ed25519
// seed from a loaded Config, either directly (plaintext) or by
// unwrapping a KMS-protected envelope blob (see SPEC_FULL.md §4.5).
package keyloader

import (
	"fmt"

	"github.com/slowdrip-network/roughtimed/internal/config"
	"github.com/slowdrip-network/roughtimed/internal/envelope"
	"github.com/slowdrip-network/roughtimed/internal/kms"
	"github.com/slowdrip-network/roughtimed/internal/rterr"
)

// Load resolves cfg's seed material into the 32-byte long-term key. For
// cfg.KmsMode == kms.Plaintext, cfg.Seed is used directly and must
// already be 32 bytes (finalize enforces this at config load time). For
// the envelope modes, a Client is built via kms.New(cfg.KmsMode,
// cfg.KmsKeyID) and used to unwrap cfg.Seed as an envelope blob.
func Load(cfg *config.Config) ([32]byte, error) {
	var seed [32]byte

	if cfg.KmsMode == kms.Plaintext {
		if len(cfg.Seed) != 32 {
			return seed, fmt.Errorf("%w: plaintext seed must be 32 bytes, got %d", rterr.ErrInvalidSeedLength, len(cfg.Seed))
		}
		copy(seed[:], cfg.Seed)
		return seed, nil
	}

	client, err := kms.New(cfg.KmsMode, cfg.KmsKeyID)
	if err != nil {
		return seed, fmt.Errorf("%w: %v", rterr.ErrKms, err)
	}
	return envelope.Unwrap(client, cfg.Seed)
}
