// Package kms defines the abstract contract roughtimed's envelope
// encryption uses to wrap and unwrap the server's long-term seed. The
// concrete providers (AWS KMS, GCP KMS, ...) are out of scope for this
// core: only the interface and a backend-selection registry live here,
// mirroring the original Rust implementation's `#[cfg(feature =
// "awskms")]`/`#[cfg(feature = "gcpkms")]` compile-time dispatch as a
// one-time, startup-time lookup instead (see SPEC_FULL.md §4.10).
package kms

import (
	"fmt"
	"strings"
)

// Client is the minimal KMS surface envelope encryption needs: wrap and
// unwrap a 32-byte data encryption key under a KMS-resident master key.
type Client interface {
	EncryptDEK(plaintext [32]byte) (ciphertext []byte, err error)
	DecryptDEK(ciphertext []byte) (plaintext [32]byte, err error)
}

// Protection identifies how the configured seed is protected at rest.
type Protection int

const (
	// Plaintext means Config.Seed is already the 32-byte key material.
	Plaintext Protection = iota
	// AwsKmsEnvelope means Config.Seed is an envelope blob whose DEK was
	// wrapped by the AWS KMS key identified by Config.KmsKeyID.
	AwsKmsEnvelope
	// GcpKmsEnvelope is the GCP KMS equivalent of AwsKmsEnvelope.
	GcpKmsEnvelope
)

func (p Protection) String() string {
	switch p {
	case Plaintext:
		return "plaintext"
	case AwsKmsEnvelope:
		return "aws-kms-envelope"
	case GcpKmsEnvelope:
		return "gcp-kms-envelope"
	default:
		return fmt.Sprintf("kms.Protection(%d)", int(p))
	}
}

// Factory constructs a Client for a given KMS key identifier. Providers
// register one at process init; none are registered by default because
// concrete provider SDKs are out of this core's scope.
type Factory func(keyID string) (Client, error)

var registry = map[Protection]Factory{}

// Register installs factory as the Client constructor for protection.
// Intended to be called from an init() in a provider-specific package,
// or from a test that wants to inject a mock.
func Register(protection Protection, factory Factory) {
	registry[protection] = factory
}

// ParseProtection parses the config schema's kms_protection value:
// "plaintext", or "<aws-kms-envelope|gcp-kms-envelope>:<key-id>". It
// returns the protection and the key id (empty for Plaintext).
func ParseProtection(s string) (Protection, string, error) {
	if s == "" || strings.EqualFold(s, "plaintext") {
		return Plaintext, "", nil
	}
	mode, keyID, ok := strings.Cut(s, ":")
	if !ok || keyID == "" {
		return 0, "", fmt.Errorf("kms: invalid kms_protection %q; expected \"plaintext\" or \"<mode>:<key-id>\"", s)
	}
	switch strings.ToLower(mode) {
	case "aws-kms-envelope":
		return AwsKmsEnvelope, keyID, nil
	case "gcp-kms-envelope":
		return GcpKmsEnvelope, keyID, nil
	default:
		return 0, "", fmt.Errorf("kms: unknown kms_protection mode %q", mode)
	}
}

// New builds a Client for protection/keyID using a registered Factory.
// Plaintext protection never needs a Client and New should not be called
// for it.
func New(protection Protection, keyID string) (Client, error) {
	factory, ok := registry[protection]
	if !ok {
		return nil, fmt.Errorf("kms: no client factory registered for %s; register one via kms.Register or supply a Config with Plaintext protection", protection)
	}
	return factory(keyID)
}
