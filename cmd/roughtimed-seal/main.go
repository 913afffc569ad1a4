// cmd/roughtimed-seal/main.go
//
// roughtimed-seal wraps a plaintext 32-byte seed into an envelope blob
// suitable for a config's seed field under a non-plaintext
// kms_protection mode, the Go counterpart of the original
// implementation's roughenough-kms CLI. Concrete cloud KMS backends are
// out of scope for this core (see SPEC_FULL.md §6.2), so this tool only
// drives the abstract kms.Client contract; wiring a real provider means
// registering a kms.Factory for its Protection value before main runs.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/slowdrip-network/roughtimed/internal/envelope"
	"github.com/slowdrip-network/roughtimed/internal/kms"
)

func main() {
	var (
		seedHex    = flag.String("seed", "", "hex-encoded 32-byte seed to seal")
		protection = flag.String("protection", "", "kms_protection mode (e.g. aws-kms-envelope:alias/roughtimed)")
		localMode  = flag.Bool("local", false, "use an in-process local master key instead of a registered KMS provider (testing only)")
		masterHex  = flag.String("local-master-key", "", "hex-encoded 32-byte master key for -local mode")
	)
	flag.Parse()

	seed, err := decodeSeed(*seedHex)
	if err != nil {
		fail(err)
	}

	var client kms.Client
	protectionStr := *protection
	if *localMode {
		master, err := decodeSeed(*masterHex)
		if err != nil {
			fail(fmt.Errorf("local-master-key: %w", err))
		}
		client = kms.NewLocalClient(master)
		protectionStr = "local"
	} else {
		p, id, err := kms.ParseProtection(*protection)
		if err != nil {
			fail(err)
		}
		client, err = kms.New(p, id)
		if err != nil {
			fail(err)
		}
	}

	blob, err := envelope.Wrap(client, seed)
	if err != nil {
		fail(fmt.Errorf("seal: %w", err))
	}

	fmt.Printf("kms_protection: %q\nseed: %s\n", protectionStr, hex.EncodeToString(blob))
}

func decodeSeed(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "roughtimed-seal:", err)
	os.Exit(1)
}
