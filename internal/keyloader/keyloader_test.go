package keyloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowdrip-network/roughtimed/internal/config"
	"github.com/slowdrip-network/roughtimed/internal/envelope"
	"github.com/slowdrip-network/roughtimed/internal/kms"
)

const testSeedHex = "a1a2a3a4a5a6a7a8a9aaabacadaeafb0b1b2b3b4b5b6b7b8b9babbbcbdbebf00"

func TestLoadPlaintext(t *testing.T) {
	cfg, err := config.LoadMemory(config.Config{
		Interface: "127.0.0.1",
		Port:      2002,
		SeedHex:   testSeedHex,
	})
	require.NoError(t, err)

	seed, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Seed, seed[:])
}

func TestLoadAwsKmsEnvelope(t *testing.T) {
	var master [32]byte
	for i := range master {
		master[i] = byte(i)
	}
	client := kms.NewLocalClient(master)
	kms.Register(kms.AwsKmsEnvelope, func(keyID string) (kms.Client, error) {
		return client, nil
	})

	var want [32]byte
	for i := range want {
		want[i] = byte(255 - i)
	}
	blob, err := envelope.Wrap(client, want)
	require.NoError(t, err)

	cfg := &config.Config{KmsMode: kms.AwsKmsEnvelope, KmsKeyID: "alias/test", Seed: blob}
	got, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
