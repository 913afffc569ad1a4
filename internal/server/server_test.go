package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowdrip-network/roughtimed/internal/cert"
	"github.com/slowdrip-network/roughtimed/internal/metrics"
	"github.com/slowdrip-network/roughtimed/internal/sign"
	"github.com/slowdrip-network/roughtimed/internal/wire"
)

func TestLoopRespondsToRequest(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	longTerm := sign.NewFromSeed(seed)
	certificate, err := cert.Build(longTerm)
	require.NoError(t, err)
	defer certificate.Ephemeral.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(zerolog.Nop(), reg)

	loop, err := New(zerolog.Nop(), "127.0.0.1:0", 1, 0, certificate, m)
	require.NoError(t, err)
	defer loop.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	client, err := net.DialUDP("udp", nil, loop.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	var nonce [64]byte
	for i := range nonce {
		nonce[i] = byte(i)
	}
	req, err := wire.EncodeRequest(nonce)
	require.NoError(t, err)

	_, err = client.Write(req)
	require.NoError(t, err)

	respBuf := make([]byte, 65536)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := client.Read(respBuf)
	require.NoError(t, err)

	msg, err := wire.Decode(respBuf[:n])
	require.NoError(t, err)

	certBytes, ok := msg.Get(wire.CERT)
	require.True(t, ok)
	assert.Equal(t, certificate.Bytes, certBytes)

	pathBytes, ok := msg.Get(wire.PATH)
	require.True(t, ok)
	assert.Empty(t, pathBytes)

	assert.EqualValues(t, 1, getCounterValue(m.RequestsTotal))
	assert.EqualValues(t, 1, getCounterValue(m.ResponsesTotal))
}

func getCounterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
