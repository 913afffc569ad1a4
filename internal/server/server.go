// Package server runs roughtimed's UDP request loop: a single
// goroutine alternates between draining pending datagrams and flushing
// whatever has accumulated into one signed, Merkle-batched response
// round, the UDP half of the original implementation's mio-based
// polling loop (MESSAGE token) rendered with idiomatic Go
// select/SetReadDeadline instead of raw epoll, since nothing else in
// this codebase's lineage reaches for golang.org/x/sys/unix for network
// I/O (see SPEC_FULL.md §5). The loop has no status timer: periodic
// status logging runs in metrics.Collector.Run on its own goroutine.
package server

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/slowdrip-network/roughtimed/internal/cert"
	"github.com/slowdrip-network/roughtimed/internal/metrics"
	"github.com/slowdrip-network/roughtimed/internal/response"
	"github.com/slowdrip-network/roughtimed/internal/wire"
)

// drainDeadline bounds how long a single ReadFromUDP call blocks while
// draining the socket for a batch, so the loop can still notice ctx
// cancellation and flush a partially filled batch promptly.
const drainDeadline = 50 * time.Millisecond

// Loop owns the UDP socket and the per-batch response pipeline.
type Loop struct {
	log        zerolog.Logger
	conn       *net.UDPConn
	batchSize  int
	secondsOff int64

	certificate *cert.Certificate
	builder     *response.Builder
	metrics     *metrics.Collector

	// bench, when non-nil, receives one increment per response sent;
	// set only when the ROUGHTIMED_BENCH env var is present, mirroring
	// the original implementation's throughput-reporter thread.
	bench chan<- struct{}
}

// New binds a UDP socket on addr and returns a ready-to-run Loop.
func New(log zerolog.Logger, addr string, batchSize int, secondsOffset int64, certificate *cert.Certificate, m *metrics.Collector) (*Loop, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		log:         log.With().Str("module", "server").Logger(),
		conn:        conn,
		batchSize:   batchSize,
		secondsOff:  secondsOffset,
		certificate: certificate,
		builder:     response.NewBuilder(),
		metrics:     m,
	}
	if os.Getenv("ROUGHTIMED_BENCH") != "" {
		bench := make(chan struct{}, 4096)
		l.bench = bench
		go reportThroughput(log, bench)
	}
	return l, nil
}

// LocalAddr returns the bound socket address.
func (l *Loop) LocalAddr() net.Addr { return l.conn.LocalAddr() }

// Close releases the underlying socket.
func (l *Loop) Close() error { return l.conn.Close() }

type pending struct {
	addr  *net.UDPAddr
	nonce []byte
}

// Run drains incoming requests and flushes batches until ctx is
// cancelled. It never returns an error for expected shutdown; a
// non-nil error indicates the socket failed unexpectedly.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Str("addr", l.conn.LocalAddr().String()).Msg("server: listening")

	buf := make([]byte, 65536)
	var batch []pending

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("server: stopping")
			return nil
		default:
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(drainDeadline)); err != nil {
			return err
		}
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				if len(batch) > 0 {
					l.flush(batch)
					batch = batch[:0]
				}
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if l.metrics != nil {
			l.metrics.RequestsTotal.Inc()
		}

		nonce, verr := wire.ValidateRequest(buf[:n])
		if verr != nil {
			if l.metrics != nil {
				l.metrics.BadRequestsTotal.Inc()
			}
			l.log.Info().Err(verr).Str("peer", addr.String()).Msg("server: rejected request")
			continue
		}

		noncCopy := make([]byte, len(nonce))
		copy(noncCopy, nonce)
		l.builder.AddNonce(noncCopy)
		batch = append(batch, pending{addr: addr, nonce: noncCopy})

		if len(batch) >= l.batchSize {
			l.flush(batch)
			batch = batch[:0]
		}
	}
}

func (l *Loop) flush(batch []pending) {
	responses, err := l.builder.BuildBatch(l.certificate.Ephemeral, l.certificate, time.Now(), l.secondsOff)
	if err != nil {
		l.log.Error().Err(err).Msg("server: failed to build batch")
		return
	}
	if l.metrics != nil {
		l.metrics.BatchesTotal.Inc()
		l.metrics.BatchSize.Observe(float64(len(batch)))
	}

	for i, resp := range responses {
		if _, err := l.conn.WriteToUDP(resp, batch[i].addr); err != nil {
			l.log.Debug().Err(err).Str("peer", batch[i].addr.String()).Msg("server: write failed")
			continue
		}
		if l.metrics != nil {
			l.metrics.ResponsesTotal.Inc()
		}
		if l.bench != nil {
			select {
			case l.bench <- struct{}{}:
			default:
			}
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// reportThroughput logs responses-per-second while BENCH is set,
// recovered from the original implementation's optional throughput
// reporter thread.
func reportThroughput(log zerolog.Logger, bench <-chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	var count int64
	for {
		select {
		case <-bench:
			count++
		case <-t.C:
			log.Warn().Int64("responses_per_sec", count).Msg("server: bench")
			count = 0
		}
	}
}
