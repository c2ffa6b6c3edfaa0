package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	DefaultPrimaryPort  = 3050
	DefaultFallbackPort = 3150
	DefaultProbeTimeout = 5 * time.Second
)

// ErrUnreachable means neither the primary nor its fallback answered the probe.
var ErrUnreachable = errors.New("no reachable endpoint")

type (
	// Endpoint is an RPC URL and the outcome of its probe.
	Endpoint struct {
		URL     string
		Healthy bool
	}

	// ProbeFunc performs one reachability check against url.
	ProbeFunc func(ctx context.Context, url string) error

	// Prober selects the active L2 endpoint once per run.
	Prober struct {
		ports   [2]int
		timeout time.Duration
		probe   ProbeFunc
		logger  *slog.Logger
	}
)

// NewProber returns a prober toggling between the two canonical ports.
func NewProber(primaryPort, fallbackPort int, timeout time.Duration) *Prober {
	p := &Prober{
		ports:   [2]int{primaryPort, fallbackPort},
		timeout: timeout,
		logger:  logger.Named("endpoint_prober"),
	}
	p.probe = p.chainID
	return p
}

// WithProbe replaces the network identity call; used by tests.
func (p *Prober) WithProbe(probe ProbeFunc) *Prober {
	p.probe = probe
	return p
}

// Select probes primary and, if it fails, the fallback derived from it. It never probes more than two URLs.
func (p *Prober) Select(ctx context.Context, primary string) (Endpoint, error) {
	p.logger.With("url", primary).Info("probing primary RPC")

	primaryErr := p.probe(ctx, primary)
	if primaryErr == nil {
		p.logger.With("url", primary).Info("primary RPC reachable")
		return Endpoint{URL: primary, Healthy: true}, nil
	}

	fallback, err := p.Fallback(primary)
	if err != nil {
		return Endpoint{URL: primary}, fmt.Errorf("%w: tried %s (%v); no fallback: %v", ErrUnreachable, primary, primaryErr, err)
	}

	p.logger.
		With("url", primary).
		With("fallback", fallback).
		With("err", primaryErr).
		Warn("primary RPC unreachable, trying fallback")

	fallbackErr := p.probe(ctx, fallback)
	if fallbackErr == nil {
		p.logger.With("url", fallback).Info("fallback RPC reachable")
		return Endpoint{URL: fallback, Healthy: true}, nil
	}

	return Endpoint{URL: primary}, fmt.Errorf("%w: tried %s (%v), %s (%v)", ErrUnreachable, primary, primaryErr, fallback, fallbackErr)
}

// Fallback toggles the port of rawURL between the two canonical ports.
func (p *Prober) Fallback(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL %q: %w", rawURL, err)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return "", fmt.Errorf("endpoint %s has no numeric port", rawURL)
	}

	var other int
	switch port {
	case p.ports[0]:
		other = p.ports[1]
	case p.ports[1]:
		other = p.ports[0]
	default:
		return "", fmt.Errorf("port %d is neither %d nor %d", port, p.ports[0], p.ports[1])
	}

	u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(other))
	return u.String(), nil
}

// chainID asks rawURL for eth_chainId through a one-shot HTTP client: no reconnects, no batching.
func (p *Prober) chainID(ctx context.Context, rawURL string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpClient := &http.Client{Timeout: p.timeout}
	client, err := rpc.DialOptions(ctx, rawURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", rawURL, err)
	}
	defer client.Close()

	var id hexutil.Big
	if err := client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return fmt.Errorf("eth_chainId on %s failed: %w", rawURL, err)
	}

	p.logger.With("url", rawURL).With("chain_id", id.ToInt()).Debug("probe answered")

	return nil
}
