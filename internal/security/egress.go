// Package security guards outbound HTTP requests made by the service.
//
// The only outbound traffic is the optional remote reference bundle
// (REFERENCE_TABLES_URL). Outside local mode it is fetched through
// GuardedTransport, which refuses to connect to loopback, link-local
// (including the instance metadata endpoint) or private address ranges.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// dnsTimeout is the maximum time allowed for DNS resolution.
const dnsTimeout = 2 * time.Second

// DefaultMaxRedirects bounds redirects followed by a guarded client.
const DefaultMaxRedirects = 3

var (
	// ErrBlockedAddress is returned when a request targets a blocked IP range.
	ErrBlockedAddress = errors.New("egress: request to blocked address")

	// ErrDNSFailed is returned when a host cannot be resolved.
	ErrDNSFailed = errors.New("egress: DNS resolution failed")

	// ErrTooManyRedirects is returned when the redirect limit is exceeded.
	ErrTooManyRedirects = errors.New("egress: too many redirects")
)

// BlockedCIDRs lists the ranges a guarded client never connects to.
var BlockedCIDRs = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var blockedNets = mustParseCIDRs(BlockedCIDRs)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("egress: bad CIDR %q: %v", c, err))
		}
		out = append(out, n)
	}
	return out
}

// IsBlocked reports whether ip falls within any blocked range.
func IsBlocked(ip net.IP) bool {
	for _, n := range blockedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// GuardedTransport is an http.RoundTripper whose dialer validates every
// resolved address before connecting.
type GuardedTransport struct {
	base     *http.Transport
	resolver Resolver
	dialer   *net.Dialer
}

// NewGuardedTransport clones http.DefaultTransport and installs the guarded
// dialer. A nil resolver uses net.DefaultResolver.
func NewGuardedTransport(resolver Resolver) *GuardedTransport {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	t := &GuardedTransport{
		base:     http.DefaultTransport.(*http.Transport).Clone(),
		resolver: resolver,
		dialer:   &net.Dialer{Timeout: 10 * time.Second},
	}
	t.base.Proxy = nil
	t.base.DialContext = t.dialContext
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *GuardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req)
}

// dialContext resolves addr, rejects the dial if any resolved address is
// blocked, and connects to the first address otherwise. Checking every
// address defeats DNS answers that mix public and private records.
func (t *GuardedTransport) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("egress: invalid address %q: %w", addr, err)
	}

	ips, err := t.resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	return t.dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

func (t *GuardedTransport) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if IsBlocked(ip) {
			return nil, fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
		}
		return []net.IP{ip}, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := t.resolver.LookupIPAddr(dnsCtx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: host %q: %v", ErrDNSFailed, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: host %q resolved to no addresses", ErrDNSFailed, host)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if IsBlocked(a.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrBlockedAddress, a.IP, host)
		}
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// CheckRedirect returns an http.Client CheckRedirect hook that limits the
// redirect chain and validates each redirect target.
func (t *GuardedTransport) CheckRedirect(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrTooManyRedirects, maxRedirects)
		}
		host := req.URL.Hostname()
		if host == "" {
			return fmt.Errorf("%w: redirect URL has no host", ErrBlockedAddress)
		}
		_, err := t.resolve(req.Context(), host)
		return err
	}
}
