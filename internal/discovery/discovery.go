// Package discovery finds file-sharing servers announced over mDNS on the
// local network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceName is the DNS-SD service type servers register under.
const ServiceName = "_snett._tcp"

// Domain is the mDNS browse domain.
const Domain = "local."

// DefaultTimeout bounds one browse.
const DefaultTimeout = 5 * time.Second

// Server is one announced server.
type Server struct {
	Name string
	Host string
	Port int
	Addr net.IP
}

// URL returns the HTTP base URL of the server.
func (s Server) URL() string {
	host := s.Host
	if s.Addr != nil {
		host = s.Addr.String()
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// Resolver browses a DNS-SD service. *zeroconf.Resolver implements it.
type Resolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// NewResolver returns a resolver on all multicast interfaces.
func NewResolver() (Resolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mdns resolver: %w", err)
	}
	return r, nil
}

// Browse collects servers until timeout or ctx is done. Repeated
// announcements of the same instance are merged. Results are sorted by name.
func Browse(ctx context.Context, r Resolver, timeout time.Duration) ([]Server, error) {
	if r == nil {
		return nil, errors.New("nil resolver")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := r.Browse(ctx, ServiceName, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", ServiceName, err)
	}

	found := make(map[string]Server)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return sorted(found), nil
			}
			if s, ok := fromEntry(entry); ok {
				found[s.Name] = s
			}
		case <-ctx.Done():
			return sorted(found), nil
		}
	}
}

func fromEntry(e *zeroconf.ServiceEntry) (Server, bool) {
	if e == nil || e.Port <= 0 {
		return Server{}, false
	}
	s := Server{
		Name: e.Instance,
		Host: strings.TrimSuffix(e.HostName, "."),
		Port: e.Port,
	}
	switch {
	case len(e.AddrIPv4) > 0:
		s.Addr = e.AddrIPv4[0]
	case len(e.AddrIPv6) > 0:
		s.Addr = e.AddrIPv6[0]
	}
	if s.Addr == nil && s.Host == "" {
		return Server{}, false
	}
	if s.Name == "" {
		s.Name = s.Host
	}
	return s, true
}

func sorted(found map[string]Server) []Server {
	out := make([]Server, 0, len(found))
	for _, s := range found {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
