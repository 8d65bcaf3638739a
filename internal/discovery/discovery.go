// Package discovery advertises and finds admin backends on the local
// network over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/oxyadmin/oxyadmin/internal/debug"
)

// ServiceType is the mDNS service backends register under.
const ServiceType = "_oxyadmin._tcp"

// DefaultTimeout bounds a Lookup when the caller gives none.
const DefaultTimeout = 2 * time.Second

// Backend is one advertised backend.
type Backend struct {
	Name string
	URL  string
}

// Advertise announces a backend reachable at url on port. Shut the
// returned server down to withdraw it.
func Advertise(name string, port int, url string) (*mdns.Server, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port for mDNS advertisement: %d", port)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "oxyadmin"
	}
	txt := []string{
		"name=" + name,
		"url=" + url,
	}
	service, err := mdns.NewMDNSService(name, ServiceType, "local", "", port, nil, txt)
	if err != nil {
		return nil, err
	}
	debug.LogKV("discovery", "advertising", "name", name, "port", port, "url", url)
	return mdns.NewServer(&mdns.Config{Zone: service})
}

// Lookup browses for backends until timeout elapses or ctx ends.
func Lookup(ctx context.Context, timeout time.Duration) ([]Backend, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	done := make(chan error, 1)
	go func() {
		done <- mdns.QueryContext(ctx, params)
		close(entries)
	}()

	var found []Backend
	seen := map[string]bool{}
	for entry := range entries {
		b, ok := fromEntry(entry.Name, entry.InfoFields, entry.AddrV4, entry.Port)
		if !ok || seen[b.URL] {
			continue
		}
		seen[b.URL] = true
		found = append(found, b)
	}
	if err := <-done; err != nil && ctx.Err() == nil {
		return found, fmt.Errorf("mDNS lookup: %w", err)
	}
	debug.LogKV("discovery", "lookup finished", "found", len(found))
	return found, nil
}

// fromEntry builds a Backend from a service record, preferring the url
// TXT field over the advertised address.
func fromEntry(instance string, info []string, addr net.IP, port int) (Backend, bool) {
	b := Backend{Name: strings.TrimSuffix(instance, "."+ServiceType+".local.")}
	for _, field := range info {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch k {
		case "name":
			b.Name = v
		case "url":
			b.URL = v
		}
	}
	if b.URL == "" && addr != nil && port > 0 {
		b.URL = "http://" + net.JoinHostPort(addr.String(), strconv.Itoa(port))
	}
	return b, b.URL != ""
}
