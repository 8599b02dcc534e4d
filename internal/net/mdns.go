package net

import (
	"fmt"
	"net"
	"os"
	"sort"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
)

// ServiceType is the mDNS service name whiteboard servers announce.
const ServiceType = "_localboard._tcp"

// Service is a whiteboard server found on the LAN.
type Service struct {
	Instance string
	Host     string
	Addr     string
	Info     []string
}

// Advertise announces a server listening on port. An empty instance uses the
// hostname. Close the returned server to stop announcing.
func Advertise(instance string, port int) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, errors.Wrap(err, "could not get hostname")
		}
		instance = host
	}

	var ips []net.IP
	if ip, err := GetOutgoingIP(); err == nil {
		ips = append(ips, net.ParseIP(ip))
	}

	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"",
		"",
		port,
		ips,
		[]string{"WhiteboardServer"},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mDNS service")
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start mDNS server")
	}
	return server, nil
}

// Browse queries the LAN for timeout and returns the servers that answered,
// sorted by address.
func Browse(timeout time.Duration) ([]Service, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan []Service, 1)
	go func() {
		var all []*mdns.ServiceEntry
		for e := range entries {
			all = append(all, e)
		}
		found <- uniqueServices(all)
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entries)
	services := <-found
	if err != nil {
		return services, errors.Wrap(err, "mdns query")
	}
	return services, nil
}

func uniqueServices(entries []*mdns.ServiceEntry) []Service {
	seen := make(map[string]bool)
	var out []Service
	for _, e := range entries {
		if e == nil || e.AddrV4 == nil || e.Port == 0 {
			continue
		}
		addr := fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, Service{Instance: e.Name, Host: e.Host, Addr: addr, Info: e.InfoFields})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}
