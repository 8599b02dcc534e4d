package net

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOutgoingIP(t *testing.T) {
	ip, err := GetOutgoingIP()
	require.NoError(t, err)
	assert.NotNil(t, net.ParseIP(ip), ip)
}

func TestShareAddrKeepsSpecificHost(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(10, 1, 2, 3), Port: 4444}
	assert.Equal(t, "10.1.2.3:4444", ShareAddr(addr))

	host, port, err := net.SplitHostPort(ShareAddr(&net.TCPAddr{Port: 4444}))
	require.NoError(t, err)
	assert.Equal(t, "4444", port)
	assert.NotNil(t, net.ParseIP(host))
}

func TestUniqueServices(t *testing.T) {
	entries := []*mdns.ServiceEntry{
		{Name: "b", Host: "b.local.", AddrV4: net.IPv4(192, 168, 1, 9), Port: 4444},
		{Name: "a", Host: "a.local.", AddrV4: net.IPv4(192, 168, 1, 2), Port: 4444, InfoFields: []string{"WhiteboardServer"}},
		{Name: "b-again", AddrV4: net.IPv4(192, 168, 1, 9), Port: 4444},
		{Name: "no-addr", Port: 4444},
		{Name: "no-port", AddrV4: net.IPv4(192, 168, 1, 5)},
		nil,
	}

	got := uniqueServices(entries)
	assert.Equal(t, []Service{
		{Instance: "a", Host: "a.local.", Addr: "192.168.1.2:4444", Info: []string{"WhiteboardServer"}},
		{Instance: "b", Host: "b.local.", Addr: "192.168.1.9:4444"},
	}, got)
}
