package net

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// GetOutgoingIP finds the preferred local IP address to share with clients.
func GetOutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route out; fall back to the interface list.
		return getLocalIPFallback()
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

func getLocalIPFallback() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", errors.Wrap(err, "list interfaces")
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	return "127.0.0.1", nil
}

// ShareAddr returns host:port for a listener address, replacing an
// unspecified host with the outgoing IP.
func ShareAddr(listenAddr net.Addr) string {
	tcp, ok := listenAddr.(*net.TCPAddr)
	if !ok {
		return listenAddr.String()
	}
	host := tcp.IP.String()
	if tcp.IP == nil || tcp.IP.IsUnspecified() {
		if ip, err := GetOutgoingIP(); err == nil {
			host = ip
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}
