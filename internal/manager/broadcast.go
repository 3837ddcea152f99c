package manager

import (
	"fmt"
	"net"

	"github.com/nerrad567/lumen-core/internal/protocol"
)

// systemBroadcasts enumerates the IPv4 broadcast address of every
// usable non-loopback interface, targeting the well-known device port.
func systemBroadcasts() ([]*net.UDPAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	var out []*net.UDPAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil {
				continue
			}
			out = append(out, &net.UDPAddr{
				IP:   broadcastOf(ip, ipnet.Mask),
				Port: protocol.Port,
			})
		}
	}
	return out, nil
}

// broadcastOf computes the directed broadcast address of an IPv4 subnet.
func broadcastOf(ip net.IP, mask net.IPMask) net.IP {
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	out := make(net.IP, len(ip))
	for i := range ip {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}
