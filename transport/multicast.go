// Package transport owns the engine's UDP multicast sockets: the ingress
// receiver on the order group and the egress broadcaster on the result and
// status groups.
package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// listen joins the multicast group in addr and returns the wrapped
// connection ready for ReadFrom.
func listen(addr string) (*ipv4.PacketConn, error) {
	group, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve multicast group %q: %w", addr, err)
	}
	c, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", group.Port))
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", group.Port, err)
	}
	p := ipv4.NewPacketConn(c)
	if group.IP.IsMulticast() {
		if err := p.JoinGroup(nil, &net.UDPAddr{IP: group.IP}); err != nil {
			c.Close()
			return nil, fmt.Errorf("join multicast group %s: %w", group.IP, err)
		}
	}
	return p, nil
}

// Sender is a fire-and-forget datagram writer bound to one multicast
// destination.
type Sender struct {
	conn *ipv4.PacketConn
	dst  *net.UDPAddr
}

func NewSender(addr string) (*Sender, error) {
	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve multicast destination %q: %w", addr, err)
	}
	c, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open udp sender: %w", err)
	}
	p := ipv4.NewPacketConn(c)
	if dst.IP.IsMulticast() {
		_ = p.SetMulticastTTL(1)
		_ = p.SetMulticastLoopback(true)
	}
	return &Sender{conn: p, dst: dst}, nil
}

func (s *Sender) Send(frame []byte) error {
	_, err := s.conn.WriteTo(frame, nil, s.dst)
	return err
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
