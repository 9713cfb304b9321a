package capture

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// UDPSource listens for datagrams. A datagram may hold several lines.
type UDPSource struct {
	addr        string
	readTimeout time.Duration

	mu    sync.Mutex
	local net.Addr
}

// NewUDPSource creates a UDP listener for addr
func NewUDPSource(addr string) *UDPSource {
	return &UDPSource{addr: addr, readTimeout: time.Second}
}

// Name implements Source
func (s *UDPSource) Name() string {
	return "udp://" + s.addr
}

// LocalAddr returns the bound address once the source is listening
func (s *UDPSource) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// Run implements Source
func (s *UDPSource) Run(stop <-chan struct{}, emit func([]byte) bool) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.local = conn.LocalAddr()
	s.mu.Unlock()
	log.Printf("Listening for UDP on %s", conn.LocalAddr())

	buffer := make([]byte, 65535)
	for {
		if stopped(stop) {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return err
		}

		n, _, err := conn.ReadFrom(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		var lines lineBuffer
		if !lines.feed(buffer[:n], emit) || !lines.flush(emit) {
			return nil
		}
	}
}
