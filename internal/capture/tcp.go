package capture

import (
	"errors"
	"log"
	"net"
	"time"
)

// TCPSource connects to a TCP feed and reconnects when it drops
type TCPSource struct {
	addr           string
	reconnectDelay time.Duration
	idleTimeout    time.Duration
	readTimeout    time.Duration
}

// NewTCPSource creates a reconnecting TCP client for addr
func NewTCPSource(addr string) *TCPSource {
	return &TCPSource{
		addr:           addr,
		reconnectDelay: 5 * time.Second,
		idleTimeout:    60 * time.Second,
		readTimeout:    2 * time.Second,
	}
}

// Name implements Source
func (s *TCPSource) Name() string {
	return "tcp://" + s.addr
}

// Run implements Source
func (s *TCPSource) Run(stop <-chan struct{}, emit func([]byte) bool) error {
	connected := false
	var disconnectTime time.Time
	log.Printf("Attempting to connect to %s...", s.addr)

	for !stopped(stop) {
		conn, err := net.DialTimeout("tcp", s.addr, s.reconnectDelay)
		if err != nil {
			connected, disconnectTime = s.handleConnectionError(connected, disconnectTime)
			if !sleep(stop, s.reconnectDelay) {
				return nil
			}
			continue
		}

		s.configureTCPKeepalive(conn)
		connected, disconnectTime = s.handleSuccessfulConnection(connected, disconnectTime)

		if !s.handleConnection(stop, conn, emit) {
			return nil
		}

		// The connection was closed by the peer or went idle
		if connected {
			disconnectTime = time.Now()
			connected = false
		}
	}
	return nil
}

// handleConnectionError records when the feed was lost
func (s *TCPSource) handleConnectionError(connected bool, disconnectTime time.Time) (bool, time.Time) {
	if connected || disconnectTime.IsZero() {
		if disconnectTime.IsZero() {
			disconnectTime = time.Now()
		}
		connected = false
	}
	return connected, disconnectTime
}

// configureTCPKeepalive configures TCP keepalive settings
func (s *TCPSource) configureTCPKeepalive(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			log.Printf("Warning: failed to set keepalive for %s: %v", s.addr, err)
		}
		if err := tcpConn.SetKeepAlivePeriod(10 * time.Second); err != nil {
			log.Printf("Warning: failed to set keepalive period for %s: %v", s.addr, err)
		}
	}
}

// handleSuccessfulConnection logs how long the feed was down
func (s *TCPSource) handleSuccessfulConnection(connected bool, disconnectTime time.Time) (bool, time.Time) {
	if connected {
		return connected, disconnectTime
	}
	if !disconnectTime.IsZero() {
		duration := time.Since(disconnectTime)
		if duration < 10*time.Second {
			log.Printf("Connection to %s restored after %.1f seconds", s.addr, duration.Seconds())
		} else {
			log.Printf("Connection to %s reestablished after %.1f minutes", s.addr, duration.Minutes())
		}
	} else {
		log.Printf("Successfully connected to %s", s.addr)
	}
	return true, time.Time{}
}

// handleConnection reads lines until the connection fails or goes idle.
// It returns false when the capture is stopping.
func (s *TCPSource) handleConnection(stop <-chan struct{}, conn net.Conn, emit func([]byte) bool) bool {
	defer conn.Close()

	var lines lineBuffer
	buffer := make([]byte, 4096)
	lastData := time.Now()

	for {
		if stopped(stop) {
			return false
		}
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			log.Printf("Warning: failed to set read deadline for %s: %v", s.addr, err)
		}

		n, err := conn.Read(buffer)
		if n > 0 {
			lastData = time.Now()
			if !lines.feed(buffer[:n], emit) {
				return false
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if time.Since(lastData) > s.idleTimeout {
					log.Printf("No data from %s for %s, reconnecting", s.addr, s.idleTimeout)
					return true
				}
				continue
			}
			return lines.flush(emit)
		}
	}
}
