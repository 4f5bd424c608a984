package simulator

import (
	"errors"
	"net"
	"sync"
	"time"

	"uartbl/logger"
)

// DefaultIdleGap ends a frame, like the UART receive-timeout interrupt.
const DefaultIdleGap = 20 * time.Millisecond

// Server exposes a Device over TCP, one goroutine per connection.
type Server struct {
	listener net.Listener
	device   *Device
	IdleGap  time.Duration

	closing chan struct{}
	wg      sync.WaitGroup
}

// Listen binds addr (e.g. ":9999" or "127.0.0.1:0").
func Listen(addr string, device *Device) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		device:   device,
		IdleGap:  DefaultIdleGap,
		closing:  make(chan struct{}),
	}, nil
}

// Addr returns the port name drivers open to reach the device.
func (s *Server) Addr() string {
	return "tcp://" + s.listener.Addr().String()
}

// Serve accepts connections until Close is called.
func (s *Server) Serve() error {
	logger.Info("[SIM] Listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		logger.Info("[SIM] Client connected: %s", conn.RemoteAddr())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Close stops accepting and waits for open connections to finish.
func (s *Server) Close() error {
	close(s.closing)
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, 1024)
	var frame []byte

	for {
		select {
		case <-s.closing:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.IdleGap))
		n, err := conn.Read(buf)
		if n > 0 {
			frame = append(frame, buf[:n]...)
		}

		var netErr net.Error
		switch {
		case err == nil:
			continue
		case errors.As(err, &netErr) && netErr.Timeout():
			// line idle: frame complete
			if len(frame) == 0 {
				continue
			}
			if err := s.device.HandleFrame(frame, conn); err != nil {
				logger.Error("[SIM] Reply failed: %v", err)
				return
			}
			frame = nil
		default:
			logger.Info("[SIM] Connection closed")
			return
		}
	}
}
