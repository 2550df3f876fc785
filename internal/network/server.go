package network

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync"

	"github.com/amalg/dci-bomberman/internal/room"
)

// Server accepts TCP game clients and hands each one to a room.
type Server struct {
	rooms    *room.Manager
	admin    Authorizer
	addr     string
	logger   *log.Logger
	listener net.Listener
	conns    map[net.Conn]struct{}
	mu       sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a new game server. A nil logger writes to stderr; a nil
// admin refuses every room command.
func NewServer(addr string, rooms *room.Manager, admin Authorizer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[SERVER] ", log.LstdFlags)
	}
	return &Server{
		rooms:  rooms,
		admin:  admin,
		addr:   addr,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins accepting connections.
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.logger.Printf("Listening on %s", s.listener.Addr())
	s.printLocalIPs()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the address the server listens on, once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and every client connection.
func (s *Server) Stop() {
	select {
	case <-s.done:
		return
	default:
	}
	s.mu.Lock()
	close(s.done)
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Printf("Accept error: %v", err)
				continue
			}
		}

		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			serveSession(newTCPTransport(conn), s.rooms, s.admin, s.logger)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

// printLocalIPs prints all local network interfaces for players to connect to.
func (s *Server) printLocalIPs() {
	_, port, _ := net.SplitHostPort(s.Addr())

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return
	}

	s.logger.Println("Players can connect using:")
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				s.logger.Printf("  %s:%s", ipnet.IP.String(), port)
			}
		}
	}
}
