package ipc

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// HandlerFunc answers one decoded request. The returned bytes are written
// back verbatim before the connection is closed; nil means an empty reply.
type HandlerFunc func(args []string) []byte

// Server speaks the daemon side of the socket protocol. It backs the
// transport tests and lets tooling stand in for the daemon.
type Server struct {
	socketPath   string
	order        binary.ByteOrder
	handler      HandlerFunc
	logger       zerolog.Logger
	listener     net.Listener
	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. A nil order selects native byte order.
func NewServer(socketPath string, order binary.ByteOrder, handler HandlerFunc, logger zerolog.Logger) *Server {
	if order == nil {
		order = binary.NativeEndian
	}
	return &Server{
		socketPath: socketPath,
		order:      order,
		handler:    handler,
		logger:     logger.With().Str("component", "ipc-server").Logger(),
	}
}

// Start begins listening for IPC connections.
func (s *Server) Start() error {
	// Remove a stale socket from a previous run
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Debug().Str("socket", s.socketPath).Msg("IPC server listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Close stops accepting, waits for in-flight connections and removes the socket.
func (s *Server) Close() error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			down := s.shuttingDown
			s.shutdownMu.Unlock()
			if down {
				return
			}
			s.logger.Warn().Err(err).Msg("IPC accept error")
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	args, err := DecodeRequest(s.order, conn)
	if err != nil {
		s.logger.Warn().Err(err).Msg("IPC read error")
		return
	}

	resp := s.handler(args)
	if len(resp) == 0 {
		return
	}
	if _, err := conn.Write(resp); err != nil {
		s.logger.Warn().Err(err).Msg("failed to send response")
	}
}
