package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mikepicker/mailslot/internal/errors"
	"github.com/Mikepicker/mailslot/internal/logging"
	"github.com/Mikepicker/mailslot/internal/mailslot"
)

// Config holds the server's runtime settings.
type Config struct {
	// Listen is the TCP address to bind.
	Listen string
	// MaxConns limits concurrent client connections, 0 = unlimited.
	MaxConns int
	// IdleTimeout disconnects a client after this long without a
	// complete command, 0 = no timeout.
	IdleTimeout time.Duration
}

// Server accepts TCP clients and dispatches their commands to the
// mailslot registry, one goroutine per connection.
type Server struct {
	cfg      Config
	registry *mailslot.Registry
	log      *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	active   atomic.Int32
	wg       sync.WaitGroup
}

// NewServer creates a Server for the given registry.
func NewServer(registry *mailslot.Registry, cfg Config, log *logging.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		log:      log.WithComponent("dispatch"),
	}
}

// Listen binds the configured address. Call before Serve; it is split
// out so callers can learn the bound address (e.g. when listening on
// port 0) before clients are accepted.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("dispatch: listen on %s: %w", s.cfg.Listen, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then closes the
// listener and waits for in-flight sessions to finish. Calls Listen
// first if the caller has not.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.log.Info("server stopped")
				return nil
			}
			return fmt.Errorf("dispatch: accept: %w", err)
		}

		if s.cfg.MaxConns > 0 && int(s.active.Load()) >= s.cfg.MaxConns {
			s.log.Warn("connection refused, limit reached",
				"remote", conn.RemoteAddr().String(), "max_conns", s.cfg.MaxConns)
			_, _ = fmt.Fprintf(conn, "-ERR too many connections\r\n")
			_ = conn.Close()
			continue
		}

		s.active.Add(1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.active.Add(-1)
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn runs one client session: read a command line, execute it
// against the registry, write the response, until QUIT, disconnect, or
// idle timeout. Closing the session releases its bound mailslot.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	log := s.log.WithConn(conn.RemoteAddr().String())
	log.Debug("client connected")

	sess := &session{registry: s.registry, log: log, bound: -1}
	defer func() {
		sess.close()
		_ = conn.Close()
		log.Debug("client disconnected")
	}()

	// A command line is at most: verb, index, one payload of
	// MessageSize bytes, and separators.
	limit := s.registry.MessageSize() + 64
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, limit), limit)
	w := bufio.NewWriter(conn)

	for {
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				if errors.Is(err, bufio.ErrTooLong) {
					writeErr(w, "line too long")
					_ = w.Flush()
				}
				log.Debug("session read ended", "error", err.Error())
			}
			return
		}

		quit := sess.execute(ctx, w, scanner.Bytes())
		_ = w.Flush()
		if quit {
			return
		}
	}
}

// session is the per-connection protocol state: at most one mailslot is
// bound between OPEN and QUIT/disconnect, like a file handle's minor
// number.
type session struct {
	registry *mailslot.Registry
	log      *logging.Logger
	bound    int // bound mailslot index, -1 when none
}

// execute runs one parsed command and writes its response.
// Returns true when the session should end.
func (s *session) execute(ctx context.Context, w *bufio.Writer, line []byte) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		s.log.Debug("rejected command", "error", err.Error())
		writeErr(w, userMessage(err))
		return false
	}

	switch cmd.verb {
	case verbQuit:
		writeOK(w, "bye")
		return true

	case verbOpen:
		if s.bound >= 0 {
			writeErr(w, fmt.Sprintf("session already has mailslot %d open", s.bound))
			return false
		}
		if err := s.registry.Open(cmd.index); err != nil {
			s.fail(w, cmd.verb, err)
			return false
		}
		s.bound = cmd.index
		writeOK(w, fmt.Sprintf("opened %d", cmd.index))

	case verbWrite:
		if !s.requireBound(w, cmd.index) {
			return false
		}
		n, err := s.registry.Write(ctx, cmd.index, cmd.payload)
		if err != nil {
			s.fail(w, cmd.verb, err)
			return false
		}
		writeOK(w, fmt.Sprintf("wrote %d", n))

	case verbRead:
		if !s.requireBound(w, cmd.index) {
			return false
		}
		buf := make([]byte, s.registry.MessageSize())
		n, ok, err := s.registry.Read(ctx, cmd.index, buf)
		if err != nil {
			s.fail(w, cmd.verb, err)
			return false
		}
		if !ok {
			// Empty is a successful outcome, reported in-band.
			writeOK(w, "0 no message to read")
			return false
		}
		_, _ = fmt.Fprintf(w, "+OK %d ", n)
		_, _ = w.Write(buf[:n])
		_, _ = w.WriteString("\r\n")

	case verbStat:
		occupied, err := s.registry.Occupancy(cmd.index)
		if err != nil {
			s.fail(w, cmd.verb, err)
			return false
		}
		writeOK(w, fmt.Sprintf("%d %d", occupied, s.registry.Capacity()))

	case verbClear:
		if !s.requireBound(w, cmd.index) {
			return false
		}
		dropped, err := s.registry.Clear(ctx, cmd.index)
		if err != nil {
			s.fail(w, cmd.verb, err)
			return false
		}
		writeOK(w, fmt.Sprintf("cleared %d", dropped))
	}

	return false
}

// requireBound enforces the protocol's open-before-use rule: the
// command's index must be the session's bound mailslot.
func (s *session) requireBound(w *bufio.Writer, index int) bool {
	if s.bound < 0 {
		writeErr(w, "open a mailslot first")
		return false
	}
	if s.bound != index {
		writeErr(w, fmt.Sprintf("session is bound to mailslot %d", s.bound))
		return false
	}
	return true
}

// fail logs a registry failure and relays it to the client.
func (s *session) fail(w *bufio.Writer, verb string, err error) {
	s.log.Debug("command failed", "verb", verb, "error", err.Error())
	writeErr(w, userMessage(err))
}

// close releases the session's bound mailslot, if any. Runs on QUIT and
// on disconnect, so an opener can never outlive its connection.
func (s *session) close() {
	if s.bound < 0 {
		return
	}
	if err := s.registry.Release(s.bound); err != nil {
		s.log.Warn("release on session close failed", "mailslot", s.bound, "error", err.Error())
	}
	s.bound = -1
}

func writeOK(w *bufio.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "+OK %s\r\n", msg)
}

func writeErr(w *bufio.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "-ERR %s\r\n", msg)
}

// userMessage maps an error to the text relayed to clients. Taxonomy
// sentinels are relayed verbatim; anything else is opaque.
func userMessage(err error) string {
	for _, sentinel := range []error{
		errors.ErrAlreadyOpen,
		errors.ErrNotOpen,
		errors.ErrIndexOutOfRange,
		errors.ErrCapacityExceeded,
		errors.ErrMailboxFull,
		errors.ErrMessageTooLarge,
		errors.ErrBusy,
		errors.ErrInvalidInput,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
