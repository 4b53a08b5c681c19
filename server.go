package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ========================================
// TCP Transport
// Newline-delimited JSON requests, one envelope per line. The router
// serializes handling, so pipelined requests on one connection come back in
// order.
// ========================================

// TCPServer accepts command connections on a local socket.
type TCPServer struct {
	bridge     *Bridge
	addr       string
	ratePerSec int

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewTCPServer creates a transport bound to addr. ratePerSec caps inbound
// commands per connection; zero disables the cap.
func NewTCPServer(bridge *Bridge, addr string, ratePerSec int) *TCPServer {
	return &TCPServer{bridge: bridge, addr: addr, ratePerSec: ratePerSec}
}

// Start begins listening and serving in the background.
func (s *TCPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("tcp server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.listener = ln
	s.cancel = cancel

	LogInfo("server").Str("addr", ln.Addr().String()).Msg("tcp transport listening")

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)
	return nil
}

// Addr returns the bound address, useful when addr had port 0.
func (s *TCPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for connections to drain.
func (s *TCPServer) Stop() {
	s.mu.Lock()
	ln := s.listener
	cancel := s.cancel
	s.listener = nil
	s.cancel = nil
	s.mu.Unlock()

	if ln != nil {
		cancel()
		ln.Close()
		s.wg.Wait()
		LogInfo("server").Msg("tcp transport stopped")
	}
}

func (s *TCPServer) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			LogWarn("server").Err(err).Msg("accept failed")
			return
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	LogDebug("server").Str("remote", remote).Msg("connection opened")

	var limiter *rate.Limiter
	if s.ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.ratePerSec), s.ratePerSec)
	}

	go func() {
		// Unblock reads when the server stops.
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if limiter != nil {
			// Throttle rather than reject: pipelined floods slow down
			// instead of failing.
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		env := s.handleLine(line)
		out, err := json.Marshal(env)
		if err != nil {
			out = []byte(`{"error":"internal: result not serializable"}`)
		}
		writer.Write(out)
		writer.WriteByte('\n')
		if err := writer.Flush(); err != nil {
			LogWarn("server").Str("remote", remote).Err(err).Msg("write failed")
			return
		}
	}
	LogDebug("server").Str("remote", remote).Msg("connection closed")
}

// handleLine decodes one request line. A malformed line fails that line
// only; the connection stays usable.
func (s *TCPServer) handleLine(line string) Envelope {
	if !gjson.Valid(line) {
		return Envelope{"error": "invalid request: not a JSON object"}
	}
	parsed := gjson.Parse(line)
	command := parsed.Get("command")
	if !command.Exists() || command.Type != gjson.String || command.String() == "" {
		return Envelope{"error": "invalid request: missing command"}
	}
	params := parsed.Get("params")
	raw := ""
	if params.Exists() {
		raw = params.Raw
	}
	return s.bridge.Handle(command.String(), raw)
}
