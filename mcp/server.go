// Package mcp exposes the automation bridge over the Model Context Protocol.
// This lets external AI clients (like Claude Desktop) drive the device UI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/mark3labs/mcp-go/server"
)

// BridgeHandle defines the methods the MCP server needs from the bridge.
// This allows loose coupling between MCP and the main application.
type BridgeHandle interface {
	// Handle routes a command with a raw JSON parameter bag and returns the
	// result envelope. Errors are reported inside the envelope, never as a
	// transport failure.
	Handle(command string, rawParams string) map[string]any

	// Commands lists the supported command names in registration order.
	Commands() []string

	// Version reports the bridge version string.
	Version() string
}

// MCPServer wraps the mcp-go stdio server around a bridge handle
type MCPServer struct {
	bridge    BridgeHandle
	server    *server.MCPServer
	stdio     *server.StdioServer
	mu        sync.Mutex
	isRunning bool
}

// NewMCPServer creates a new MCP server bound to the given bridge
func NewMCPServer(bridge BridgeHandle) *MCPServer {
	mcpServer := server.NewMCPServer(
		"tether-ui-bridge",
		bridge.Version(),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	s := &MCPServer{
		bridge: bridge,
		server: mcpServer,
	}

	s.registerUITools()
	s.registerSystemTools()

	return s
}

// Start starts the MCP server on stdio (blocking)
func (s *MCPServer) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	return s.run()
}

// StartAsync starts the MCP server in a goroutine (non-blocking)
func (s *MCPServer) StartAsync() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	go s.run()
	return nil
}

func (s *MCPServer) run() error {
	s.stdio = server.NewStdioServer(s.server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "[MCP] Tether MCP server started")
	err := s.stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[MCP] Server error: %v\n", err)
	}

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	return err
}

// Stop stops the MCP server
func (s *MCPServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The server stops when stdin closes or the context is cancelled
	s.isRunning = false
}

// IsRunning returns whether the MCP server is running
func (s *MCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// dispatch funnels a tool call into the bridge and renders the envelope as
// JSON text content. Envelope-level errors stay in the envelope so the AI
// client sees the same surface every transport sees.
func (s *MCPServer) dispatch(command string, params map[string]any) (string, error) {
	raw := "{}"
	if len(params) > 0 {
		data, err := json.Marshal(params)
		if err != nil {
			return "", fmt.Errorf("failed to encode parameters: %w", err)
		}
		raw = string(data)
	}

	env := s.bridge.Handle(command, raw)
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}

	result := string(out)
	if len(result) > 50000 {
		result = result[:50000] + "\n... (truncated, result too large)"
	}
	return result, nil
}
