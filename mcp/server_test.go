package mcp

import (
	"strings"
	"testing"
)

func TestNewMCPServer(t *testing.T) {
	mock := NewMockBridge()
	server := NewMCPServer(mock)
	if server == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if server.IsRunning() {
		t.Error("Server should not be running before Start")
	}
}

func TestDispatch_EmptyParams(t *testing.T) {
	mock := NewMockBridge()
	server := NewMCPServer(mock)

	_, err := server.dispatch("hierarchy", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	call := mock.LastCall()
	if call == nil {
		t.Fatal("Expected a bridge call")
	}
	if call.RawParams != "{}" {
		t.Errorf("Expected empty object params, got %q", call.RawParams)
	}
}

func TestDispatch_RendersEnvelopeAsJSON(t *testing.T) {
	mock := NewMockBridge()
	mock.Results["find"] = map[string]any{"found": true, "text": "OK"}
	server := NewMCPServer(mock)

	out, err := server.dispatch("find", map[string]any{"text": "OK"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "\"found\": true") {
		t.Errorf("Expected envelope JSON, got %s", out)
	}
}

func TestDispatch_TruncatesLargeResults(t *testing.T) {
	mock := NewMockBridge()
	mock.Results["hierarchy"] = map[string]any{
		"root": strings.Repeat("x", 60000),
	}
	server := NewMCPServer(mock)

	out, err := server.dispatch("hierarchy", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(out) > 51000 {
		t.Errorf("Expected truncated output, got %d bytes", len(out))
	}
	if !strings.Contains(out, "truncated") {
		t.Error("Truncated output should say so")
	}
}
