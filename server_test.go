package main

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func startTestServer(t *testing.T, b *Bridge) *TCPServer {
	t.Helper()
	srv := NewTCPServer(b, "127.0.0.1:0", 0)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func dialTestServer(t *testing.T, srv *TCPServer) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewScanner(conn)
}

func sendLine(t *testing.T, conn net.Conn, sc *bufio.Scanner, line string) map[string]any {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if !sc.Scan() {
		t.Fatalf("no reply: %v", sc.Err())
	}
	var env map[string]any
	if err := json.Unmarshal(sc.Bytes(), &env); err != nil {
		t.Fatalf("bad reply %q: %v", sc.Text(), err)
	}
	return env
}

func TestTCPServer_RoundTrip(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	conn, sc := dialTestServer(t, srv)

	env := sendLine(t, conn, sc, `{"command":"click","params":{"x":100,"y":200}}`)
	if env["success"] != true || env["x"] != float64(100) {
		t.Errorf("got %v", env)
	}
}

func TestTCPServer_MalformedLineFailsThatLineOnly(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	conn, sc := dialTestServer(t, srv)

	env := sendLine(t, conn, sc, `{{{not json`)
	if env["error"] != "invalid request: not a JSON object" {
		t.Fatalf("got %v", env)
	}

	// The connection survives the bad line
	env = sendLine(t, conn, sc, `{"command":"back"}`)
	if env["success"] != true {
		t.Errorf("got %v", env)
	}
}

func TestTCPServer_MissingCommand(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	conn, sc := dialTestServer(t, srv)

	for _, line := range []string{`{}`, `{"command":""}`, `{"command":42}`} {
		env := sendLine(t, conn, sc, line)
		if env["error"] != "invalid request: missing command" {
			t.Errorf("%s: got %v", line, env)
		}
	}
}

func TestTCPServer_ParamsOptional(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	conn, sc := dialTestServer(t, srv)

	env := sendLine(t, conn, sc, `{"command":"home"}`)
	if env["success"] != true || env["action"] != "home" {
		t.Errorf("got %v", env)
	}
}

func TestTCPServer_PipelinedRepliesInOrder(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	conn, sc := dialTestServer(t, srv)

	lines := `{"command":"back"}` + "\n" +
		`{"command":"home"}` + "\n" +
		`{"command":"recents"}` + "\n"
	if _, err := conn.Write([]byte(lines)); err != nil {
		t.Fatal(err)
	}

	want := []string{"back", "home", "recents"}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for _, action := range want {
		if !sc.Scan() {
			t.Fatalf("missing reply for %s: %v", action, sc.Err())
		}
		var env map[string]any
		if err := json.Unmarshal(sc.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env["action"] != action {
			t.Errorf("out of order: got %v, want %s", env["action"], action)
		}
	}
}

func TestTCPServer_UnknownCommandOverWire(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	conn, sc := dialTestServer(t, srv)

	env := sendLine(t, conn, sc, `{"command":"teleport"}`)
	if env["error"] != "Unknown command: teleport" {
		t.Fatalf("got %v", env)
	}
	if _, ok := env["availableCommands"].([]any); !ok {
		t.Error("Expected availableCommands listing")
	}
}

func TestTCPServer_StopClosesConnections(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := NewTCPServer(b, "127.0.0.1:0", 0)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	conn, err := net.DialTimeout("tcp", srv.Addr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	srv.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Error("Connection should be closed after Stop")
	}
}

func TestTCPServer_DoubleStart(t *testing.T) {
	b := newTestBridge(t, newFakeService(sampleTree()))
	srv := startTestServer(t, b)
	if err := srv.Start(); err == nil {
		t.Error("Second Start must fail while running")
	}
}
