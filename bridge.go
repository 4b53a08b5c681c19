package main

import (
	"sync"
	"time"
)

// ========================================
// Bridge
// Owns the platform capability handle and the command router. The handle is
// injected at attach time; its absence is a normal, checked condition rather
// than a nil-pointer hazard.
// ========================================

// Bridge is the remote-automation bridge: commands come in through Handle
// and are translated into operations against the attached platform service.
type Bridge struct {
	mu      sync.RWMutex
	svc     Service
	router  *Router
	history *HistoryStore
	version string
}

// NewBridge creates a detached bridge. Until Attach is called every command
// that touches the platform resolves to a service-not-running error.
func NewBridge(version string) *Bridge {
	b := &Bridge{version: version}
	b.router = newRouter(b)
	return b
}

// Attach installs the platform capability handle. Commands routed after
// Attach returns see the new handle.
func (b *Bridge) Attach(svc Service) {
	b.mu.Lock()
	b.svc = svc
	b.mu.Unlock()
	LogInfo("bridge").Msg("platform service attached")
}

// Detach drops the platform handle, e.g. when the service disconnects.
func (b *Bridge) Detach() {
	b.mu.Lock()
	b.svc = nil
	b.mu.Unlock()
	LogInfo("bridge").Msg("platform service detached")
}

// Attached reports whether a platform handle is currently installed.
func (b *Bridge) Attached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.svc != nil
}

// service returns the current handle, or ErrServiceNotRunning.
func (b *Bridge) service() (Service, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.svc == nil {
		return nil, ErrServiceNotRunning
	}
	return b.svc, nil
}

// SetHistory installs the command audit store. Auditing is best-effort and
// optional; a nil store disables it.
func (b *Bridge) SetHistory(h *HistoryStore) {
	b.mu.Lock()
	b.history = h
	b.mu.Unlock()
}

func (b *Bridge) historyStore() *HistoryStore {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history
}

// SetCommandTimeout overrides the whole-command timeout for interactive
// commands, typically from configuration.
func (b *Bridge) SetCommandTimeout(d time.Duration) {
	b.router.SetTimeout(d)
}

// Handle routes one command and returns its result envelope. It never
// panics and never returns an error: every outcome is an envelope.
func (b *Bridge) Handle(command string, rawParams string) Envelope {
	return b.router.Handle(command, rawParams)
}

// Commands lists the registered command names in registration order.
func (b *Bridge) Commands() []string {
	return b.router.Commands()
}

// Version returns the bridge version string.
func (b *Bridge) Version() string {
	return b.version
}

// Close stops the router's dispatch context and the audit store.
func (b *Bridge) Close() {
	b.router.Close()
	if h := b.historyStore(); h != nil {
		h.Close()
	}
}
