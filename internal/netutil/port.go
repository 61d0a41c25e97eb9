package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// maxPortRetries bounds the attempts to find a port not already in the
// registry. This guards against pathological kernel reuse patterns.
const maxPortRetries = 20

// PortRegistry tracks local ports reserved by this process. One registry is
// created per Lab and shared by all port-forwards it starts.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates a PortRegistry ready for use.
// If logger is nil, slog.Default() is used.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve registers a port in the registry. Returns false if already taken.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Release removes a port from the registry, allowing it to be reused.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// AllocatePort asks the kernel for a free loopback port, skipping any ports
// already in the registry. The listener used to discover the port is closed
// before returning, but the port stays registered; callers must call Release
// when the port is no longer needed.
func (r *PortRegistry) AllocatePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for range maxPortRetries {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		port := tcpAddr.Port
		if !r.reserve(port) {
			// Already handed out to another caller; close and ask again.
			r.log.Debug("port already in registry, retrying", "port", port)
			_ = l.Close()
			continue
		}
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close listener after port allocation", "port", port, "error", closeErr)
		}
		return port, nil
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}
