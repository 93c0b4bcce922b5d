package socketio

import (
	"net"
	"sync"

	"github.com/samber/lo"
)

// ConnectionLimiter caps concurrent UI clients connecting from other hosts.
// Loopback clients are never counted. When an external client exceeds the
// cap, the oldest external client is evicted. A cap of zero disables the limit.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	// external client ids, oldest first
	external []string
	// client id -> remote address
	connections map[string]string
}

// NewConnectionLimiter creates a limiter admitting maxExternal external clients.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// Add registers a client and returns the id of the client to evict, or ""
// when nobody has to go. Adding a tracked id again is a no-op.
func (cl *ConnectionLimiter) Add(clientID, remoteAddr string) (evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return ""
	}
	cl.connections[clientID] = remoteAddr
	if isLoopback(remoteAddr) {
		return ""
	}

	cl.external = append(cl.external, clientID)
	if cl.maxExternal <= 0 || len(cl.external) <= cl.maxExternal {
		return ""
	}
	evictedID, cl.external = cl.external[0], cl.external[1:]
	delete(cl.connections, evictedID)
	return evictedID
}

// Remove forgets a client. Unknown ids are ignored.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; !exists {
		return
	}
	delete(cl.connections, clientID)
	cl.external = lo.Without(cl.external, clientID)
}

// External returns the number of tracked external clients.
func (cl *ConnectionLimiter) External() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.external)
}

// isLoopback accepts a bare IP or host:port.
func isLoopback(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
