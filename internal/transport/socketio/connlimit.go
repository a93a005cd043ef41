package socketio

import (
	"net"
	"sync"

	"github.com/samber/lo"
)

// ConnectionLimiter caps how many remote player surfaces may be attached at once.
// Loopback connections (a kiosk browser on the same host) are never limited.
// When a new remote connection exceeds the cap, the oldest remote one is evicted
// so the most recent remote control wins.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	// external client IDs, oldest first
	external []string
	// clientID -> remote IP
	connections map[string]string
}

// NewConnectionLimiter creates a limiter allowing up to maxExternal remote
// connections. A non-positive maxExternal disables the cap.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// TryAdd registers a connection from remoteAddr, which may carry a port.
// It returns the ID of a client that must be disconnected to make room, or "".
func (cl *ConnectionLimiter) TryAdd(clientID, remoteAddr string) (evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return ""
	}

	ip := remoteIP(remoteAddr)
	cl.connections[clientID] = ip
	if isLocalIP(ip) {
		return ""
	}

	cl.external = append(cl.external, clientID)
	if cl.maxExternal <= 0 || len(cl.external) <= cl.maxExternal {
		return ""
	}

	evictedID = cl.external[0]
	cl.external = cl.external[1:]
	delete(cl.connections, evictedID)
	return evictedID
}

// Remove unregisters a disconnected client.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	ip, exists := cl.connections[clientID]
	if !exists {
		return
	}
	delete(cl.connections, clientID)

	if !isLocalIP(ip) {
		cl.external = lo.Without(cl.external, clientID)
	}
}

// Counts returns the number of tracked connections and how many are remote.
func (cl *ConnectionLimiter) Counts() (total, external int) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.connections), len(cl.external)
}

// remoteIP strips an optional port from addr.
func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// isLocalIP reports whether ip is a loopback address, including IPv4-mapped IPv6.
func isLocalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
