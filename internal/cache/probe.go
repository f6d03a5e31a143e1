package cache

import (
	"net"
	"strconv"
	"time"
)

// Alive reports whether a TCP connection to host:port can be established
// within timeout. A short timeout keeps refresh latency bounded when many
// configured nodes are offline; the protocol-level ping only runs after this
// cheap check passes.
func Alive(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
