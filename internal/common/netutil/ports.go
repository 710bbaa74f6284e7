package netutil

import (
	"fmt"
	"net"
	"time"
)

// IsPortBusy reports whether something already accepts TCP connections on
// the loopback port.
func IsPortBusy(port int) bool {
	// Try connecting; if succeeds, someone is listening.
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return true
	}
	return false
}
