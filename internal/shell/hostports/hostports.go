// Package hostports probes the host network stack for TCP port availability.
package hostports

import (
	"fmt"
	"net"
)

// Free checks if a port is available by attempting to listen on it.
func Free(port int) bool {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// Bound reports whether something on the host already holds the port.
// It satisfies ports.BoundFunc.
func Bound(port int) bool {
	return !Free(port)
}
