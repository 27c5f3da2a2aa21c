// Package singleinstance keeps a second resident from starting by
// claiming a fixed localhost port for the process lifetime.
package singleinstance

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

const (
	defaultPort = 47653
	portEnvVar  = "SINGLEINSTANCE_PORT"
)

// Port returns the claim port, overridable via SINGLEINSTANCE_PORT.
func Port() int {
	if v := os.Getenv(portEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			return n
		}
	}
	return defaultPort
}

// Claim binds the port and holds it. A failure means another resident
// already owns it. Close the returned listener at shutdown.
func Claim() (net.Listener, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", Port())
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d busy, resident already running: %w", Port(), err)
	}
	return l, nil
}
