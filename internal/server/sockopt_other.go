//go:build !linux

package server

import (
	"log/slog"
	"syscall"
	"time"
)

func socketControl(userTimeout time.Duration) func(network, address string, c syscall.RawConn) error {
	if userTimeout > 0 {
		slog.Warn("TCP_USER_TIMEOUT is only supported on Linux, ignoring", "timeout", userTimeout)
	}
	return nil
}
