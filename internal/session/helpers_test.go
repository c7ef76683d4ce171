package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestConnPair returns both ends of a loopback TCP connection.
func newTestConnPair(t *testing.T) (server net.Conn, client net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server, ok := <-accepted
	require.True(t, ok, "accept failed")
	t.Cleanup(func() { server.Close() })

	return server, client
}

func newTestSession(t *testing.T, registry *Registry, opts Options) (*Session, net.Conn) {
	t.Helper()
	server, client := newTestConnPair(t)
	s := New(server, registry, opts)
	t.Cleanup(s.Close)
	return s, client
}

func waitClosed(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session was not torn down")
	}
}

type closeRecord struct {
	reason string
	err    error
}

func recordClose() (func(*Session, string, error), <-chan closeRecord) {
	ch := make(chan closeRecord, 1)
	return func(_ *Session, reason string, err error) {
		ch <- closeRecord{reason: reason, err: err}
	}, ch
}
