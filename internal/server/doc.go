// Package server implements the TCP connection acceptor.
//
// The Acceptor binds the listening socket, applies connection limits to every accepted connection,
// and turns admitted connections into started sessions. Accept errors back off and retry; only a
// bind failure is fatal. Cancelling the Serve context closes the listener and every live session.
package server
