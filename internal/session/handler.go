package session

import "bytes"

// Handler receives the bytes of one successful read. data aliases the session's
// read buffer and is only valid until Handler returns.
type Handler func(s *Session, data []byte)

// Echo writes every received chunk back to the peer through the session's write
// queue, interleaving safely with broadcast writes.
func Echo(s *Session, data []byte) {
	s.Send(bytes.Clone(data))
}
