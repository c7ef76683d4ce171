// Package session implements the per-connection Session and the Registry of live sessions.
//
// A Session owns its net.Conn, a fixed-size read buffer and a write queue. Two goroutines keep it
// alive: the read loop (Run) and the writer that drains the queue, so all writes on a connection are
// serialized no matter how many producers call Send. The Registry only holds back-references for
// iteration; it never decides a session's lifetime.
package session
