// Package broadcast implements the timed broadcast worker.
//
// The Worker wakes on a clockwork ticker and hands one payload to the session registry per tick.
// Registry.Broadcast only enqueues, so a tick never waits on client I/O; per-session writer goroutines
// absorb slow clients. Cancelling the Run context interrupts the wait immediately.
package broadcast
