package broadcast

// PayloadSize is the length of every broadcast buffer.
const PayloadSize = 200

// Marker is written at the start of the broadcast buffer; the rest is zero padding.
var Marker = []byte("artur")

// DefaultPayload returns a fresh PayloadSize buffer starting with Marker.
func DefaultPayload() []byte {
	buf := make([]byte, PayloadSize)
	copy(buf, Marker)
	return buf
}

// PayloadFunc produces the payload for a tick. The returned slice is shared by
// every session's write queue and must not be modified afterwards.
type PayloadFunc func(tick uint64) []byte

// Fixed returns a PayloadFunc that yields p on every tick.
func Fixed(p []byte) PayloadFunc {
	return func(uint64) []byte { return p }
}
