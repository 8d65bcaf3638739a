// Package eventq holds the non-blocking channel send used wherever a
// producer must never wait on a slow consumer.
package eventq

// Offer sends value if ch has room and reports whether it did. A closed
// channel counts as full.
func Offer[T any](ch chan<- T, value T) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case ch <- value:
		return true
	default:
		return false
	}
}
