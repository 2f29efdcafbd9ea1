package channels

// TrySend sends value only if c is ready to take it.
func TrySend[T any](c chan<- T, value T) bool {
	select {
	case c <- value:
		return true
	default:
		return false
	}
}
