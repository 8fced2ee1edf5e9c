package workload

const (
	basePattern = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	baseSize    = 1024
)

var base = func() []byte {
	b := make([]byte, 0, baseSize+len(basePattern))
	for len(b) < baseSize {
		b = append(b, basePattern...)
	}
	return b[:baseSize]
}()

// Plaintext returns size bytes built by repeating a fixed 1024-byte block,
// so every run and every workload encrypts the same input.
func Plaintext(size int) []byte {
	if size <= 0 {
		return []byte{}
	}

	out := make([]byte, 0, size)
	for len(out) < size {
		remaining := size - len(out)
		if remaining >= baseSize {
			out = append(out, base...)
		} else {
			out = append(out, base[:remaining]...)
		}
	}
	return out
}
