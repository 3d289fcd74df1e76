package xmfile

// slab hands out small slices carved from a few large chunks.
//
// After reset, the chunks are reused and the slices handed out
// before must not be accessed anymore.
type slab[T any] struct {
	chunks    [][]T
	chunkSize int
	maxChunks int

	current int
	used    int
}

func newSlab[T any](chunkSize, maxChunks int) slab[T] {
	return slab[T]{
		chunks:    make([][]T, 0, maxChunks),
		chunkSize: chunkSize,
		maxChunks: maxChunks,
	}
}

func (s *slab[T]) reset() {
	s.current = 0
	s.used = 0
}

// alloc returns a zeroed slice of length n.
// The slice capacity is n, so appending to it never touches the neighbours.
func (s *slab[T]) alloc(n int) []T {
	if n > s.chunkSize {
		return make([]T, n)
	}
	for s.current < len(s.chunks) {
		if s.used+n <= s.chunkSize {
			out := s.chunks[s.current][s.used : s.used+n : s.used+n]
			s.used += n
			clear(out)
			return out
		}
		s.current++
		s.used = 0
	}
	if len(s.chunks) == s.maxChunks {
		return make([]T, n)
	}
	s.chunks = append(s.chunks, make([]T, s.chunkSize))
	s.used = n
	return s.chunks[s.current][:n:n]
}
