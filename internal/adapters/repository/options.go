package repository

// Option applies a configuration option to the MemoryRunStore.
type Option func(*MemoryRunStore)

// WithHistory sets how many runs are kept.
func WithHistory(n int) Option {
	return func(s *MemoryRunStore) {
		if n > 0 {
			s.history = n
		}
	}
}
