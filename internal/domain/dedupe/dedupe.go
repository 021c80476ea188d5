// Package dedupe normalizes caller-supplied ticker symbols and drops repeats.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records seen symbols so each is screened at most once per batch.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper implements Deduper with a map.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Normalize trims a symbol and upper-cases it.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Split breaks free-form input such as "aapl, msft tsla" into entries.
func Split(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// Symbols normalizes raw, drops blanks and keeps the first occurrence of
// each symbol in input order. Entries may themselves be comma separated.
func Symbols(ctx context.Context, raw []string, opts ...Option) ([]string, error) {
	d := NewInMemoryDeduper(opts...).(*inMemoryDeduper)

	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range Split(entry) {
			s := Normalize(part)
			if s == "" {
				continue
			}
			if !valid(s) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, part)
			}
			if d.SeenAndRecord(ctx, s) {
				continue
			}
			if d.maxSize > 0 && int(d.Size()) > d.maxSize {
				return nil, fmt.Errorf("%w: more than %d symbols", ErrTooManySymbols, d.maxSize)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// valid accepts letters, digits and the class separators . - /.
func valid(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '/':
		default:
			return false
		}
	}
	return true
}
