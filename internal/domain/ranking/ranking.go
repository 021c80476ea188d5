// Package ranking orders screening records by a selectable column.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/covcall/internal/domain/model"
)

// Direction is the sort direction. The zero value means unsorted.
type Direction string

// Directions.
const (
	None Direction = ""
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc, desc or empty.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case None, Asc, Desc:
		return d, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Sort is the (column, direction) pair a caller ranks by.
type Sort struct {
	Column    Column
	Direction Direction
}

// Default is descending annualized call return.
var Default = Sort{Column: ColAnnPctCall, Direction: Desc}

// IsDefault reports whether s names no column and so ranks in the
// default order.
func (s Sort) IsDefault() bool {
	return s.Column == ""
}

// Resolve fills in the implied parts of s: no column is the default order
// and a column without a direction is ascending.
func (s Sort) Resolve() Sort {
	switch {
	case s.IsDefault():
		return Default
	case s.Direction == None:
		s.Direction = Asc
	}
	return s
}

// Rank returns a new slice ordered by s.Resolve(), reading metric columns through
// the set labelled label. Equal primary values fall back to annPctCall
// descending. The input is not modified.
func Rank(records []model.Record, s Sort, label string) ([]model.Record, error) {
	s = s.Resolve()
	primary, ok := resolvers[s.Column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, s.Column)
	}
	if s.Direction != Asc && s.Direction != Desc {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, s.Direction)
	}
	secondary := resolvers[ColAnnPctCall]

	out := make([]model.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		c := Compare(primary(out[i], label), primary(out[j], label))
		if s.Direction == Desc {
			c = -c
		}
		if c == 0 && s.Column != ColAnnPctCall {
			c = -Compare(secondary(out[i], label), secondary(out[j], label))
		}
		return c < 0
	})
	return out, nil
}

// Top keeps the first n records. n <= 0 keeps all.
func Top(records []model.Record, n int) []model.Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
