package ranking

// SortState is the interactive sort selection. Selecting the same column
// cycles unsorted, asc, desc, unsorted; a different column starts at asc.
type SortState struct {
	sort Sort
}

// NewSortState resumes the cycle from s, resolved as Rank would.
func NewSortState(s Sort) *SortState {
	if s.IsDefault() {
		return &SortState{}
	}
	return &SortState{sort: s.Resolve()}
}

// Toggle advances the state for a selection of column.
func (s *SortState) Toggle(column Column) {
	if column != s.sort.Column {
		s.sort = Sort{Column: column, Direction: Asc}
		return
	}
	switch s.sort.Direction {
	case None:
		s.sort.Direction = Asc
	case Asc:
		s.sort.Direction = Desc
	default:
		s.sort = Sort{}
	}
}

// Sort returns the current selection. The unsorted state is the zero Sort.
func (s *SortState) Sort() Sort { return s.sort }
