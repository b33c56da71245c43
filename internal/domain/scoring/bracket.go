// Package scoring turns raw qualification measurements and rater submissions
// into a weighted composite score per candidate, and ranks candidates by it.
//
// Every function in this package is a pure computation over its arguments:
// no I/O, no shared mutable state, safe for concurrent use.
package scoring

import (
	"sort"
	"strconv"
)

// Delta returns how far raw exceeds baseline. Values below baseline clamp to zero.
func Delta(raw, baseline int) int {
	if raw < baseline {
		return 0
	}
	return raw - baseline
}

// BracketEntry is the external shape of one bracket: {"MAX": n}.
type BracketEntry struct {
	Max int `json:"MAX" yaml:"MAX"`
}

// Bracket maps every delta up to and including Max onto Level.
type Bracket struct {
	Level int
	Max   int
}

// BracketTable is an ordered, non-empty set of brackets sorted by Max ascending.
// Build one with NewBracketTable.
type BracketTable struct {
	brackets []Bracket
}

// NewBracketTable parses the external {"<level>": {"MAX": n}} form.
// Level keys must be integers, and maxima must not decrease as levels rise.
func NewBracketTable(entries map[string]BracketEntry) (BracketTable, error) {
	if len(entries) == 0 {
		return BracketTable{}, configErrorf("bracket table is empty")
	}
	brackets := make([]Bracket, 0, len(entries))
	for key, entry := range entries {
		level, err := strconv.Atoi(key)
		if err != nil {
			return BracketTable{}, configErrorf("bracket level %q is not an integer", key)
		}
		if entry.Max < 0 {
			return BracketTable{}, configErrorf("bracket %d has negative MAX %d", level, entry.Max)
		}
		brackets = append(brackets, Bracket{Level: level, Max: entry.Max})
	}
	sort.Slice(brackets, func(i, j int) bool { return brackets[i].Level < brackets[j].Level })
	for i := 1; i < len(brackets); i++ {
		if brackets[i].Max < brackets[i-1].Max {
			return BracketTable{}, configErrorf("bracket %d MAX %d is below bracket %d MAX %d",
				brackets[i].Level, brackets[i].Max, brackets[i-1].Level, brackets[i-1].Max)
		}
	}
	return BracketTable{brackets: brackets}, nil
}

// Len returns the number of brackets.
func (t BracketTable) Len() int { return len(t.brackets) }

// Brackets returns a copy of the brackets in ascending order.
func (t BracketTable) Brackets() []Bracket {
	out := make([]Bracket, len(t.brackets))
	copy(out, t.brackets)
	return out
}

// TopLevel returns the highest level in the table.
func (t BracketTable) TopLevel() int {
	if len(t.brackets) == 0 {
		return 0
	}
	return t.brackets[len(t.brackets)-1].Level
}

// Entries converts the table back to its external form.
func (t BracketTable) Entries() map[string]BracketEntry {
	out := make(map[string]BracketEntry, len(t.brackets))
	for _, b := range t.brackets {
		out[strconv.Itoa(b.Level)] = BracketEntry{Max: b.Max}
	}
	return out
}

// Level returns the first bracket whose Max is at least delta. A delta above
// every Max saturates at the top level; that is policy, not an error.
func Level(delta int, table BracketTable) (int, error) {
	if len(table.brackets) == 0 {
		return 0, configErrorf("bracket table is empty")
	}
	i := sort.Search(len(table.brackets), func(i int) bool { return table.brackets[i].Max >= delta })
	if i == len(table.brackets) {
		return table.TopLevel(), nil
	}
	return table.brackets[i].Level, nil
}
