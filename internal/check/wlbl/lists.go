/*
Maddy Mail Server - Composable all-in-one email server.
Copyright 2021, Steve Blinch <dev@blinch.ca>, Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package wlbl

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedEntry = errors.New("malformed list entry")

// FlatTable maps address patterns to the values listed for them (domains,
// networks or rDNS fragments). Pattern order and value order follow the order
// of the configuration lines. A FlatTable is never modified after parseList
// returns it.
type FlatTable struct {
	order    []string
	compiled map[string]pattern
	values   map[string][]string
}

func newFlatTable() *FlatTable {
	return &FlatTable{
		compiled: make(map[string]pattern),
		values:   make(map[string][]string),
	}
}

// Len returns the number of distinct patterns.
func (t *FlatTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Patterns returns a copy of the patterns in insertion order.
func (t *FlatTable) Patterns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Values returns a copy of the values listed for the pattern.
func (t *FlatTable) Values(pat string) []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.values[pat]...)
}

// Equal compares two tables pattern by pattern, including value order.
func (t *FlatTable) Equal(other *FlatTable) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t.Len() == 0 {
		return true
	}
	for i, p := range t.order {
		if other.order[i] != p {
			return false
		}
		a, b := t.values[p], other.values[p]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// each calls fn for every compiled pattern in insertion order until fn
// returns false.
func (t *FlatTable) each(fn func(p pattern, values []string) bool) {
	if t == nil {
		return
	}
	for _, raw := range t.order {
		if !fn(t.compiled[raw], t.values[raw]) {
			return
		}
	}
}

func (t *FlatTable) add(pat, value string) error {
	if _, ok := t.compiled[pat]; !ok {
		p, err := compilePattern(pat)
		if err != nil {
			return err
		}
		t.compiled[pat] = p
		t.order = append(t.order, pat)
	}
	t.values[pat] = append(t.values[pat], value)
	return nil
}

func (t *FlatTable) addLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return fmt.Errorf("%w: %q: expected 2 fields, got %d", ErrMalformedEntry, line, len(fields))
	}
	return t.add(fields[0], fields[1])
}

// parseList compiles "pattern value" lines into a FlatTable. Any line that
// does not have exactly two fields fails the whole list.
func parseList(lines []string) (*FlatTable, error) {
	t := newFlatTable()
	for _, line := range lines {
		if err := t.addLine(line); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// PatternList is an ordered set of case-insensitive address patterns.
type PatternList struct {
	patterns []pattern
}

func (l *PatternList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.patterns)
}

// Match reports whether any pattern matches s.
func (l *PatternList) Match(s string) (string, bool) {
	if l == nil {
		return "", false
	}
	for _, p := range l.patterns {
		if p.Match(s) {
			return p.raw, true
		}
	}
	return "", false
}

// parsePatternList compiles lines of whitespace-separated address patterns,
// as used by whitelist_allow_relays.
func parsePatternList(lines []string) (*PatternList, error) {
	l := &PatternList{}
	seen := make(map[string]struct{})
	for _, line := range lines {
		for _, f := range strings.Fields(line) {
			folded := strings.ToLower(f)
			if _, ok := seen[folded]; ok {
				continue
			}
			p, err := compileFoldPattern(f)
			if err != nil {
				return nil, err
			}
			seen[folded] = struct{}{}
			l.patterns = append(l.patterns, p)
		}
	}
	return l, nil
}
