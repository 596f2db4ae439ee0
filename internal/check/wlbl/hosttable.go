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
	"fmt"
	"sort"
	"strings"
)

// Reserved host table keys.
const (
	KeyAll   = "ALL"
	KeyWhite = "WHITE"
	KeyBlack = "BLACK"
)

type stringSet map[string]struct{}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s stringSet) equal(other stringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.has(v) {
			return false
		}
	}
	return true
}

// splitKeyed splits a URI host list line into its category key and host
// tokens. Both "(KEY) tok tok" and "(KEY tok tok)" are accepted; a line
// without parentheses is filed under KeyAll.
func splitKeyed(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "(") {
		return KeyAll, strings.Fields(line), nil
	}

	end := strings.IndexByte(line, ')')
	if end == -1 {
		return "", nil, fmt.Errorf("%w: %q: unterminated key", ErrMalformedEntry, line)
	}
	inner := strings.Fields(line[1:end])
	if len(inner) == 0 {
		return "", nil, fmt.Errorf("%w: %q: empty key", ErrMalformedEntry, line)
	}

	tokens := append(inner[1:], strings.Fields(line[end+1:])...)
	return inner[0], tokens, nil
}

// DelistTable holds URI hosts that must never be compiled into a HostTable,
// per category key.
type DelistTable struct {
	keys map[string]stringSet
}

// Has reports whether tok is delisted for key, either directly or under
// KeyAll.
func (d *DelistTable) Has(key, tok string) bool {
	if d == nil {
		return false
	}
	return d.keys[key].has(tok) || d.keys[KeyAll].has(tok)
}

func parseDelist(lines []string) (*DelistTable, error) {
	d := &DelistTable{keys: make(map[string]stringSet)}
	for _, line := range lines {
		key, tokens, err := splitKeyed(line)
		if err != nil {
			return nil, err
		}
		set := d.keys[key]
		if set == nil {
			set = make(stringSet)
			d.keys[key] = set
		}
		for _, tok := range tokens {
			set[strings.ToLower(tok)] = struct{}{}
		}
	}
	return d, nil
}

// HostSet is the compiled form of one host table category. Included entries
// carry a leading dot so that they only match on a label boundary.
type HostSet struct {
	included stringSet
	excluded stringSet
}

func newHostSet() *HostSet {
	return &HostSet{included: make(stringSet), excluded: make(stringSet)}
}

// Included returns the included suffixes, sorted.
func (s *HostSet) Included() []string {
	if s == nil {
		return nil
	}
	return s.included.sorted()
}

// Excluded returns the excluded hosts, sorted.
func (s *HostSet) Excluded() []string {
	if s == nil {
		return nil
	}
	return s.excluded.sorted()
}

func (s *HostSet) isExcluded(host string) bool {
	return s != nil && s.excluded.has(host)
}

// matchSuffix reports whether host equals or is a subdomain of one of the
// included entries. It walks the label boundaries of host instead of
// scanning the set.
func (s *HostSet) matchSuffix(host string) (string, bool) {
	if s == nil || len(s.included) == 0 || host == "" {
		return "", false
	}
	dotted := "." + host
	for i := 0; i < len(dotted); i++ {
		if dotted[i] != '.' {
			continue
		}
		if s.included.has(dotted[i:]) {
			return dotted[i:], true
		}
	}
	return "", false
}

func (s *HostSet) add(tok string) {
	if strings.HasPrefix(tok, "!") {
		if bare := strings.TrimLeft(tok, "!"); bare != "" {
			s.excluded[bare] = struct{}{}
		}
		return
	}
	s.included["."+tok] = struct{}{}
}

// HostTable maps category keys to compiled host sets.
type HostTable struct {
	sets map[string]*HostSet
}

// Set returns the host set for key or nil if nothing was listed under it.
func (t *HostTable) Set(key string) *HostSet {
	if t == nil {
		return nil
	}
	return t.sets[key]
}

// Keys returns the category keys, sorted.
func (t *HostTable) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.sets))
	for k := range t.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares two tables; included and excluded sets are compared
// without regard to order.
func (t *HostTable) Equal(other *HostTable) bool {
	if t == nil || other == nil {
		return len(t.Keys()) == len(other.Keys())
	}
	if len(t.sets) != len(other.sets) {
		return false
	}
	for k, a := range t.sets {
		b, ok := other.sets[k]
		if !ok {
			return false
		}
		if !a.included.equal(b.included) || !a.excluded.equal(b.excluded) {
			return false
		}
	}
	return true
}

func (t *HostTable) addTokens(key string, tokens []string, delist *DelistTable) {
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if delist.Has(key, tok) {
			continue
		}
		set := t.sets[key]
		if set == nil {
			set = newHostSet()
			t.sets[key] = set
		}
		set.add(tok)
	}
}

// parseHostTable compiles enlist_uri_host lines, then merges the unkeyed
// whitelist and blacklist shorthand lines into KeyWhite and KeyBlack. Tokens
// present in delist under the same key or KeyAll are dropped.
func parseHostTable(enlist, white, black []string, delist *DelistTable) (*HostTable, error) {
	t := &HostTable{sets: make(map[string]*HostSet)}
	for _, line := range enlist {
		key, tokens, err := splitKeyed(line)
		if err != nil {
			return nil, err
		}
		t.addTokens(key, tokens, delist)
	}
	for _, line := range white {
		t.addTokens(KeyWhite, strings.Fields(line), delist)
	}
	for _, line := range black {
		t.addTokens(KeyBlack, strings.Fields(line), delist)
	}
	return t, nil
}
