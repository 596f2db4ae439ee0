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
	"regexp"
	"strings"
)

var ErrBadPattern = errors.New("invalid pattern")

// PatternError is returned when a list pattern cannot be compiled into a
// regular expression.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrBadPattern, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

func (e *PatternError) Is(target error) bool {
	return target == ErrBadPattern
}

// pattern is a compiled list wildcard.
type pattern struct {
	raw string
	re  *regexp.Regexp
}

// wildcardToRegexp converts a list wildcard to a regular expression by
// replacing every '*' with '.*'. Other regexp metacharacters are left as-is,
// so list entries may carry regular expression syntax.
func wildcardToRegexp(p string) string {
	return strings.ReplaceAll(p, "*", ".*")
}

func compilePattern(p string) (pattern, error) {
	if len(p) == 0 {
		return pattern{}, &PatternError{Pattern: p, Err: errors.New("pattern is empty")}
	}
	re, err := regexp.Compile(wildcardToRegexp(p))
	if err != nil {
		return pattern{}, &PatternError{Pattern: p, Err: err}
	}
	return pattern{raw: p, re: re}, nil
}

// compileFoldPattern is compilePattern with case-insensitive matching.
func compileFoldPattern(p string) (pattern, error) {
	if len(p) == 0 {
		return pattern{}, &PatternError{Pattern: p, Err: errors.New("pattern is empty")}
	}
	re, err := regexp.Compile("(?i)" + wildcardToRegexp(p))
	if err != nil {
		return pattern{}, &PatternError{Pattern: p, Err: err}
	}
	return pattern{raw: p, re: re}, nil
}

// Match reports whether s contains a substring matching the pattern.
func (p pattern) Match(s string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(s)
}

func (p pattern) String() string {
	return p.raw
}

// MatchWildcard compiles pat and reports whether s contains a substring
// matching it.
func MatchWildcard(pat, s string) (bool, error) {
	p, err := compilePattern(pat)
	if err != nil {
		return false, err
	}
	return p.Match(s), nil
}
