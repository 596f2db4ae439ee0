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
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

const (
	baseDomainHeuristic = "heuristic"
	baseDomainPSL       = "psl"
)

// multiLabelSuffixes is a small set of registry suffixes spanning more than
// one label. "base_domain psl" uses the full public suffix list instead.
var multiLabelSuffixes = map[string]struct{}{
	"co.uk":  {},
	"org.uk": {},
	"ac.uk":  {},
	"gov.uk": {},
	"me.uk":  {},
	"ltd.uk": {},
	"plc.uk": {},
	"net.uk": {},
	"com.au": {},
	"net.au": {},
	"org.au": {},
	"edu.au": {},
	"co.nz":  {},
	"org.nz": {},
	"co.jp":  {},
	"ne.jp":  {},
	"or.jp":  {},
	"co.za":  {},
	"com.br": {},
	"com.cn": {},
	"com.mx": {},
	"com.tr": {},
	"co.in":  {},
	"co.kr":  {},

	"act.edu.au": {},
	"nsw.edu.au": {},
	"k12.ca.us":  {},
}

func isNumeric(label string) bool {
	if len(label) == 0 {
		return false
	}
	for i := 0; i < len(label); i++ {
		if label[i] < '0' || label[i] > '9' {
			return false
		}
	}
	return true
}

// BaseDomain reduces a host name to the part that list entries and RBL
// queries refer to.
//
// Names with fewer than three labels are returned unchanged. Dotted-quad
// literals are returned with reversed octets (10.20.30.40 -> 40.30.20.10).
// Otherwise the last two labels are returned, or more when the name ends in
// a known multi-label suffix.
func BaseDomain(domain string) string {
	labels := strings.Split(domain, ".")
	if len(labels) < 3 {
		return domain
	}

	allNumeric := true
	for _, l := range labels {
		if !isNumeric(l) {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
			labels[i], labels[j] = labels[j], labels[i]
		}
		return strings.Join(labels, ".")
	}

	n := len(labels)
	if n >= 4 {
		if _, ok := multiLabelSuffixes[strings.Join(labels[n-3:], ".")]; ok {
			return strings.Join(labels[n-4:], ".")
		}
	}
	if _, ok := multiLabelSuffixes[strings.Join(labels[n-2:], ".")]; ok {
		return strings.Join(labels[n-3:], ".")
	}
	return strings.Join(labels[n-2:], ".")
}

// pslBaseDomain uses the public suffix list to find the registrable domain
// and falls back to BaseDomain if the list does not know the name.
func pslBaseDomain(domain string) string {
	if allNumericLabels(domain) {
		return BaseDomain(domain)
	}
	base, err := publicsuffix.Domain(domain)
	if err != nil || base == "" {
		return BaseDomain(domain)
	}
	return base
}

func allNumericLabels(domain string) bool {
	for _, l := range strings.Split(domain, ".") {
		if !isNumeric(l) {
			return false
		}
	}
	return true
}
