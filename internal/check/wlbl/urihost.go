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

import "strings"

// matchURIHosts looks the hosts up in one host table category. Excluded
// hosts are skipped. If no host matches, the result is false in strict mode
// and true otherwise, which is how the rule behaved historically.
func (c *Check) matchURIHosts(set *HostSet, hosts []string) (string, bool) {
	for _, host := range hosts {
		host = strings.TrimSuffix(strings.ToLower(host), ".")
		if host == "" || set.isExcluded(host) {
			continue
		}
		if _, ok := set.matchSuffix(host); ok {
			return host, true
		}
	}
	return "", !c.uriHostStrict
}

func (s *State) uriHostListed(key string) bool {
	if key == "" {
		return false
	}
	memoKey := "uri_host_listed:" + key
	if listed, ok := s.listed[memoKey]; ok {
		return listed
	}

	host, listed := s.c.matchURIHosts(s.c.hosts.Set(key), s.msg.URIHosts())
	if host != "" {
		s.log.DebugMsg("uri host listed", "key", key, "host", host)
		uriHostHits.WithLabelValues(s.c.instName, key).Inc()
	} else if listed {
		s.log.DebugMsg("no uri host matched, reporting listed (uri_host_strict is off)", "key", key)
	}

	s.listed[memoKey] = listed
	return listed
}

func (s *State) uriHostInWhitelist(string) bool {
	return s.uriHostListed(KeyWhite)
}

func (s *State) uriHostInBlacklist(string) bool {
	return s.uriHostListed(KeyBlack)
}
