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

var (
	fromHeaders = []string{"From", "Envelope-Sender", "Resent-From", "X-Envelope-From", "EnvelopeFrom"}
	toHeaders   = []string{"To", "Resent-To", "Resent-Cc", "Apparently-To", "Delivered-To",
		"Envelope-Recipients", "Apparently-Resent-To", "X-Envelope-To", "Envelope-To",
		"X-Delivered-To", "X-Original-To", "X-Rcpt-To", "X-Real-To", "Cc"}
)

// fromAddresses returns Resent-From addresses if there are any, otherwise the
// addresses of all sender headers.
func fromAddresses(msg Message) []string {
	if addrs := msg.Addresses("Resent-From"); len(addrs) != 0 {
		return addrs
	}
	var addrs []string
	for _, h := range fromHeaders {
		addrs = append(addrs, msg.Addresses(h)...)
	}
	return addrs
}

// toAddresses returns Resent-To and Resent-Cc addresses if there are any,
// otherwise the addresses of all recipient headers.
func toAddresses(msg Message) []string {
	addrs := append([]string(nil), msg.Addresses("Resent-To")...)
	addrs = append(addrs, msg.Addresses("Resent-Cc")...)
	if len(addrs) != 0 {
		return addrs
	}
	for _, h := range toHeaders {
		addrs = append(addrs, msg.Addresses(h)...)
	}
	return addrs
}

// matchAny reports whether any pattern of table matches any of the
// addresses. Addresses are tried in order, patterns in insertion order.
func matchAny(addresses []string, table *FlatTable) (string, string, bool) {
	var matchedPat, matchedAddr string
	for _, addr := range addresses {
		table.each(func(p pattern, _ []string) bool {
			if p.Match(addr) {
				matchedPat, matchedAddr = p.raw, addr
				return false
			}
			return true
		})
		if matchedPat != "" {
			return matchedPat, matchedAddr, true
		}
	}
	return "", "", false
}
