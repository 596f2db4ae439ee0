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

import "net"

// Relay is one hop of the message transmission chain. RDNS is the
// already-resolved reverse DNS name of IP, or empty.
type Relay struct {
	IP      net.IP
	RDNS    string
	Trusted bool
}

// Message is what the host pipeline exposes about the message being
// evaluated. Implementations must return the same data for the whole
// evaluation of one message.
type Message interface {
	// Addresses returns the decoded addresses found in all fields with the
	// given header name.
	Addresses(header string) []string

	// SenderAddress returns the envelope sender or an empty string.
	SenderAddress() string

	// UntrustedRelays returns the untrusted part of the relay chain, nearest
	// relay first.
	UntrustedRelays() []Relay

	// TrustedRelays returns the trusted part of the relay chain.
	TrustedRelays() []Relay

	// URIHosts returns host names of URIs found in the message.
	URIHosts() []string
}

// Verdict is the tri-state result of relay-aware checks.
type Verdict int

const (
	Forged  Verdict = -1
	Unknown Verdict = 0
	Trusted Verdict = 1
)

func (v Verdict) String() string {
	switch v {
	case Trusted:
		return "trusted"
	case Forged:
		return "forged"
	default:
		return "unknown"
	}
}
