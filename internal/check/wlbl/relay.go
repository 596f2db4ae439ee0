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
	"net"
	"strconv"
	"strings"

	"github.com/foxcpp/maddy/framework/address"
	"github.com/miekg/dns"
)

const (
	rcvdMatchReverseIP = "reverse_ip"
	rcvdMatchRDNS      = "rdns"
)

// selectRelays picks the relays that may vouch for the sender: the first
// untrusted relay if there is one, otherwise every trusted relay.
func selectRelays(msg Message) []Relay {
	if untrusted := msg.UntrustedRelays(); len(untrusted) > 0 {
		return untrusted[:1]
	}
	if trusted := msg.TrustedRelays(); len(trusted) > 0 {
		return trusted
	}
	return nil
}

// reverseName returns the PTR query name for ip, e.g.
// 5.113.0.203.in-addr.arpa. for 203.0.113.5.
func reverseName(ip net.IP) (string, error) {
	return dns.ReverseAddr(ip.String())
}

// reverseDomain returns the PTR name of ip without the in-addr.arpa (or
// ip6.arpa) suffix, so 203.0.113.5 becomes 5.113.0.203.
func reverseDomain(ip net.IP) (string, bool) {
	if ip == nil {
		return "", false
	}
	arpa, err := reverseName(ip)
	if err != nil {
		return "", false
	}
	labels := dns.SplitDomainName(arpa)
	if len(labels) <= 2 {
		return "", false
	}
	return strings.Join(labels[:len(labels)-2], "."), true
}

// senderDomain extracts the domain part of addr. Address literals lose their
// brackets so that [203.0.113.5] reduces like 203.0.113.5.
func senderDomain(addr string) (string, bool) {
	_, domain, err := address.Split(addr)
	if err != nil || domain == "" {
		return "", false
	}
	domain = strings.TrimSuffix(strings.TrimPrefix(domain, "["), "]")
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if domain == "" {
		return "", false
	}
	return domain, true
}

// mailfromMatchesRcvd reports whether the sender domain is confirmed by one of
// the selected relays.
func (c *Check) mailfromMatchesRcvd(sender string, relays []Relay) bool {
	domain, ok := senderDomain(sender)
	if !ok || len(relays) == 0 {
		return false
	}
	base := c.baseDomain(domain)

	for _, relay := range relays {
		var relayDomain string
		switch c.rcvdMatch {
		case rcvdMatchRDNS:
			rdns := strings.TrimSuffix(strings.ToLower(relay.RDNS), ".")
			if rdns == "" {
				continue
			}
			relayDomain = c.baseDomain(rdns)
		default:
			rev, ok := reverseDomain(relay.IP)
			if !ok {
				continue
			}
			relayDomain = rev
		}
		if relayDomain == base {
			return true
		}
	}
	return false
}

// parseRelayNetwork interprets a whitelist_from_rcvd value as a network. It
// accepts CIDR notation, single addresses and dotted IPv4 prefixes such as
// "10.1.", optionally wrapped in brackets.
func parseRelayNetwork(value string) (*net.IPNet, bool) {
	v := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	if v == "" {
		return nil, false
	}

	if _, network, err := net.ParseCIDR(v); err == nil {
		return network, true
	}

	if ip := net.ParseIP(v); ip != nil {
		bits := 8 * net.IPv6len
		if ip4 := ip.To4(); ip4 != nil {
			ip = ip4
			bits = 8 * net.IPv4len
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, true
	}

	if !strings.Contains(v, ".") {
		return nil, false
	}
	octets := strings.Split(strings.TrimSuffix(v, "."), ".")
	if len(octets) > 3 {
		return nil, false
	}
	ip := make(net.IP, net.IPv4len)
	for i, o := range octets {
		if !isNumeric(o) {
			return nil, false
		}
		n, err := strconv.Atoi(o)
		if err != nil || n > 255 {
			return nil, false
		}
		ip[i] = byte(n)
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(8*len(octets), 8*net.IPv4len)}, true
}

// relayCorroborates reports whether one of the relays is inside the network
// described by value or, if value is not a network, has an rDNS name
// containing it.
func relayCorroborates(value string, relays []Relay) bool {
	network, isNet := parseRelayNetwork(value)
	fragment := strings.ToLower(value)
	for _, relay := range relays {
		if isNet {
			if relay.IP != nil && network.Contains(relay.IP) {
				return true
			}
			continue
		}
		if relay.RDNS != "" && strings.Contains(strings.ToLower(relay.RDNS), fragment) {
			return true
		}
	}
	return false
}

// checkWhitelistRcvd checks addr against a "pattern relay" table. A matching
// pattern with a corroborating relay yields Trusted, a matching pattern
// without one yields Forged, and no matching pattern yields Unknown. Without
// relays nothing can be proven either way and the result is Unknown.
func checkWhitelistRcvd(table *FlatTable, addr string, relays []Relay) Verdict {
	if len(relays) == 0 {
		return Unknown
	}
	addr = strings.ToLower(addr)

	verdict := Unknown
	table.each(func(p pattern, values []string) bool {
		if !p.Match(addr) {
			return true
		}
		for _, value := range values {
			if relayCorroborates(value, relays) {
				verdict = Trusted
				return false
			}
		}
		verdict = Forged
		return true
	})
	return verdict
}
