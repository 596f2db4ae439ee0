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

package message

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/foxcpp/maddy/framework/dns"
	"github.com/sblinch/maddy-wlbl/internal/check/wlbl"
	"golang.org/x/sync/errgroup"
)

const (
	hdrRelaysTrusted   = "X-Spam-Relays-Trusted"
	hdrRelaysUntrusted = "X-Spam-Relays-Untrusted"
)

// maximum number of PTR lookups in flight for one message
const rdnsConcurrency = 4

// relayGroup matches one "[ ip=... rdns=... helo=... ]" relay description.
var relayGroup = regexp.MustCompile(`\[([^\[\]]*)\]`)

func parseRelayFields(s string) map[string]string {
	fields := make(map[string]string)
	for _, f := range strings.Fields(s) {
		eq := strings.IndexByte(f, '=')
		if eq <= 0 {
			continue
		}
		fields[strings.ToLower(f[:eq])] = f[eq+1:]
	}
	return fields
}

// parseRelays reads relay descriptions in the X-Spam-Relays-* format, nearest
// relay first. Descriptions without a valid ip field are skipped.
func parseRelays(values []string, trusted bool) []wlbl.Relay {
	var relays []wlbl.Relay
	for _, v := range values {
		for _, group := range relayGroup.FindAllStringSubmatch(v, -1) {
			fields := parseRelayFields(group[1])
			ip := net.ParseIP(fields["ip"])
			if ip == nil {
				continue
			}
			relays = append(relays, wlbl.Relay{
				IP:      ip,
				RDNS:    strings.TrimSuffix(strings.ToLower(fields["rdns"]), "."),
				Trusted: trusted,
			})
		}
	}
	return relays
}

func lookupRDNS(ctx context.Context, resolver dns.Resolver, ip net.IP) (string, error) {
	names, err := resolver.LookupAddr(ctx, ip.String())
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return "", nil
		}
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return strings.TrimSuffix(strings.ToLower(names[0]), "."), nil
}

// ResolveRDNS looks up the reverse DNS name of every relay that does not
// have one yet. Relays without a PTR record are left alone; any other lookup
// error is returned after the remaining lookups are cancelled.
func (m *Message) ResolveRDNS(ctx context.Context, resolver dns.Resolver) error {
	var pending []*wlbl.Relay
	for _, chain := range [][]wlbl.Relay{m.untrusted, m.trusted} {
		for i := range chain {
			if chain[i].RDNS == "" && chain[i].IP != nil {
				pending = append(pending, &chain[i])
			}
		}
	}
	if len(pending) == 0 {
		return nil
	}

	workers := rdnsConcurrency
	if workers > len(pending) {
		workers = len(pending)
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan *wlbl.Relay)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for r := range jobs {
				name, err := lookupRDNS(ctx, resolver, r.IP)
				if err != nil {
					return err
				}
				r.RDNS = name
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, r := range pending {
			select {
			case jobs <- r:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}
