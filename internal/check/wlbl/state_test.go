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
	"testing"

	"github.com/foxcpp/maddy/framework/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestParseCheckID(t *testing.T) {
	tests := []struct {
		name    string
		want    CheckID
		wantErr bool
	}{
		{"check_from_in_whitelist", CheckFromInWhitelist, false},
		{"from_in_whitelist", CheckFromInWhitelist, false},
		{"check_uri_host_in_blacklist", CheckURIHostInBlacklist, false},
		{"forged_in_default_whitelist", CheckForgedInDefaultWhitelist, false},
		{"check_from_in_greylist", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCheckID(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCheckID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCheck) {
					t.Errorf("ParseCheckID() error = %v, want ErrUnknownCheck", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseCheckID() = %v, want %v", got, tt.want)
			}
		})
	}

	for id := CheckID(0); id < numChecks; id++ {
		got, err := ParseCheckID(id.String())
		if err != nil || got != id {
			t.Errorf("ParseCheckID(%q) = %v, %v", id.String(), got, err)
		}
		if checkFuncs[id] == nil {
			t.Errorf("%v has no implementation", id)
		}
	}
	if !CheckFromInList.TakesList() || CheckFromInWhitelist.TakesList() {
		t.Error("TakesList() is wrong")
	}
	if CheckForgedInDefaultWhitelist.VerdictName() != VerdictFromInDefaultWhitelist || CheckToInWhitelist.VerdictName() != "" {
		t.Error("VerdictName() is wrong")
	}
}

func TestState_Run_OutOfRange(t *testing.T) {
	s := newTestCheck(t).StateForMsg("", &mockMsg{})
	if s.Run(numChecks, "") || s.Run(-1, "") {
		t.Error("out of range check id fired")
	}
}

func TestState_AddressLists(t *testing.T) {
	c := newTestCheck(t,
		line("whitelist_to *@example.org x"),
		line("blacklist_from *@spammer.example x"),
		line("blacklist_to trap@example.org x"),
		line("all_spam_to abuse@example.org x"),
		line("more_spam_to *@lists.example.org x"),
	)

	tests := []struct {
		name    string
		headers map[string][]string
		id      CheckID
		arg     string
		want    bool
	}{
		{"to-whitelist", map[string][]string{"To": {"joe@example.org"}}, CheckToInWhitelist, "", true},
		{"to-whitelist-cc", map[string][]string{"Cc": {"joe@example.org"}}, CheckToInWhitelist, "", true},
		{"to-whitelist-miss", map[string][]string{"To": {"joe@example.com"}}, CheckToInWhitelist, "", false},
		{"from-blacklist", map[string][]string{"From": {"bulk@spammer.example"}}, CheckFromInBlacklist, "", true},
		{"from-blacklist-envelope", map[string][]string{"X-Envelope-From": {"bulk@spammer.example"}}, CheckFromInBlacklist, "", true},
		{"to-blacklist", map[string][]string{"Delivered-To": {"trap@example.org"}}, CheckToInBlacklist, "", true},
		{"all-spam", map[string][]string{"To": {"abuse@example.org"}}, CheckToInAllSpam, "", true},
		{"more-spam", map[string][]string{"X-Original-To": {"dev@lists.example.org"}}, CheckToInMoreSpam, "", true},
		{"more-spam-miss", map[string][]string{"To": {"dev@example.org"}}, CheckToInMoreSpam, "", false},
		{"from-in-list", map[string][]string{"From": {"bulk@spammer.example"}}, CheckFromInList, ListBlacklistFrom, true},
		{"from-in-list-unknown", map[string][]string{"From": {"bulk@spammer.example"}}, CheckFromInList, "greylist_from", false},
		{"from-in-list-empty", map[string][]string{"From": {"bulk@spammer.example"}}, CheckFromInList, "", false},
		{"to-in-list", map[string][]string{"To": {"trap@example.org"}}, CheckToInList, ListBlacklistTo, true},

		// Resent-* headers hide the original ones.
		{"resent-from", map[string][]string{
			"From":        {"bulk@spammer.example"},
			"Resent-From": {"joe@example.com"},
		}, CheckFromInBlacklist, "", false},
		{"resent-to", map[string][]string{
			"To":        {"joe@example.com"},
			"Resent-Cc": {"joe@example.org"},
		}, CheckToInWhitelist, "", true},
		{"resent-to-hides", map[string][]string{
			"To":        {"joe@example.org"},
			"Resent-To": {"joe@example.com"},
		}, CheckToInWhitelist, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := c.StateForMsg("", &mockMsg{headers: tt.headers})
			defer s.Close()
			if got := s.Run(tt.id, tt.arg); got != tt.want {
				t.Errorf("Run(%v, %q) = %v, want %v", tt.id, tt.arg, got, tt.want)
			}
		})
	}
}

func TestState_MailfromMatchesRcvd(t *testing.T) {
	c := newTestCheck(t)
	msg := &mockMsg{
		sender:    "joe@[203.0.113.5]",
		untrusted: []Relay{relay("203.0.113.5", "")},
	}
	if !c.StateForMsg("", msg).Run(CheckMailfromMatchesRcvd, "") {
		t.Error("literal sender did not match its relay")
	}
	if c.StateForMsg("", &mockMsg{untrusted: msg.untrusted}).Run(CheckMailfromMatchesRcvd, "") {
		t.Error("empty sender matched")
	}
}

func TestState_SenderVerdicts(t *testing.T) {
	c := newTestCheck(t,
		line("whitelist_from *@example.org example.org"),
		block("whitelist_from_rcvd", "joe@example.com 203.0.113.0/24", "news@example.com 198.51.100.0/24"),
		line("def_whitelist_from_rcvd *@bigcorp.example bigcorp.example"),
		line("whitelist_allow_relays news@example.com"),
	)

	good := []Relay{relay("203.0.113.5", "")}
	bad := []Relay{relay("192.0.2.66", "spam.example")}
	corp := []Relay{relay("192.0.2.10", "mx1.bigcorp.example")}

	tests := []struct {
		name          string
		from          string
		sender        string
		relays        []Relay
		trusted       []Relay
		wantWL        Verdict
		wantDefWL     Verdict
		wantForged    bool
		wantDefForged bool
	}{
		{"direct", "alice@example.org", "", nil, nil, Trusted, Unknown, false, false},
		{"direct-sender-ignored", "", "alice@example.org", nil, nil, Unknown, Unknown, false, false},
		{"rcvd-confirmed", "", "joe@example.com", good, nil, Trusted, Unknown, false, false},
		{"rcvd-confirmed-other-from", "mallory@other.example", "joe@example.com", good, nil, Trusted, Unknown, false, false},
		{"rcvd-sender-case", "", "Joe@Example.COM", good, nil, Trusted, Unknown, false, false},
		{"rcvd-trusted-relays", "", "joe@example.com", nil, good, Trusted, Unknown, false, false},
		{"rcvd-forged", "", "joe@example.com", bad, nil, Forged, Unknown, true, false},
		{"rcvd-no-relays", "", "joe@example.com", nil, nil, Unknown, Unknown, false, false},
		{"rcvd-from-listed-sender-not", "joe@example.com", "bounce@other.example", bad, nil, Unknown, Unknown, false, false},
		{"rcvd-no-sender", "joe@example.com", "", bad, nil, Unknown, Unknown, false, false},
		{"allow-relays", "", "news@example.com", bad, nil, Unknown, Unknown, false, false},
		{"not-listed", "", "bob@example.net", bad, nil, Unknown, Unknown, false, false},
		{"default-confirmed", "", "ceo@bigcorp.example", corp, nil, Unknown, Trusted, false, false},
		{"default-forged", "", "ceo@bigcorp.example", bad, nil, Unknown, Forged, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &mockMsg{
				headers:   map[string][]string{},
				sender:    tt.sender,
				untrusted: tt.relays,
				trusted:   tt.trusted,
			}
			if tt.from != "" {
				msg.headers["From"] = []string{tt.from}
			}
			s := c.StateForMsg("test-msg", msg)
			defer s.Close()

			if got := s.Run(CheckFromInWhitelist, ""); got != (tt.wantWL == Trusted) {
				t.Errorf("from_in_whitelist = %v", got)
			}
			if got := s.Run(CheckFromInDefaultWhitelist, ""); got != (tt.wantDefWL == Trusted) {
				t.Errorf("from_in_default_whitelist = %v", got)
			}
			if got := s.Run(CheckForgedInWhitelist, ""); got != tt.wantForged {
				t.Errorf("forged_in_whitelist = %v, want %v", got, tt.wantForged)
			}
			if got := s.Run(CheckForgedInDefaultWhitelist, ""); got != tt.wantDefForged {
				t.Errorf("forged_in_default_whitelist = %v, want %v", got, tt.wantDefForged)
			}

			if v, ok := s.Verdict(VerdictFromInWhitelist); !ok || v != tt.wantWL {
				t.Errorf("whitelist verdict = %v, %v; want %v", v, ok, tt.wantWL)
			}
			if v, ok := s.Verdict(VerdictFromInDefaultWhitelist); !ok || v != tt.wantDefWL {
				t.Errorf("default whitelist verdict = %v, %v; want %v", v, ok, tt.wantDefWL)
			}
		})
	}
}

func TestState_VerdictMemoized(t *testing.T) {
	c := newTestCheck(t,
		line("whitelist_from_rcvd joe@example.com 203.0.113.0/24"),
	)
	msg := &mockMsg{
		sender:    "joe@example.com",
		untrusted: []Relay{relay("192.0.2.66", "")},
	}
	s := c.StateForMsg("", msg)

	for i := 0; i < 3; i++ {
		if s.Run(CheckFromInWhitelist, "") {
			t.Fatal("forged sender reported as whitelisted")
		}
		if !s.Run(CheckForgedInWhitelist, "") {
			t.Fatal("forged sender not reported")
		}
	}
	if msg.relayCalls != 1 {
		t.Errorf("relay chain consulted %d times, want 1", msg.relayCalls)
	}

	// A new message starts from scratch.
	c.StateForMsg("", msg).Run(CheckFromInWhitelist, "")
	if msg.relayCalls != 2 {
		t.Errorf("relay chain consulted %d times after a new message, want 2", msg.relayCalls)
	}
}

func TestState_VerdictMetrics(t *testing.T) {
	c := newTestCheck(t,
		line("whitelist_from_rcvd joe@example.com 203.0.113.0/24"),
	)
	c.instName = "metrics-test"
	counter := verdictsTotal.WithLabelValues("metrics-test", VerdictFromInWhitelist, Forged.String())
	before := testutil.ToFloat64(counter)

	msg := &mockMsg{
		sender:    "joe@example.com",
		untrusted: []Relay{relay("192.0.2.66", "")},
	}
	s := c.StateForMsg("", msg)
	s.Run(CheckFromInWhitelist, "")
	s.Run(CheckForgedInWhitelist, "")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("forged verdicts counted %v times, want 1", got)
	}
}

func TestState_URIHosts(t *testing.T) {
	children := []config.Node{
		line("enlist_uri_host (shop) example.com other.com !cdn.other.com"),
		line("delist_uri_host (shop) example.com"),
		line("whitelist_uri_host trusted.example"),
		line("blacklist_uri_host evil.example"),
	}
	compat := newTestCheck(t, children...)
	strict := newTestCheck(t, append(children, line("uri_host_strict yes"))...)

	tests := []struct {
		name       string
		hosts      []string
		id         CheckID
		key        string
		wantCompat bool
		wantStrict bool
	}{
		{"hit", []string{"www.other.com"}, CheckURIHostListed, "shop", true, true},
		{"hit-case", []string{"WWW.Other.COM."}, CheckURIHostListed, "shop", true, true},
		{"delisted", []string{"example.com"}, CheckURIHostListed, "shop", true, false},
		{"excluded", []string{"cdn.other.com"}, CheckURIHostListed, "shop", true, false},
		{"excluded-then-hit", []string{"cdn.other.com", "other.com"}, CheckURIHostListed, "shop", true, true},
		{"label-boundary", []string{"notother.com"}, CheckURIHostListed, "shop", true, false},
		{"unknown-key", []string{"other.com"}, CheckURIHostListed, "news", true, false},
		{"empty-key", []string{"other.com"}, CheckURIHostListed, "", false, false},
		{"no-hosts", nil, CheckURIHostListed, "shop", true, false},
		{"whitelist", []string{"a.trusted.example"}, CheckURIHostInWhitelist, "", true, true},
		{"blacklist", []string{"evil.example"}, CheckURIHostInBlacklist, "", true, true},
		{"blacklist-miss", []string{"good.example"}, CheckURIHostInBlacklist, "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &mockMsg{uriHosts: tt.hosts}
			if got := compat.StateForMsg("", msg).Run(tt.id, tt.key); got != tt.wantCompat {
				t.Errorf("compatible mode = %v, want %v", got, tt.wantCompat)
			}
			if got := strict.StateForMsg("", msg).Run(tt.id, tt.key); got != tt.wantStrict {
				t.Errorf("strict mode = %v, want %v", got, tt.wantStrict)
			}
		})
	}
}

func TestState_URIHostMetrics(t *testing.T) {
	c := newTestCheck(t, line("blacklist_uri_host evil.example"), line("uri_host_strict"))
	c.instName = "uri-metrics-test"
	counter := uriHostHits.WithLabelValues("uri-metrics-test", KeyBlack)
	before := testutil.ToFloat64(counter)

	s := c.StateForMsg("", &mockMsg{uriHosts: []string{"www.evil.example"}})
	s.Run(CheckURIHostInBlacklist, "")
	s.Run(CheckURIHostListed, KeyBlack)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("uri host hits counted %v times, want 1", got)
	}
}
