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
	"net"
	"reflect"
	"strings"
	"testing"

	"github.com/foxcpp/go-mockdns"
	"github.com/sblinch/maddy-wlbl/internal/check/wlbl"
)

func Test_parseRelays(t *testing.T) {
	v := "[ ip=203.0.113.5 rdns=MX.Example.com. helo=mx.example.com by=mail.example.org ident= envfrom= intl=0 id=ABC auth= msa=0 ]" +
		" [ ip=198.51.100.7 rdns= helo=unknown by=mx.example.com ident= envfrom= intl=0 id= auth= msa=0 ]" +
		" [ rdns=noip.example ] [ ip=bogus ]"

	got := parseRelays([]string{v}, false)
	want := []wlbl.Relay{
		{IP: net.ParseIP("203.0.113.5"), RDNS: "mx.example.com"},
		{IP: net.ParseIP("198.51.100.7")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseRelays() = %v, want %v", got, want)
	}

	if got := parseRelays(nil, true); got != nil {
		t.Errorf("parseRelays(nil) = %v", got)
	}
}

func TestMessage_ResolveRDNS(t *testing.T) {
	resolver := &mockdns.Resolver{
		Zones: map[string]mockdns.Zone{
			"5.113.0.203.in-addr.arpa.": {
				PTR: []string{"MX1.example.com."},
			},
			"1.2.0.192.in-addr.arpa.": {
				PTR: []string{"gw.example.org."},
			},
		},
	}

	m := &Message{
		untrusted: []wlbl.Relay{
			{IP: net.ParseIP("203.0.113.5")},
			{IP: net.ParseIP("198.51.100.7")},
			{IP: net.ParseIP("203.0.113.5"), RDNS: "already.example"},
		},
		trusted: []wlbl.Relay{
			{IP: net.ParseIP("192.0.2.1"), Trusted: true},
		},
	}
	if err := m.ResolveRDNS(context.Background(), resolver); err != nil {
		t.Fatal(err)
	}

	gotUntrusted := []string{m.untrusted[0].RDNS, m.untrusted[1].RDNS, m.untrusted[2].RDNS}
	if want := []string{"mx1.example.com", "", "already.example"}; !reflect.DeepEqual(gotUntrusted, want) {
		t.Errorf("untrusted rDNS = %v, want %v", gotUntrusted, want)
	}
	if got := m.trusted[0].RDNS; got != "gw.example.org" {
		t.Errorf("trusted rDNS = %q, want %q", got, "gw.example.org")
	}

	empty := &Message{}
	if err := empty.ResolveRDNS(context.Background(), resolver); err != nil {
		t.Errorf("ResolveRDNS() without relays = %v", err)
	}
}

const testMessage = "Return-Path: <bounce@lists.example.org>\r\n" +
	"X-Spam-Relays-Untrusted: [ ip=203.0.113.5 rdns=mx.example.com helo=mx.example.com by=mx.example.org ident= envfrom= intl=0 id= auth= msa=0 ]\r\n" +
	"X-Spam-Relays-Trusted: [ ip=192.0.2.1 rdns=gw.example.org helo=gw by=mx.example.org ident= envfrom= intl=1 id= auth= msa=0 ]\r\n" +
	"From: \"Joe Sender\" <joe@example.com>\r\n" +
	"To: alice@example.org, =?utf-8?q?Bob_B=C3=B6hm?= <bob@example.org>\r\n" +
	"Cc: carol@example.net\r\n" +
	"Cc: dave@example.net\r\n" +
	"Envelope-To: <alice@example.org>; <erin@example.org>\r\n" +
	"Subject: hello\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Visit http://www.Example.com/offer or http://shop.other.com.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p><a href=\"http://www.example.com/offer\">offer</a><img src=\"https://cdn.other.com/x.png\"></p>\r\n" +
	"--BOUNDARY--\r\n"

func TestRead(t *testing.T) {
	m, err := Read(strings.NewReader(testMessage))
	if err != nil {
		t.Fatal(err)
	}

	addrTests := []struct {
		header string
		want   []string
	}{
		{"From", []string{"joe@example.com"}},
		{"To", []string{"alice@example.org", "bob@example.org"}},
		{"Cc", []string{"carol@example.net", "dave@example.net"}},
		{"Envelope-To", []string{"alice@example.org", "erin@example.org"}},
		{"Resent-From", nil},
	}
	for _, tt := range addrTests {
		t.Run(tt.header, func(t *testing.T) {
			if got := m.Addresses(tt.header); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Addresses(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}

	if got := m.SenderAddress(); got != "bounce@lists.example.org" {
		t.Errorf("SenderAddress() = %q", got)
	}
	m.SetSender("joe@example.com")
	if got := m.SenderAddress(); got != "joe@example.com" {
		t.Errorf("SenderAddress() after SetSender = %q", got)
	}

	wantUntrusted := []wlbl.Relay{{IP: net.ParseIP("203.0.113.5"), RDNS: "mx.example.com"}}
	if got := m.UntrustedRelays(); !reflect.DeepEqual(got, wantUntrusted) {
		t.Errorf("UntrustedRelays() = %v, want %v", got, wantUntrusted)
	}
	wantTrusted := []wlbl.Relay{{IP: net.ParseIP("192.0.2.1"), RDNS: "gw.example.org", Trusted: true}}
	if got := m.TrustedRelays(); !reflect.DeepEqual(got, wantTrusted) {
		t.Errorf("TrustedRelays() = %v, want %v", got, wantTrusted)
	}

	wantHosts := []string{"www.example.com", "shop.other.com", "cdn.other.com"}
	if got := m.URIHosts(); !reflect.DeepEqual(got, wantHosts) {
		t.Errorf("URIHosts() = %v, want %v", got, wantHosts)
	}

	m.AddRelay(wlbl.Relay{IP: net.ParseIP("198.51.100.7")})
	if got := len(m.UntrustedRelays()); got != 2 {
		t.Errorf("AddRelay() did not extend the untrusted chain: %d relays", got)
	}
}

func TestRead_PlainText(t *testing.T) {
	m, err := Read(strings.NewReader("From: joe@example.com\r\n\r\nsee http://example.net/\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.URIHosts(), []string{"example.net"}; !reflect.DeepEqual(got, want) {
		t.Errorf("URIHosts() = %v, want %v", got, want)
	}
	if got := m.UntrustedRelays(); len(got) != 0 {
		t.Errorf("UntrustedRelays() = %v", got)
	}
	if got := m.SenderAddress(); got != "" {
		t.Errorf("SenderAddress() = %q", got)
	}
}
