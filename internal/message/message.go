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

// Package message reads RFC 5322 messages into the form check.wlbl
// evaluates: header addresses, the relay chain and URI hosts.
package message

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"unicode"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/sblinch/maddy-wlbl/internal/check/wlbl"
)

// Message implements wlbl.Message for a message read from a stream.
type Message struct {
	Header textproto.Header

	sender    string
	untrusted []wlbl.Relay
	trusted   []wlbl.Relay
	uriHosts  []string
}

var _ wlbl.Message = &Message{}

// Read parses the whole message from r. The relay chain is taken from the
// X-Spam-Relays-* pseudo-headers and the envelope sender from Return-Path;
// both can be overridden afterwards.
func Read(r io.Reader) (*Message, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	hdr, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("message: malformed header: %w", err)
	}

	hosts, err := extractBodyHosts(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}

	return &Message{
		Header:    hdr,
		sender:    returnPath(hdr.Get("Return-Path")),
		untrusted: parseRelays(hdr.Values(hdrRelaysUntrusted), false),
		trusted:   parseRelays(hdr.Values(hdrRelaysTrusted), true),
		uriHosts:  normalizeHosts(hosts),
	}, nil
}

func returnPath(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "<>"))
}

// SetSender sets the envelope sender.
func (m *Message) SetSender(addr string) {
	m.sender = addr
}

// AddRelay appends a relay to the trusted or untrusted part of the chain,
// depending on r.Trusted.
func (m *Message) AddRelay(r wlbl.Relay) {
	if r.Trusted {
		m.trusted = append(m.trusted, r)
		return
	}
	m.untrusted = append(m.untrusted, r)
}

// Addresses returns the addresses of every header field named key. Fields
// that are not valid address lists, such as the bare addresses of
// Envelope-To, are scanned for anything that looks like an address.
func (m *Message) Addresses(key string) []string {
	var addrs []string
	for _, v := range m.Header.Values(key) {
		addrs = append(addrs, parseAddresses(v)...)
	}
	return addrs
}

func parseAddresses(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}

	var addrs []string
	if list, err := mail.ParseAddressList(v); err == nil {
		for _, a := range list {
			if a.Address != "" {
				addrs = append(addrs, a.Address)
			}
		}
		return addrs
	}

	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	for _, f := range fields {
		f = strings.Trim(f, `<>"'()`)
		if strings.Contains(f, "@") {
			addrs = append(addrs, f)
		}
	}
	return addrs
}

func (m *Message) SenderAddress() string {
	return m.sender
}

func (m *Message) UntrustedRelays() []wlbl.Relay {
	return m.untrusted
}

func (m *Message) TrustedRelays() []wlbl.Relay {
	return m.trusted
}

func (m *Message) URIHosts() []string {
	return m.uriHosts
}
