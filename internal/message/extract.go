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
	"io"
	"net/url"
	"strings"

	"github.com/emersion/go-message/mail"
	"golang.org/x/net/idna"
)

func urlHosts(urls []string) []string {
	hosts := urls[:0]
	for _, u := range urls {
		urlinfo, err := url.Parse(strings.TrimSpace(u))
		if err != nil || urlinfo.Hostname() == "" {
			continue
		}
		hosts = append(hosts, urlinfo.Hostname())
	}
	return hosts
}

// normalizeHosts lowercases hosts, converts IDNs to their ASCII form and
// removes duplicates, keeping the first occurrence.
func normalizeHosts(hosts []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
		if h == "" {
			continue
		}
		if ascii, err := idna.Lookup.ToASCII(h); err == nil && ascii != "" {
			h = ascii
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func extractBodyHosts(r io.Reader) ([]string, error) {
	var hosts []string

	mr, err := mail.CreateReader(r)
	if err != nil {
		// probably not a MIME message; process as plaintext
		if rs, ok := r.(io.ReadSeeker); ok {
			_, _ = rs.Seek(0, io.SeekStart)
		}
		return extractTextHosts(r)
	}
	defer mr.Close()

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		var ctype string
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ctype, _, _ = h.ContentType()
			if ctype != "text/html" {
				ctype = "text/plain"
			}
		case *mail.AttachmentHeader:
			ctype, _, _ = h.ContentType()
		}

		var partHosts []string
		switch ctype {
		case "text/html":
			partHosts, err = extractHTMLHosts(p.Body)
		case "text/plain":
			partHosts, err = extractTextHosts(p.Body)
		}
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, partHosts...)
	}

	return hosts, nil
}
