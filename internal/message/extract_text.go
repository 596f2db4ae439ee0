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

	"mvdan.cc/xurls/v2"
)

const (
	maxDomainLength            = 253
	maxExpectedURLSchemeLength = 32
)

var strictURLs = xurls.Strict()

// extractTextHostsBuf scans r in len(buf) chunks. The tail of each chunk is
// kept and scanned again with the next one so that URLs spanning a chunk
// boundary are found; a match touching the end of a chunk is left for the
// next round. The result may contain duplicates.
func extractTextHostsBuf(r io.Reader, buf []byte) ([]string, error) {
	var urls []string

	hold := 0

	for {
		nr, err := r.Read(buf[hold:])

		if nr > 0 {
			data := buf[0 : hold+nr]
			text := string(data)
			for _, loc := range strictURLs.FindAllStringIndex(text, -1) {
				if err == nil && loc[1] == len(text) {
					continue
				}
				urls = append(urls, text[loc[0]:loc[1]])
			}

			hold = maxDomainLength + maxExpectedURLSchemeLength
			if hold > len(data) {
				hold = len(data)
			}
			hold = copy(buf, data[len(data)-hold:])
		}

		if err != nil {
			if err == io.EOF {
				if nr == 0 && hold > 0 {
					// The last chunk was read without EOF; its trailing
					// match was skipped above.
					text := string(buf[:hold])
					if locs := strictURLs.FindAllStringIndex(text, -1); len(locs) > 0 {
						if loc := locs[len(locs)-1]; loc[1] == len(text) {
							urls = append(urls, text[loc[0]:loc[1]])
						}
					}
				}
				return urlHosts(urls), nil
			}
			return nil, err
		}
	}
}

func extractTextHosts(r io.Reader) ([]string, error) {
	buf := make([]byte, 40960)
	return extractTextHostsBuf(r, buf)
}
