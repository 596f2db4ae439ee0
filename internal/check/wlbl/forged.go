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

const (
	VerdictFromInWhitelist        = "from_in_whitelist"
	VerdictFromInDefaultWhitelist = "from_in_default_whitelist"
)

// resolveSender computes the verdict for the message against a direct pattern
// table and a "pattern relay" table. The direct table is matched against the
// From addresses, the relay table and the relay override against the envelope
// sender. The verdict is stored in the message state under name and reused by
// later calls.
func (s *State) resolveSender(name string, direct, rcvd *FlatTable) Verdict {
	if v, ok := s.verdicts[name]; ok {
		return v
	}

	verdict := Unknown
	if pat, addr, ok := matchAny(fromAddresses(s.msg), direct); ok {
		s.log.DebugMsg("sender listed", "check", name, "pattern", pat, "address", addr)
		verdict = Trusted
	} else if sender := s.msg.SenderAddress(); sender != "" && rcvd.Len() != 0 {
		verdict = checkWhitelistRcvd(rcvd, sender, selectRelays(s.msg))
		switch verdict {
		case Trusted:
			s.log.DebugMsg("sender confirmed by relay", "check", name, "sender", sender)
		case Forged:
			if pat, ok := s.c.allowRelays.Match(sender); ok {
				s.log.DebugMsg("forged sender allowed by relay override", "check", name, "pattern", pat, "sender", sender)
				verdict = Unknown
			} else {
				s.log.DebugMsg("sender not confirmed by any relay", "check", name, "sender", sender)
			}
		}
	}

	s.verdicts[name] = verdict
	verdictsTotal.WithLabelValues(s.c.instName, name, verdict.String()).Inc()
	return verdict
}

func (s *State) whitelistVerdict() Verdict {
	return s.resolveSender(VerdictFromInWhitelist, s.c.lists[ListWhitelistFrom], s.c.lists[ListWhitelistFromRcvd])
}

func (s *State) defaultWhitelistVerdict() Verdict {
	return s.resolveSender(VerdictFromInDefaultWhitelist, nil, s.c.lists[ListDefWhitelistFromRcvd])
}

func (s *State) fromInWhitelist(string) bool {
	return s.whitelistVerdict() == Trusted
}

func (s *State) fromInDefaultWhitelist(string) bool {
	return s.defaultWhitelistVerdict() == Trusted
}

// forgedInWhitelist fires when the sender claims a whitelisted address that
// no relay confirms and the default whitelist has nothing to say about it.
func (s *State) forgedInWhitelist(string) bool {
	return s.whitelistVerdict() == Forged && s.defaultWhitelistVerdict() == Unknown
}

func (s *State) forgedInDefaultWhitelist(string) bool {
	return s.defaultWhitelistVerdict() == Forged && s.whitelistVerdict() == Unknown
}
