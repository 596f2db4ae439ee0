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
	"fmt"
	"strings"
)

// CheckID identifies one of the checks provided by the module. Hosts resolve
// rule names to a CheckID once, with ParseCheckID, and call State.Run with
// it afterwards.
type CheckID int

const (
	CheckFromInWhitelist CheckID = iota
	CheckToInWhitelist
	CheckFromInBlacklist
	CheckToInBlacklist
	CheckFromInList
	CheckToInList
	CheckToInAllSpam
	CheckToInMoreSpam
	CheckMailfromMatchesRcvd
	CheckFromInDefaultWhitelist
	CheckForgedInWhitelist
	CheckForgedInDefaultWhitelist
	CheckURIHostListed
	CheckURIHostInWhitelist
	CheckURIHostInBlacklist

	numChecks
)

var checkNames = [numChecks]string{
	CheckFromInWhitelist:          "check_from_in_whitelist",
	CheckToInWhitelist:            "check_to_in_whitelist",
	CheckFromInBlacklist:          "check_from_in_blacklist",
	CheckToInBlacklist:            "check_to_in_blacklist",
	CheckFromInList:               "check_from_in_list",
	CheckToInList:                 "check_to_in_list",
	CheckToInAllSpam:              "check_to_in_all_spam",
	CheckToInMoreSpam:             "check_to_in_more_spam",
	CheckMailfromMatchesRcvd:      "check_mailfrom_matches_rcvd",
	CheckFromInDefaultWhitelist:   "check_from_in_default_whitelist",
	CheckForgedInWhitelist:        "check_forged_in_whitelist",
	CheckForgedInDefaultWhitelist: "check_forged_in_default_whitelist",
	CheckURIHostListed:            "check_uri_host_listed",
	CheckURIHostInWhitelist:       "check_uri_host_in_whitelist",
	CheckURIHostInBlacklist:       "check_uri_host_in_blacklist",
}

var checkFuncs = [numChecks]func(s *State, arg string) bool{
	CheckFromInWhitelist:          (*State).fromInWhitelist,
	CheckToInWhitelist:            (*State).toInWhitelist,
	CheckFromInBlacklist:          (*State).fromInBlacklist,
	CheckToInBlacklist:            (*State).toInBlacklist,
	CheckFromInList:               (*State).fromInList,
	CheckToInList:                 (*State).toInList,
	CheckToInAllSpam:              (*State).toInAllSpam,
	CheckToInMoreSpam:             (*State).toInMoreSpam,
	CheckMailfromMatchesRcvd:      (*State).mailfromMatchesRcvd,
	CheckFromInDefaultWhitelist:   (*State).fromInDefaultWhitelist,
	CheckForgedInWhitelist:        (*State).forgedInWhitelist,
	CheckForgedInDefaultWhitelist: (*State).forgedInDefaultWhitelist,
	CheckURIHostListed:            (*State).uriHostListed,
	CheckURIHostInWhitelist:       (*State).uriHostInWhitelist,
	CheckURIHostInBlacklist:       (*State).uriHostInBlacklist,
}

var ErrUnknownCheck = errors.New("unknown check")

func (id CheckID) String() string {
	if id < 0 || id >= numChecks {
		return fmt.Sprintf("CheckID(%d)", int(id))
	}
	return checkNames[id]
}

// TakesList reports whether the check expects a list name argument.
func (id CheckID) TakesList() bool {
	switch id {
	case CheckFromInList, CheckToInList, CheckURIHostListed:
		return true
	}
	return false
}

// VerdictName returns the name of the tri-state verdict the check is derived
// from, for use with State.Verdict, or an empty string.
func (id CheckID) VerdictName() string {
	switch id {
	case CheckFromInWhitelist, CheckForgedInWhitelist:
		return VerdictFromInWhitelist
	case CheckFromInDefaultWhitelist, CheckForgedInDefaultWhitelist:
		return VerdictFromInDefaultWhitelist
	}
	return ""
}

// ParseCheckID resolves a rule name such as "check_from_in_whitelist". The
// "check_" prefix is optional.
func ParseCheckID(name string) (CheckID, error) {
	if !strings.HasPrefix(name, "check_") {
		name = "check_" + name
	}
	for id, n := range checkNames {
		if n == name {
			return CheckID(id), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
}

func (s *State) addressInList(addrs []string, listName string) bool {
	table, ok := s.c.lists[listName]
	if !ok {
		s.log.DebugMsg("no such list", "list", listName)
		return false
	}
	pat, addr, ok := matchAny(addrs, table)
	if ok {
		s.log.DebugMsg("address listed", "list", listName, "pattern", pat, "address", addr)
	}
	return ok
}

func (s *State) toInWhitelist(string) bool {
	return s.addressInList(toAddresses(s.msg), ListWhitelistTo)
}

func (s *State) fromInBlacklist(string) bool {
	return s.addressInList(fromAddresses(s.msg), ListBlacklistFrom)
}

func (s *State) toInBlacklist(string) bool {
	return s.addressInList(toAddresses(s.msg), ListBlacklistTo)
}

func (s *State) fromInList(listName string) bool {
	if listName == "" {
		return false
	}
	return s.addressInList(fromAddresses(s.msg), listName)
}

func (s *State) toInList(listName string) bool {
	if listName == "" {
		return false
	}
	return s.addressInList(toAddresses(s.msg), listName)
}

func (s *State) toInAllSpam(string) bool {
	return s.addressInList(toAddresses(s.msg), ListAllSpamTo)
}

func (s *State) toInMoreSpam(string) bool {
	return s.addressInList(toAddresses(s.msg), ListMoreSpamTo)
}

func (s *State) mailfromMatchesRcvd(string) bool {
	sender := s.msg.SenderAddress()
	if sender == "" {
		return false
	}
	matches := s.c.mailfromMatchesRcvd(sender, selectRelays(s.msg))
	s.log.DebugMsg("mailfrom vs. relays", "sender", sender, "matches", matches)
	return matches
}
