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
	"fmt"
	"strings"

	"github.com/foxcpp/maddy/framework/config"
	"github.com/foxcpp/maddy/framework/log"
)

const modName = "check.wlbl"

// Flat "pattern value" list directives.
const (
	ListWhitelistFrom        = "whitelist_from"
	ListBlacklistFrom        = "blacklist_from"
	ListWhitelistTo          = "whitelist_to"
	ListBlacklistTo          = "blacklist_to"
	ListAllSpamTo            = "all_spam_to"
	ListMoreSpamTo           = "more_spam_to"
	ListWhitelistFromRcvd    = "whitelist_from_rcvd"
	ListDefWhitelistFromRcvd = "def_whitelist_from_rcvd"
)

var flatLists = []string{
	ListWhitelistFrom, ListBlacklistFrom,
	ListWhitelistTo, ListBlacklistTo,
	ListAllSpamTo, ListMoreSpamTo,
	ListWhitelistFromRcvd, ListDefWhitelistFromRcvd,
}

const (
	dirAllowRelays   = "whitelist_allow_relays"
	dirEnlistURIHost = "enlist_uri_host"
	dirDelistURIHost = "delist_uri_host"
	dirWhiteURIHost  = "whitelist_uri_host"
	dirBlackURIHost  = "blacklist_uri_host"
)

type rawEntry struct {
	line string
	node config.Node
}

type Check struct {
	instName string
	log      log.Logger

	baseDomainMode string
	rcvdMatch      string
	uriHostStrict  bool

	lists       map[string]*FlatTable
	allowRelays *PatternList
	delist      *DelistTable
	hosts       *HostTable
}

func New(_, instName string, _, inlineArgs []string) (*Check, error) {
	if len(inlineArgs) != 0 {
		return nil, fmt.Errorf("%s: inline arguments are not used", modName)
	}
	return &Check{
		instName: instName,
		log:      log.Logger{Name: modName, Debug: log.DefaultLogger.Debug},
	}, nil
}

func (c *Check) Name() string {
	return modName
}

func (c *Check) InstanceName() string {
	return c.instName
}

// listDirective collects list entries from a directive. Inline arguments
// form one entry and every line of an attached block forms another.
func listDirective(raw map[string][]rawEntry, name string) func(*config.Map, config.Node) error {
	return func(_ *config.Map, node config.Node) error {
		if len(node.Args) == 0 && len(node.Children) == 0 {
			return config.NodeErr(node, "%s: at least one entry is required", name)
		}
		if len(node.Args) != 0 {
			raw[name] = append(raw[name], rawEntry{line: strings.Join(node.Args, " "), node: node})
		}
		for _, child := range node.Children {
			line := strings.Join(append([]string{child.Name}, child.Args...), " ")
			raw[name] = append(raw[name], rawEntry{line: line, node: child})
		}
		return nil
	}
}

func entryLines(entries []rawEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.line)
	}
	return lines
}

func (c *Check) Init(cfg *config.Map) error {
	raw := make(map[string][]rawEntry)

	cfg.Bool("debug", true, false, &c.log.Debug)
	cfg.Enum("base_domain", false, false, []string{baseDomainHeuristic, baseDomainPSL}, baseDomainHeuristic, &c.baseDomainMode)
	cfg.Enum("mailfrom_rcvd_match", false, false, []string{rcvdMatchReverseIP, rcvdMatchRDNS}, rcvdMatchReverseIP, &c.rcvdMatch)
	cfg.Bool("uri_host_strict", false, false, &c.uriHostStrict)

	for _, name := range flatLists {
		cfg.Callback(name, listDirective(raw, name))
	}
	for _, name := range []string{dirAllowRelays, dirEnlistURIHost, dirDelistURIHost, dirWhiteURIHost, dirBlackURIHost} {
		cfg.Callback(name, listDirective(raw, name))
	}

	if _, err := cfg.Process(); err != nil {
		return err
	}

	// Tables are always built from scratch so that no two instances share
	// one.
	c.lists = make(map[string]*FlatTable, len(flatLists))
	for _, name := range flatLists {
		t := newFlatTable()
		for _, e := range raw[name] {
			if err := t.addLine(e.line); err != nil {
				return config.NodeErr(e.node, "%s: %v", name, err)
			}
		}
		c.lists[name] = t
	}

	var err error
	c.allowRelays, err = parsePatternList(entryLines(raw[dirAllowRelays]))
	if err != nil {
		return fmt.Errorf("%s: %s: %w", modName, dirAllowRelays, err)
	}

	for _, name := range []string{dirEnlistURIHost, dirDelistURIHost} {
		for _, e := range raw[name] {
			if _, _, err := splitKeyed(e.line); err != nil {
				return config.NodeErr(e.node, "%s: %v", name, err)
			}
		}
	}
	c.delist, err = parseDelist(entryLines(raw[dirDelistURIHost]))
	if err != nil {
		return fmt.Errorf("%s: %s: %w", modName, dirDelistURIHost, err)
	}
	c.hosts, err = parseHostTable(
		entryLines(raw[dirEnlistURIHost]),
		entryLines(raw[dirWhiteURIHost]),
		entryLines(raw[dirBlackURIHost]),
		c.delist)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", modName, dirEnlistURIHost, err)
	}

	for _, name := range flatLists {
		if n := c.lists[name].Len(); n != 0 {
			c.log.DebugMsg("list compiled", "list", name, "patterns", n)
		}
	}
	c.log.DebugMsg("uri host table compiled", "keys", c.hosts.Keys(), "allow_relays", c.allowRelays.Len())

	return nil
}

// List returns the compiled flat list with the given directive name.
func (c *Check) List(name string) (*FlatTable, bool) {
	t, ok := c.lists[name]
	return t, ok
}

// Hosts returns the compiled URI host table.
func (c *Check) Hosts() *HostTable {
	return c.hosts
}

func (c *Check) baseDomain(domain string) string {
	if c.baseDomainMode == baseDomainPSL {
		return pslBaseDomain(domain)
	}
	return BaseDomain(domain)
}
