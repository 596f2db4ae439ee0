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

// Command wlbl-eval evaluates check.wlbl rules against messages read from
// files and prints the result of every check.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	parser "github.com/foxcpp/maddy/framework/cfgparser"
	"github.com/foxcpp/maddy/framework/config"
	"github.com/foxcpp/maddy/framework/dns"
	"github.com/foxcpp/maddy/framework/log"
	"github.com/sblinch/maddy-wlbl/internal/check/wlbl"
	"github.com/sblinch/maddy-wlbl/internal/message"
	"github.com/urfave/cli/v2"
)

const rdnsTimeout = 10 * time.Second

type checkSpec struct {
	id  wlbl.CheckID
	arg string
}

func (c checkSpec) String() string {
	if c.arg == "" {
		return c.id.String()
	}
	return c.id.String() + ":" + c.arg
}

// parseCheckSpecs resolves NAME or NAME:ARG arguments. Without any, every
// check that does not need an argument is selected.
func parseCheckSpecs(values []string) ([]checkSpec, error) {
	if len(values) == 0 {
		var specs []checkSpec
		for id := wlbl.CheckFromInWhitelist; id <= wlbl.CheckURIHostInBlacklist; id++ {
			if !id.TakesList() {
				specs = append(specs, checkSpec{id: id})
			}
		}
		return specs, nil
	}

	specs := make([]checkSpec, 0, len(values))
	for _, v := range values {
		name, arg := v, ""
		if colon := strings.IndexByte(v, ':'); colon != -1 {
			name, arg = v[:colon], v[colon+1:]
		}
		id, err := wlbl.ParseCheckID(name)
		if err != nil {
			return nil, err
		}
		if id.TakesList() && arg == "" {
			return nil, fmt.Errorf("%s: an argument is required", id)
		}
		specs = append(specs, checkSpec{id: id, arg: arg})
	}
	return specs, nil
}

// parseRelay reads an IP or IP/RDNS relay description.
func parseRelay(v string) (wlbl.Relay, error) {
	addr, rdns := v, ""
	if slash := strings.IndexByte(v, '/'); slash != -1 {
		addr, rdns = v[:slash], v[slash+1:]
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return wlbl.Relay{}, fmt.Errorf("invalid relay address: %s", addr)
	}
	return wlbl.Relay{IP: ip, RDNS: strings.TrimSuffix(strings.ToLower(rdns), ".")}, nil
}

// loadConfig reads a maddy configuration file and returns the wlbl block
// along with its instance name. A file without such a block is treated as
// the body of one.
func loadConfig(path string) (config.Node, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.Node{}, "", err
	}
	defer f.Close()

	nodes, err := parser.Read(f, path)
	if err != nil {
		return config.Node{}, "", err
	}

	for _, node := range nodes {
		if node.Name != "check.wlbl" && node.Name != "wlbl" {
			continue
		}
		instName := "wlbl"
		if len(node.Args) != 0 {
			instName = node.Args[0]
		}
		return node, instName, nil
	}
	return config.Node{Name: "check.wlbl", Children: nodes}, "wlbl", nil
}

// newCheck loads the configuration at path; debug is passed down as the
// global default so the check logs per-message decisions.
func newCheck(path string, debug bool) (*wlbl.Check, error) {
	node, instName, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	c, err := wlbl.New("check.wlbl", instName, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := c.Init(config.NewMap(map[string]interface{}{"debug": debug}, node)); err != nil {
		return nil, err
	}
	return c, nil
}

func readMessage(path string) (*message.Message, error) {
	if path == "-" {
		return message.Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return message.Read(f)
}

func evaluate(w io.Writer, c *wlbl.Check, name string, msg *message.Message, specs []checkSpec) {
	s := c.StateForMsg(name, msg)
	defer s.Close()

	for _, spec := range specs {
		result := s.Run(spec.id, spec.arg)
		verdict := "-"
		if vn := spec.id.VerdictName(); vn != "" {
			if v, ok := s.Verdict(vn); ok {
				verdict = v.String()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", name, spec, result, verdict)
	}
}

func run(ctx *cli.Context) error {
	if ctx.Bool("debug") {
		log.DefaultLogger.Debug = true
	}
	if ctx.NArg() == 0 {
		return cli.Exit("at least one message file is required", 2)
	}

	specs, err := parseCheckSpecs(ctx.StringSlice("check"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	var relays []wlbl.Relay
	for _, v := range ctx.StringSlice("relay") {
		r, err := parseRelay(v)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		relays = append(relays, r)
	}

	c, err := newCheck(ctx.Path("config"), ctx.Bool("debug"))
	if err != nil {
		return err
	}

	var failed bool
	for _, path := range ctx.Args().Slice() {
		msg, err := readMessage(path)
		if err != nil {
			log.DefaultLogger.Error("cannot read message", err, "file", path)
			failed = true
			continue
		}
		if ctx.IsSet("sender") {
			msg.SetSender(ctx.String("sender"))
		}
		for _, r := range relays {
			msg.AddRelay(r)
		}
		if ctx.Bool("resolve-rdns") {
			rctx, cancel := context.WithTimeout(ctx.Context, rdnsTimeout)
			err := msg.ResolveRDNS(rctx, dns.DefaultResolver())
			cancel()
			if err != nil {
				log.DefaultLogger.Error("rDNS lookup failed", err, "file", path)
			}
		}

		evaluate(ctx.App.Writer, c, path, msg, specs)
	}

	if failed {
		return errors.New("some messages could not be read")
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:      "wlbl-eval",
		Usage:     "evaluate whitelist/blacklist rules against messages",
		ArgsUsage: "MESSAGE...",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "maddy configuration file with a check.wlbl block",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "sender",
				Usage: "envelope sender, overrides Return-Path",
			},
			&cli.StringSliceFlag{
				Name:  "check",
				Usage: "check to run as NAME or NAME:ARG, may be repeated (default: all checks without arguments)",
			},
			&cli.StringSliceFlag{
				Name:  "relay",
				Usage: "untrusted relay as IP or IP/RDNS, nearest first, may be repeated",
			},
			&cli.BoolFlag{
				Name:  "resolve-rdns",
				Usage: "look up missing relay rDNS names",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger.Error("wlbl-eval", err)
		os.Exit(1)
	}
}
