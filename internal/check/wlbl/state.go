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
	"github.com/foxcpp/maddy/framework/log"
)

// State holds everything that is remembered while one message is evaluated.
// It must not be shared between messages or goroutines.
type State struct {
	c   *Check
	msg Message
	log log.Logger

	verdicts map[string]Verdict
	listed   map[string]bool
}

func deliveryLogger(l log.Logger, msgID string) log.Logger {
	fields := make(map[string]interface{}, len(l.Fields)+1)
	for k, v := range l.Fields {
		fields[k] = v
	}
	if msgID != "" {
		fields["msg_id"] = msgID
	}
	return log.Logger{
		Out:    l.Out,
		Name:   l.Name,
		Debug:  l.Debug,
		Fields: fields,
	}
}

// StateForMsg starts the evaluation of a message.
func (c *Check) StateForMsg(msgID string, msg Message) *State {
	return &State{
		c:        c,
		msg:      msg,
		log:      deliveryLogger(c.log, msgID),
		verdicts: make(map[string]Verdict),
		listed:   make(map[string]bool),
	}
}

// Run evaluates the check identified by id. arg is the list name for checks
// that take one and is ignored otherwise.
func (s *State) Run(id CheckID, arg string) bool {
	if id < 0 || id >= numChecks {
		s.log.DebugMsg("unknown check id", "id", int(id))
		return false
	}
	return checkFuncs[id](s, arg)
}

// Verdict returns the tri-state verdict remembered under a check name, such
// as "from_in_whitelist".
func (s *State) Verdict(name string) (Verdict, bool) {
	v, ok := s.verdicts[name]
	return v, ok
}

func (s *State) Close() error {
	return nil
}
