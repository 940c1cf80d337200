// Package uevent decodes kernel hot-plug notifications and, on Linux,
// subscribes to them over a netlink socket.
package uevent

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"path"
	"regexp"

	"github.com/pilebones/go-udev/netlink"
)

// ErrMalformed is returned for notifications that cannot be decoded.
var ErrMalformed = errors.New("malformed uevent")

// Actions relevant to tone producers. Other kernel actions (bind, change,
// unbind, ...) are passed through verbatim.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// libudevMagic prefixes messages rebroadcast by udevd rather than the kernel.
var libudevMagic = []byte("libudev\x00")

// Event is one decoded hot-plug notification.
type Event struct {
	Action    string
	DevPath   string
	Subsystem string
	DevType   string
	Sysname   string
	Env       map[string]string
}

// Parse decodes a kernel uevent datagram: an "action@devpath" header followed
// by NUL-separated KEY=VALUE pairs. ACTION, DEVPATH and SUBSYSTEM are
// required.
func Parse(msg []byte) (*Event, error) {
	if bytes.HasPrefix(msg, libudevMagic) {
		return nil, fmt.Errorf("%w: libudev message", ErrMalformed)
	}
	ue, err := netlink.ParseUEvent(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return fromUEvent(ue)
}

func fromUEvent(ue *netlink.UEvent) (*Event, error) {
	env := ue.Env
	if env == nil {
		env = make(map[string]string)
	}
	ev := &Event{
		Action:    env["ACTION"],
		DevPath:   env["DEVPATH"],
		Subsystem: env["SUBSYSTEM"],
		DevType:   env["DEVTYPE"],
		Env:       env,
	}
	switch {
	case ev.Action == "":
		return nil, fmt.Errorf("%w: missing ACTION", ErrMalformed)
	case ev.DevPath == "":
		return nil, fmt.Errorf("%w: missing DEVPATH", ErrMalformed)
	case ev.Subsystem == "":
		return nil, fmt.Errorf("%w: missing SUBSYSTEM", ErrMalformed)
	}
	ev.Sysname = path.Base(ev.DevPath)
	return ev, nil
}

// toUEvent returns ev in netlink form. The decoded fields take precedence
// over Env.
func (ev *Event) toUEvent() netlink.UEvent {
	env := maps.Clone(ev.Env)
	if env == nil {
		env = make(map[string]string, 4)
	}
	for k, v := range map[string]string{
		"ACTION":    ev.Action,
		"DEVPATH":   ev.DevPath,
		"SUBSYSTEM": ev.Subsystem,
		"DEVTYPE":   ev.DevType,
	} {
		if v != "" {
			env[k] = v
		}
	}
	return netlink.UEvent{Action: netlink.KObjAction(ev.Action), KObj: ev.DevPath, Env: env}
}

// Filter selects events by subsystem and device type. Empty fields match
// anything.
type Filter struct {
	Subsystem string
	DevType   string
}

// USBDevices matches whole USB devices, not their interfaces.
var USBDevices = Filter{Subsystem: "usb", DevType: "usb_device"}

func (f Filter) rule() netlink.RuleDefinition {
	env := make(map[string]string, 2)
	if f.Subsystem != "" {
		env["SUBSYSTEM"] = exact(f.Subsystem)
	}
	if f.DevType != "" {
		env["DEVTYPE"] = exact(f.DevType)
	}
	return netlink.RuleDefinition{Env: env}
}

func exact(s string) string {
	return "^" + regexp.QuoteMeta(s) + "$"
}

// Matcher selects events passing any of a set of filters. No filters match
// everything.
type Matcher struct {
	rules *netlink.RuleDefinitions
}

// NewMatcher compiles filters into a Matcher.
func NewMatcher(filters ...Filter) (*Matcher, error) {
	if len(filters) == 0 {
		return &Matcher{}, nil
	}
	rules := &netlink.RuleDefinitions{}
	for _, f := range filters {
		rules.Rules = append(rules.Rules, f.rule())
	}
	if err := rules.Compile(); err != nil {
		return nil, fmt.Errorf("compile uevent filters: %w", err)
	}
	return &Matcher{rules: rules}, nil
}

// MustMatcher is like NewMatcher but panics on error.
func MustMatcher(filters ...Filter) *Matcher {
	m, err := NewMatcher(filters...)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether ev passes the matcher.
func (m *Matcher) Match(ev *Event) bool {
	if m.rules == nil {
		return true
	}
	return m.rules.Evaluate(ev.toUEvent())
}
