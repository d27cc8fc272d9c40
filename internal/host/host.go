// Package host parses connection descriptors of the form
// [user@]hostname[:port][=geometry], including bracketed and bare IPv6
// forms. Geometry is accepted for compatibility and discarded; window
// placement belongs to the window manager.
package host

import (
	"regexp"
	"strings"
)

var (
	reIPv6      = regexp.MustCompile(`^(?:(.*?)@)?\[([\w:]*)\](?::(\d+))?(?:=(\d+\D\d+\D\d+\D\d+))?$`)
	reIPv4      = regexp.MustCompile(`^(?:(.*?)@)?([\w.-]*)(?::(\d+))?(?:=(\d+\D\d+\D\d+\D\d+))?$`)
	reUser      = regexp.MustCompile(`^(.*?)@`)
	reSlashPort = regexp.MustCompile(`/(\d+)$`)
	reColonPort = regexp.MustCompile(`:(\d+?)$`)
	reGeometry  = regexp.MustCompile(`=(.*?)$`)
)

// Host is a parsed connection descriptor. Descriptor retains the
// original unparsed string for re-opening closed sessions.
type Host struct {
	Descriptor string
	Username   string
	Hostname   string
	Port       string
	Geometry   string
}

// Parse returns the parsed host, or ok=false when no hostname can be
// extracted. The acceptance rules intentionally stay permissive: odd
// descriptors pass through so the user can make them work downstream.
func Parse(descriptor string) (Host, bool) {
	if match := reIPv6.FindStringSubmatch(descriptor); match != nil {
		if match[2] == "" {
			return Host{}, false
		}
		return Host{
			Descriptor: descriptor,
			Username:   match[1],
			Hostname:   match[2],
			Port:       match[3],
			Geometry:   match[4],
		}, true
	}

	if match := reIPv4.FindStringSubmatch(descriptor); match != nil {
		if match[2] == "" {
			return Host{}, false
		}
		return Host{
			Descriptor: descriptor,
			Username:   match[1],
			Hostname:   match[2],
			Port:       match[3],
			Geometry:   match[4],
		}, true
	}

	// Neither regex matched; assume a bare IPv6-ish hostname and peel
	// off user, geometry, and port affixes by hand.
	username := ""
	start := 0
	if match := reUser.FindStringSubmatch(descriptor); match != nil {
		username = match[1]
		start = len(match[0])
	}

	end := len(descriptor)
	if start >= end {
		return Host{}, false
	}

	geometry := ""
	if match := reGeometry.FindStringSubmatch(descriptor[start:]); match != nil {
		geometry = match[1]
		end -= len(match[0])
		if start >= end {
			return Host{}, false
		}
	}

	port := ""
	if match := reSlashPort.FindStringSubmatch(descriptor[start:end]); match != nil {
		port = match[1]
		end -= len(match[0])
		if start >= end {
			return Host{}, false
		}
	}

	colons := strings.Count(descriptor[start:end], ":")
	switch {
	case colons == 7 || colons == 8 || descriptor[start:end] == "::1":
		// A full IPv6 address; 8 colon groups means the last one is a port.
		if colons == 8 {
			if match := reColonPort.FindStringSubmatch(descriptor[start:end]); match != nil {
				port = match[1]
				end -= len(match[0])
			}
		}
	case colons > 1 && colons < 8:
		// Ambiguous shortened IPv6 like "abc::def"; let it through.
	default:
		return Host{}, false
	}
	if start >= end {
		return Host{}, false
	}

	return Host{
		Descriptor: descriptor,
		Username:   username,
		Hostname:   descriptor[start:end],
		Port:       port,
		Geometry:   geometry,
	}, true
}
