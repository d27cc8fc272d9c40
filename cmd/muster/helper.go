//go:build !windows

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"muster/internal/handshake"

	"golang.org/x/sys/unix"
)

const helperUsage = "usage: muster --helper <method> <args> <command> <auto-close> <pipe> <host> <user> <port>"

// dnsFailureDelay gives the user time to read the warning before the
// doomed connection attempt scrolls it away.
const dnsFailureDelay = 5 * time.Second

// runHelper is the in-terminal role: report pid and window id over the
// rendezvous FIFO, then exec the comms command. It never returns on
// success; the shell replaces this process.
func runHelper(args []string) int {
	if len(args) < 8 {
		fmt.Fprintln(os.Stderr, helperUsage)
		return 2
	}
	method := args[0]
	commsArgs := args[1]
	command := args[2]
	autoClose := args[3]
	pipePath := args[4]
	hostname := args[5]
	username := args[6]
	port := args[7]

	if stripped, failed := stripDNSFailure(hostname); failed {
		fmt.Fprintf(os.Stderr, "muster: could not resolve %s, connection will likely fail\n", stripped)
		time.Sleep(dnsFailureDelay)
		hostname = stripped
	}

	wid := windowIDFromEnv()
	if err := handshake.Write(pipePath, os.Getpid(), wid); err != nil {
		// The orchestrator will drop this session on timeout; the
		// connection itself can still be useful, so keep going.
		fmt.Fprintf(os.Stderr, "muster: %v\n", err)
	}

	full := buildCommsCommand(method, commsArgs, command, hostname, username, port) + autoCloseTrailer(autoClose)
	if err := unix.Exec("/bin/sh", []string{"sh", "-c", full}, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "muster: exec: %v\n", err)
		return 1
	}
	return 0
}

// stripDNSFailure detects the upstream resolver's failure marker, a
// "==" suffix on the hostname.
func stripDNSFailure(hostname string) (string, bool) {
	if strings.HasSuffix(hostname, "==") {
		return strings.TrimSuffix(hostname, "=="), true
	}
	return hostname, false
}

// windowIDFromEnv reads the terminal's window id. xterm and friends
// export WINDOWID; absence reports window 0 and the session stays
// untiled.
func windowIDFromEnv() uint64 {
	raw := os.Getenv("WINDOWID")
	if raw == "" {
		return 0
	}
	wid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return wid
}

// buildCommsCommand composes the connection command. telnet takes host
// and port positionally; rsh knows -l but not -p; everything else
// (ssh, sftp) gets both flags.
func buildCommsCommand(method, args, command, hostname, username, port string) string {
	var b strings.Builder
	b.WriteString(method)
	if args != "" {
		b.WriteString(" ")
		b.WriteString(args)
	}

	if method == "telnet" {
		b.WriteString(" ")
		b.WriteString(hostname)
		if port != "" {
			b.WriteString(" ")
			b.WriteString(port)
		}
		return b.String()
	}

	if username != "" {
		b.WriteString(" -l ")
		b.WriteString(username)
	}
	if port != "" && method != "rsh" {
		b.WriteString(" -p ")
		b.WriteString(port)
	}
	b.WriteString(" ")
	b.WriteString(hostname)
	if command != "" {
		b.WriteString(" ")
		b.WriteString(command)
	}
	return b.String()
}

// autoCloseTrailer keeps the terminal open after the connection ends:
// empty or "0" waits for RETURN, anything else sleeps that many
// seconds.
func autoCloseTrailer(policy string) string {
	trimmed := strings.TrimSpace(policy)
	if trimmed == "" || trimmed == "0" {
		return " ; echo Press RETURN to continue ; read muster_ignored"
	}
	return fmt.Sprintf(" ; echo Sleeping for %s seconds ; sleep %s", trimmed, trimmed)
}
