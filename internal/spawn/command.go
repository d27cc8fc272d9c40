package spawn

import (
	"strings"

	"muster/internal/config"
	"muster/internal/host"
)

// buildTerminalCommand assembles the full three-stage command line:
// terminal emulator -> muster --helper -> comms command. It is run via
// "sh -c", matching how a shell-metacharacter-laden command would have
// been exec'd historically; the descriptor text is passed through
// unescaped on purpose, trusting the user.
func buildTerminalCommand(settings config.Settings, h host.Host, sessionKey, pipePath, exe, title string) string {
	terminal := settings.Terminal

	var cmd strings.Builder
	cmd.Grow(1024)

	cmd.WriteString(terminal.Name)
	cmd.WriteString(" ")

	if terminal.Colorize != nil && *terminal.Colorize {
		if terminal.DarkBackground != nil && *terminal.DarkBackground {
			cmd.WriteString("-bg \\#000000 -fg ")
		} else {
			cmd.WriteString("-fg \\#000000 -bg ")
		}
		cmd.WriteString(hostColor(h.Hostname))
		cmd.WriteString(" ")
	}

	if terminal.Args != "" {
		cmd.WriteString(terminal.Args)
		cmd.WriteString(" ")
	}
	cmd.WriteString(terminal.AllowSendEvents)
	cmd.WriteString(" ")
	cmd.WriteString(terminal.TitleOpt)
	cmd.WriteString(" '")
	cmd.WriteString(title)
	cmd.WriteString(": ")
	cmd.WriteString(h.Descriptor)
	cmd.WriteString("' -font ")
	cmd.WriteString(terminal.Font)
	cmd.WriteString(" -e ")
	cmd.WriteString(buildHelperCommand(settings, h, sessionKey, pipePath, exe))

	return cmd.String()
}

// buildHelperCommand is the helper invocation alone, without a
// surrounding terminal emulator. Used directly for console sessions.
func buildHelperCommand(settings config.Settings, h host.Host, sessionKey, pipePath, exe string) string {
	comms := settings.Comms

	var cmd strings.Builder
	cmd.WriteString(exe)
	cmd.WriteString(" --helper ")
	cmd.WriteString(comms.Method)
	cmd.WriteString(" '")
	cmd.WriteString(comms.Args)
	cmd.WriteString("' '")
	if comms.Command != "" {
		cmd.WriteString(Substitute(comms.Command, sessionKey, h.Hostname, h.Username))
	}
	cmd.WriteString("' '")
	cmd.WriteString(comms.AutoClose)
	cmd.WriteString("' ")
	cmd.WriteString(pipePath)
	cmd.WriteString(" ")
	cmd.WriteString(h.Hostname)
	cmd.WriteString(" '")
	if h.Username != "" {
		cmd.WriteString(h.Username)
	} else {
		cmd.WriteString(comms.Username)
	}
	cmd.WriteString("' '")
	if h.Port != "" {
		cmd.WriteString(h.Port)
	} else {
		cmd.WriteString(comms.Port)
	}
	cmd.WriteString("'")

	return cmd.String()
}
