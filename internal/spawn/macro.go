package spawn

import (
	"os/user"
	"strings"

	"muster/internal/version"
)

// Substitute expands the command-text macros: %s session key, %h
// hostname, %u username (the local user when none was given), %n
// newline, %v version.
func Substitute(text, sessionKey, hostname, username string) string {
	if !strings.ContainsRune(text, '%') {
		return text
	}
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}
	replacer := strings.NewReplacer(
		"%s", strings.Join(strings.Fields(sessionKey), ""),
		"%h", hostname,
		"%u", username,
		"%n", "\n",
		"%v", version.Version,
	)
	return replacer.Replace(text)
}
