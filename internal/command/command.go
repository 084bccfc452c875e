// Package command interprets user-entered slash commands and produces
// AI-assisted replies injected into the channel as system messages.
package command

import (
	"regexp"
	"strings"
)

// Categories the context classifier knows about, plus "summary" which only
// exists as a command.
var knownCategories = map[string]bool{
	"decision":   true,
	"action":     true,
	"suggestion": true,
	"question":   true,
	"constraint": true,
	"assumption": true,
	"summary":    true,
}

var slashRe = regexp.MustCompile(`^/(\w+)\s*(.*)$`)

// ParseInput extracts a command category and free-text query from user
// input. ok is false when the input is not a recognized slash command and
// should be sent as a plain message instead.
func ParseInput(input string) (category, query string, ok bool) {
	matches := slashRe.FindStringSubmatch(strings.TrimSpace(input))
	if len(matches) != 3 {
		return "", "", false
	}
	category = strings.ToLower(matches[1])
	if !knownCategories[category] {
		return "", "", false
	}
	return category, strings.TrimSpace(matches[2]), true
}
