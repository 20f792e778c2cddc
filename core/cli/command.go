package cli

import (
	"fmt"
	"strings"
)

// Command is one of the closed set of hookup subcommands.
type Command int

const (
	CommandInstall Command = iota
	CommandPostCheckout
	CommandResolveSchemaConflict
)

var commandNames = map[Command]string{
	CommandInstall:               "install",
	CommandPostCheckout:          "post-checkout",
	CommandResolveSchemaConflict: "resolve-schema-conflict",
}

// commandAliases are extra hyphenated names. Underscore spellings of every
// name are derived from these and commandNames.
var commandAliases = map[Command][]string{
	CommandResolveSchemaConflict: {"resolve-schema"},
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Aliases returns the alternative spellings accepted for c.
func (c Command) Aliases() []string {
	var aliases []string
	for _, name := range append([]string{c.String()}, commandAliases[c]...) {
		if name != c.String() {
			aliases = append(aliases, name)
		}
		if underscored := strings.ReplaceAll(name, "-", "_"); underscored != name {
			aliases = append(aliases, underscored)
		}
	}
	return aliases
}

// UnknownCommandError is returned for a command name outside the closed set.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// ParseCommand resolves a command name or alias. Underscores and hyphens
// are interchangeable.
func ParseCommand(name string) (Command, error) {
	normalized := strings.ReplaceAll(name, "_", "-")
	for c, canonical := range commandNames {
		if normalized == canonical {
			return c, nil
		}
		for _, alias := range commandAliases[c] {
			if normalized == alias {
				return c, nil
			}
		}
	}
	return 0, &UnknownCommandError{Name: name}
}
