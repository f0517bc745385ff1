package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/lapidary/puzzle"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"sim": {
		Options: []string{"-iterations", "-threads", "-stop", "-tolerance"},
		Args:    []string{"stop", "show", "details", "log"},
	},
	"optimize": {
		Options: []string{"-scenario"},
		Args:    []string{"stop", "plan"},
	},
	"mode": {
		Args: []string{"1", "2", "super-epic", "unique"},
	},
	"board": {
		Args: []string{"full"},
	},
	"help": {
		Args: []string{"plan", "sim", "optimize", "inventory"},
	},
	"set": {
		Options: []string{"-save"},
	},
}

var commandNames = []string{
	"help", "mode", "plan", "sim", "board", "inventory", "role",
	"optimize", "show", "set", "exit",
}

var stopValues = []string{"0", "95", "98", "99"}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		switch lastCompleteField {
		case "-stop":
			completions = stopValues
		case "-save":
			completions = []string{"true", "false"}
		}

		if completions == nil && cmdName == "role" && c.sc.catalog != nil {
			completions = lo.Map(c.sc.catalog.Roles, func(r *puzzle.Role, _ int) string { return r.Name })
		}
		if completions == nil && cmdName == "set" && c.sc.config != nil {
			completions = c.sc.config.AllKeys()
		}
		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
