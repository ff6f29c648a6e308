package client

import "strings"

// ActionKind classifies a parsed prompt line (§4.6).
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionCommand
	ActionSwitchActive
	ActionWriteNamed
	ActionWriteActive
)

// Action is the result of parsing one submitted line.
type Action struct {
	Kind    ActionKind
	Command string   // for ActionCommand: the ":name" without the colon
	Args    []string // for ActionCommand: remaining whitespace-split args
	Target  string   // for ActionSwitchActive/ActionWriteNamed: the channel name
	Text    string   // for ActionWriteNamed/ActionWriteActive: the line to send
}

// ParseLine classifies one submitted prompt line per §4.6.
func ParseLine(line string) Action {
	if line == "" {
		return Action{Kind: ActionNone}
	}

	if strings.HasPrefix(line, ":") {
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			return Action{Kind: ActionNone}
		}
		return Action{Kind: ActionCommand, Command: fields[0], Args: fields[1:]}
	}

	if strings.HasPrefix(line, "@") {
		rest := line[1:]
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			name := rest[:i]
			text := rest[i+1:]
			if len(text) > 0 && text[0] == ' ' {
				text = text[1:]
			}
			if text == "" {
				return Action{Kind: ActionSwitchActive, Target: name}
			}
			return Action{Kind: ActionWriteNamed, Target: name, Text: text}
		}
		return Action{Kind: ActionSwitchActive, Target: rest}
	}

	return Action{Kind: ActionWriteActive, Text: line}
}
