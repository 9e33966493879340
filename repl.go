package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mrdg/grains/dub"
)

// eval runs a line of semicolon separated commands and joins their output.
func (s *session) eval(input string) (string, error) {
	cmds, err := dub.ParseLine(input)
	if err != nil {
		return "", err
	}
	var results []string
	for _, command := range cmds {
		result, err := s.exec(command)
		if err != nil {
			return strings.Join(results, "\n"), err
		}
		if result != "" {
			results = append(results, result)
		}
	}
	return strings.Join(results, "\n"), nil
}

func (s *session) exec(command dub.Command) (string, error) {
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if n := len(command.Args); n < cmd.minArgs || n > cmd.maxArgs {
			return "", fmt.Errorf("%s: wrong number of arguments: usage: %s", cmd.name, cmd.usage)
		}
		result, err := cmd.run(s, command.Args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

func repl(s *session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "> ",
		AutoComplete: completer(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		result, err := s.eval(line)
		if result != "" {
			fmt.Fprintln(s.w, result)
		}
		if err != nil {
			fmt.Fprintln(s.w, err)
		}
	}
}

func completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		items = append(items, readline.PcItem(cmd.name))
	}
	return readline.NewPrefixCompleter(items...)
}

type command struct {
	name    string
	usage   string
	run     func(*session, []dub.Node) (string, error)
	minArgs int
	maxArgs int
}

var commands []command

func init() {
	commands = []command{
		{"load", `load "file" [name]`, loadCommand, 1, 2},
		{"tone", "tone name sine|saw|square key seconds [cutoff]", toneCommand, 4, 5},
		{"unload", "unload name", unloadCommand, 1, 1},
		{"on", "on name 'keys [velocity]", noteOnCommand, 2, 3},
		{"off", "off name 'keys", noteOffCommand, 2, 2},
		{"set", "set name param value", setCommand, 3, 3},
		{"cc", "cc name controller value", ccCommand, 3, 3},
		{"map", "map name controller param", mapCommand, 3, 3},
		{"unmap", "unmap name controller", unmapCommand, 2, 2},
		{"mode", "mode name pitch|slice", modeCommand, 2, 2},
		{"poly", "poly name voices", polyCommand, 2, 2},
		{"preset", "preset name preset", presetCommand, 2, 2},
		{"channel", "channel name midi-channel", channelCommand, 2, 2},
		{"show", "show [name]", showCommand, 0, 1},
		{"render", `render name "file.wav" seconds 'keys [step]`, renderCommand, 4, 5},
		{"list", "list", listCommand, 0, 0},
		{"help", "help", helpCommand, 0, 0},
	}
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) > len(slots) {
		return errors.New("too many arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			default:
				return fmt.Errorf("argument error: expected a number")
			}
		case *int:
			v, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer")
			}
			*p = int(v)
		case *uint8:
			v, ok := arg.(dub.Int)
			if !ok || v < 0 || v > 127 {
				return fmt.Errorf("argument error: expected an integer between 0 and 127")
			}
			*p = uint8(v)
		case *dub.KeySet:
			keys, ok := arg.(dub.KeySet)
			if !ok {
				return fmt.Errorf("argument error: expected keys like '60 or '48:60")
			}
			*p = keys
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
