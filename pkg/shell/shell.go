package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type Shell struct {
	ops      Operations
	commands []Command
}

func New(ops Operations) *Shell {
	s := &Shell{ops: ops}
	s.commands = append(s.helpCommand(), agentCommands(ops)...)
	return s
}

func (s *Shell) Commands() []Command {
	return s.commands
}

// Extend adds commands after the built-in ones.
func (s *Shell) Extend(commands ...Command) {
	s.commands = append(s.commands, commands...)
}

func (s *Shell) lookup(trigger string) (Command, bool) {
	for _, c := range s.commands {
		if c.Trigger == trigger {
			return c, true
		}
	}
	return Command{}, false
}

func (s *Shell) Execute(ctx context.Context, origin string, line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Reply(false, "Please specify a command, or `help` to list them.")
	}

	command, ok := s.lookup(fields[0])
	if !ok {
		return Reply(false, fmt.Sprintf("Unknown command: %s", fields[0]))
	}

	args := fields[1:]
	if len(args) < command.required() {
		return Reply(false, fmt.Sprintf("Missing arguments. Usage: `%s`", command.Usage()))
	}
	return command.Execute(Env{Ctx: ctx, Args: args, Origin: origin})
}

// Run reads commands line by line until in is exhausted or the user exits.
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer, prompt string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result := s.Execute(ctx, "", line)
		fmt.Fprintln(out, result.Message)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Shell) helpCommand() []Command {
	return []Command{{
		Trigger: "help",
		Arguments: []Argument{
			NewArgument("command", false, false, "The command to get help about."),
		},
		Description: "Get help about a command.",
		Execute: func(env Env) Result {
			if len(env.Args) == 0 {
				output := "The known commands are:"
				for _, command := range s.commands {
					output += fmt.Sprintf(" `%s`", command.Trigger)
				}
				return Reply(false, output)
			}
			command, ok := s.lookup(env.Args[0])
			if !ok {
				return Reply(false, fmt.Sprintf("No such command: %s", env.Args[0]))
			}
			return Reply(false, command.String())
		},
	}}
}
