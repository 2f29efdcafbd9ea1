package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Argument struct {
	name        string
	required    bool
	acceptsMany bool
	description string
}

func NewArgument(name string, required bool, acceptsMany bool, description string) Argument {
	return Argument{name: name, required: required, acceptsMany: acceptsMany, description: description}
}

func (arg Argument) String() string {
	argname := arg.name
	if arg.acceptsMany {
		argname += "..."
	}
	if arg.required {
		return argname
	}
	return "[" + argname + "]"
}

// Env is what a command sees of its invocation. Origin identifies the
// caller, e.g. the slack channel.
type Env struct {
	Ctx    context.Context
	Args   []string
	Origin string
}

type Command struct {
	Trigger     string
	Arguments   []Argument
	Description string
	Execute     func(Env) Result
}

func (c Command) required() int {
	return len(lo.Filter(c.Arguments, func(a Argument, _ int) bool { return a.required }))
}

func (c Command) Usage() string {
	args := lo.Map(c.Arguments, func(a Argument, _ int) string { return a.String() })
	return strings.TrimSpace(c.Trigger + " " + strings.Join(args, " "))
}

func (c Command) String() string {
	output := fmt.Sprintf("`%s`: %s", c.Trigger, c.Description)
	output += fmt.Sprintf("\nUsage: `%s`", c.Usage())
	for _, arg := range c.Arguments {
		output += fmt.Sprintf("\n\t`%s`: %s", arg.name, arg.description)
	}
	return output
}

// Result is the reply to a command. Public results may be shown to everyone
// sharing the origin.
type Result struct {
	Public  bool
	Message string
	Err     error
}

func Reply(public bool, message string) Result {
	return Result{Public: public, Message: message}
}

func Fail(err error, format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...) + fmt.Sprintf(": %s", err), Err: err}
}
