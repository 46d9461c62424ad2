package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// errUsage means the command line was wrong; Main exits with status
// 2 for it.
var errUsage = errors.New("usage error")

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Is(target error) bool {
	return target == errUsage
}

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Command is a node of the command tree.
type Command struct {
	Name    string
	Summary string
	Usage   string

	// Flags returns the flags of this command. Nil means none.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run executes the command with the arguments left after flag
	// parsing.
	Run func(args []string) error

	parent *Command
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// Execute parses the flags of c and runs it, or dispatches to a
// subcommand.
func (c *Command) Execute(w io.Writer, args []string) error {
	if len(args) > 0 && isHelp(args[0]) {
		c.PrintHelp(w)
		return nil
	}
	if c.Flags != nil {
		fs := c.Flags()
		fs.SetOutput(io.Discard)
		// flags after the subcommand name belong to the subcommand
		fs.SetInterspersed(len(c.Subcommands) == 0)
		if err := fs.Parse(args); err != nil {
			return usagef("%s: %v", c.fullName(), err)
		}
		args = fs.Args()
	}

	if len(c.Subcommands) > 0 {
		if len(args) == 0 {
			c.PrintHelp(w)
			return usagef("%s: missing command", c.fullName())
		}
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.Execute(w, args[1:])
			}
		}
		return usagef("%s: unknown command %q", c.fullName(), args[0])
	}
	return c.Run(args)
}

// PrintHelp writes usage of c to w.
func (c *Command) PrintHelp(w io.Writer) {
	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}
	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s %s\n", c.fullName(), c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s [flags] <command>\n", c.fullName())
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}
	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}
	if c.Flags != nil {
		var b strings.Builder
		fs := c.Flags()
		fs.SetOutput(&b)
		fs.PrintDefaults()
		if b.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", b.String())
		}
	}
}
