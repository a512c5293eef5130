// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the refine command tree. A node either runs
// (Run) or dispatches on its first argument (Subcommands).
type Command struct {
	// Name as typed: "get-ticket".
	Name string

	// Summary is the line shown next to Name in the parent's listing.
	Summary string

	// Description is the body of the command's own --help.
	Description string

	// Usage line, e.g. "refine get-ticket KEY [flags]". Built from the
	// command path when empty.
	Usage string

	Examples []Example

	// Flags builds the command's flag set. It is called again for each
	// parse, so params bound inside it are reset too. Nil means no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	Run func(ctx context.Context, args []string) error

	// HelpOutput receives help text. Inherited from the parent when
	// nil; io.Discard at the root when nothing is set.
	HelpOutput io.Writer

	// parent links back up the tree during dispatch so help and
	// errors can name the full command path.
	parent *Command
}

// Example is one "# what / command" pair in --help.
type Example struct {
	Description string
	Command     string
}

// Execute parses args and dispatches to the appropriate subcommand or
// Run function. Unknown commands, unknown flags and unparseable flag
// values come back as a *UsageError.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name := args[0]
		for _, sub := range c.Subcommands {
			if sub.Name == name {
				sub.parent = c
				return sub.Execute(ctx, args[1:])
			}
		}

		if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
			return Usage("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.",
				name, suggestion, c.fullName())
		}
		return Usage("unknown command %q\n\nRun '%s --help' for usage.", name, c.fullName())
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(c.helpOutput())
		if len(args) == 0 {
			return Usage("command required")
		}
		return Usage("command required (got flag %q)", args[0])
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)

		if err := flagSet.Parse(args); err != nil {
			if err == pflag.ErrHelp {
				c.PrintHelp(c.helpOutput())
				return nil
			}
			message := err.Error()
			if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand flag") {
				// Parse consumed state; look the suggestion up on a fresh set.
				if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
					return Usage("%s (did you mean %s?)\n\nRun '%s --help' for usage.",
						message, suggestion, c.fullName())
				}
			}
			return Usage("%s\n\nRun '%s --help' for usage.", message, c.fullName())
		}
		args = flagSet.Args()
	}

	if c.Run != nil {
		return c.Run(ctx, args)
	}

	c.PrintHelp(c.helpOutput())
	return fmt.Errorf("no action defined for %q", c.fullName())
}

// PrintHelp writes the description, usage line, subcommand table,
// flags and examples of c to w, skipping empty sections.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()
	about := c.Description
	if about == "" {
		about = c.Summary
	}
	if about != "" {
		fmt.Fprintln(w, about)
		fmt.Fprintln(w)
	}

	usage := c.Usage
	switch {
	case usage != "":
	case len(c.Subcommands) > 0:
		usage = name + " <command> [flags]"
	default:
		usage = name + " [flags]"
	}
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  "+usage)

	if len(c.Subcommands) > 0 {
		fmt.Fprintln(w, "\nCommands:")
		table := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if flags := c.Flags().FlagUsages(); flags != "" {
			fmt.Fprint(w, "\nFlags:\n", flags)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintln(w, "\nExamples:")
		for index, example := range c.Examples {
			if index > 0 && c.Examples[index-1].Description != "" {
				fmt.Fprintln(w)
			}
			if example.Description != "" {
				fmt.Fprintln(w, "  # "+example.Description)
			}
			fmt.Fprintln(w, "  "+example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nUse \"%s <command> --help\" for details on a command.\n", name)
	}
}

// RequireArgs returns a *UsageError unless exactly count positional
// arguments remain. names label them in the message.
func (c *Command) RequireArgs(args []string, names ...string) error {
	if len(args) == len(names) {
		return nil
	}
	return Usage("%s takes %d argument(s): %s (got %d)\n\nRun '%s --help' for usage.",
		c.fullName(), len(names), strings.Join(names, " "), len(args), c.fullName())
}

// fullName is the path from the root, such as "refine get-ticket".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.HelpOutput != nil {
			return command.HelpOutput
		}
	}
	return io.Discard
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
