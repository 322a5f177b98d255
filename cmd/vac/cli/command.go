// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the vac command tree. A node either runs
// (Run) or groups other nodes (Subcommands); with both set, Run handles
// arguments that name no subcommand.
type Command struct {
	Name    string
	Summary string // one line, shown in the parent's command list

	// Description replaces Summary at the top of the command's own help.
	Description string

	// Usage overrides the synthesized "vac <path> [flags]" line.
	Usage string

	Examples []Example

	// Flags builds a fresh flag set on each call. Nil means the command
	// takes no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	Run func(ctx context.Context, args []string, logger *slog.Logger) error

	// Output receives help text. Unset nodes use their parent's, and
	// the root falls back to stderr.
	Output io.Writer

	parent *Command
}

// Example is one entry in the Examples section of help.
type Example struct {
	Description string
	Command     string
}

// Execute dispatches args through the tree and runs the selected
// command. The logger passed to Run carries a "command" attribute
// naming the command path ("keys/generate").
func (c *Command) Execute(ctx context.Context, args []string, logger *slog.Logger) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.output())
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			sub := c.lookup(args[0])
			if sub == nil {
				return c.unknownCommand(args[0])
			}
			sub.parent = c
			return sub.Execute(ctx, args[1:], logger)
		}
		if c.Run == nil {
			c.PrintHelp(c.output())
			if len(args) == 0 {
				return fmt.Errorf("subcommand required")
			}
			return fmt.Errorf("subcommand required (got flag %q)", args[0])
		}
	}

	args, err := c.parseFlags(args)
	if err != nil {
		return err
	}

	if c.Run == nil {
		c.PrintHelp(c.output())
		return fmt.Errorf("no action defined for %q", c.fullName())
	}
	return c.Run(ctx, args, logger.With("command", c.path()))
}

func (c *Command) lookup(name string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

func (c *Command) unknownCommand(name string) error {
	if match := suggestCommand(name, c.Subcommands); match != "" {
		return c.usageError(fmt.Sprintf("unknown command %q (did you mean %q?)", name, match))
	}
	return c.usageError(fmt.Sprintf("unknown command %q", name))
}

// parseFlags returns the positional arguments left after flags. pflag's
// own error printing is silenced; unknown flags get a suggestion.
func (c *Command) parseFlags(args []string) ([]string, error) {
	if c.Flags == nil {
		return args, nil
	}
	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)
	err := flagSet.Parse(args)
	if err == nil {
		return flagSet.Args(), nil
	}

	message := err.Error()
	if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand flag") {
		// Parse leaves the set half-populated; look up in a new one.
		if match := suggestFlag(args, c.Flags()); match != "" {
			message += " (did you mean " + match + "?)"
		}
	}
	return nil, c.usageError(message)
}

func (c *Command) usageError(message string) error {
	return fmt.Errorf("%s\n\nRun '%s --help' for usage.", message, c.fullName())
}

// PrintHelp writes the command's help page to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	if intro := c.Description; intro != "" || c.Summary != "" {
		if intro == "" {
			intro = c.Summary
		}
		fmt.Fprintf(w, "%s\n\n", intro)
	}

	usage := c.Usage
	switch {
	case usage != "":
	case len(c.Subcommands) > 0:
		usage = name + " <command> [flags]"
	default:
		usage = name + " [flags]"
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)

	if len(c.Subcommands) > 0 {
		fmt.Fprint(w, "\nCommands:\n")
		table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if usages := c.Flags().FlagUsages(); usages != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usages)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprint(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description == "" {
				fmt.Fprintf(w, "  %s\n", example.Command)
				continue
			}
			fmt.Fprintf(w, "  # %s\n  %s\n\n", example.Description, example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

// fullName is the command line that reaches c ("vac keys generate").
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

// path is fullName without the binary, slash-separated.
func (c *Command) path() string {
	var names []string
	for node := c; node != nil && node.parent != nil; node = node.parent {
		names = append([]string{node.Name}, names...)
	}
	if len(names) == 0 {
		return c.Name
	}
	return strings.Join(names, "/")
}

func (c *Command) output() io.Writer {
	for node := c; node != nil; node = node.parent {
		if node.Output != nil {
			return node.Output
		}
	}
	return os.Stderr
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}
