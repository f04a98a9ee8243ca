// Package cli provides shared CLI utilities for botsmith and botsmithd.
package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandSchema is the machine-readable description of one command that
// --help-json emits.
type commandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Flags       []flagSchema    `json:"flags,omitempty"`
	Subcommands []commandSchema `json:"subcommands,omitempty"`
}

type flagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

func describeCommand(cmd *cobra.Command) commandSchema {
	schema := commandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" || f.Name == "help-json" {
			return
		}
		schema.Flags = append(schema.Flags, flagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
		})
	})

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, describeCommand(sub))
	}

	return schema
}

func writeSchema(w io.Writer, cmd *cobra.Command) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(describeCommand(cmd))
}

// AddHelpJSONFlag registers --help-json on the command tree.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON scans os.Args for --help-json and, if present, prints the
// schema for the named subcommand and exits. Call it before Execute so the
// flag works even where arg validation would otherwise reject the call.
func CheckHelpJSON(rootCmd *cobra.Command) {
	for i, arg := range os.Args {
		if arg != "--help-json" {
			continue
		}
		if err := writeSchema(os.Stdout, findCommand(rootCmd, os.Args[1:i])); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
}

func findCommand(cmd *cobra.Command, args []string) *cobra.Command {
	for _, arg := range args {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == arg || sub.HasAlias(arg) {
				cmd = sub
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return cmd
}
