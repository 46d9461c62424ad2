package cli

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/spf13/pflag"
)

func createCommand(g *globals, stdout io.Writer) *Command {
	return &Command{
		Name:    "create",
		Summary: "create node state and identity",
		Run: func(args []string) error {
			if len(args) > 0 {
				return usagef("create: unexpected arguments: %q", args)
			}
			app, err := g.openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			fmt.Fprintln(stdout, app.Identity.Identifier())
			return nil
		},
	}
}

func identityCommand(g *globals, stdout io.Writer) *Command {
	var out string
	return &Command{
		Name:    "identity",
		Summary: "inspect the node identity",
		Subcommands: []*Command{
			{
				Name:    "show",
				Summary: "print the identifier",
				Run: func(args []string) error {
					app, err := g.openApp()
					if err != nil {
						return err
					}
					defer app.Close()
					fmt.Fprintln(stdout, app.Identity.Identifier())
					return nil
				},
			},
			{
				Name:    "export",
				Summary: "write the exported identity, for peers to trust as an authority",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
					fs.StringVarP(&out, "out", "o", "", "write to file instead of stdout")
					return fs
				},
				Run: func(args []string) error {
					app, err := g.openApp()
					if err != nil {
						return err
					}
					defer app.Close()
					buf, err := app.Identity.Export()
					if err != nil {
						return err
					}
					return writeOut(stdout, out, buf)
				},
			},
		},
	}
}

func writeOut(stdout io.Writer, path string, buf []byte) error {
	if path == "" {
		_, err := stdout.Write(buf)
		return err
	}
	return ioutil.WriteFile(path, buf, 0644)
}
