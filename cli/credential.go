package cli

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"bazil.org/attest/cli/flagx"
	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
)

func issueCommand(g *globals, stdout io.Writer) *Command {
	var (
		attrs = flagx.Attributes{}
		ttl   time.Duration
		out   string
	)
	return &Command{
		Name:    "issue",
		Summary: "issue a credential signed by this node",
		Usage:   "[flags] SUBJECT",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("issue", pflag.ContinueOnError)
			fs.VarP(attrs, "attr", "a", "attribute as name=value, repeatable")
			fs.DurationVar(&ttl, "ttl", 24*time.Hour, "validity period")
			fs.StringVarP(&out, "out", "o", "", "write to file instead of stdout")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return usagef("issue: need exactly one subject identifier")
			}
			var subject identity.Identifier
			if err := subject.UnmarshalText([]byte(args[0])); err != nil {
				return usagef("issue: bad subject: %v", err)
			}
			if ttl <= 0 {
				return usagef("issue: ttl must be positive")
			}

			app, err := g.openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			c, err := credential.Issue(context.Background(), app.Identity, subject, attrs, ttl)
			if err != nil {
				return err
			}
			buf, err := c.MarshalBinary()
			if err != nil {
				return err
			}
			return writeOut(stdout, out, buf)
		},
	}
}

func credentialCommand(g *globals) *Command {
	return &Command{
		Name:    "credential",
		Summary: "manage the credential this node presents",
		Subcommands: []*Command{
			{
				Name:    "attach",
				Summary: "attach an issued credential",
				Usage:   "FILE",
				Run: func(args []string) error {
					if len(args) != 1 {
						return usagef("attach: need exactly one file")
					}
					buf, err := ioutil.ReadFile(args[0])
					if err != nil {
						return err
					}
					app, err := g.openApp()
					if err != nil {
						return err
					}
					defer app.Close()
					return app.AttachCredential(buf)
				},
			},
		},
	}
}

func printAttributes(w io.Writer, set *credential.AttributeSet) {
	fmt.Fprintf(w, "subject %v\n", set.Subject)
	fmt.Fprintf(w, "issuer %v\n", set.Issuer)
	fmt.Fprintf(w, "expires %v\n", set.Expires.UTC().Format(time.RFC3339))
	names := make([]string, 0, len(set.Attributes))
	for name := range set.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s=%s\n", name, set.Attributes[name])
	}
}

func presentCommand(g *globals, stdout io.Writer) *Command {
	var (
		mutual  bool
		timeout time.Duration
	)
	return &Command{
		Name:    "present",
		Summary: "present the attached credential to a remote node",
		Usage:   "[flags] HOST:PORT",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("present", pflag.ContinueOnError)
			fs.BoolVar(&mutual, "mutual", false, "ask for and verify the remote credential")
			fs.DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return usagef("present: need exactly one address")
			}
			var addr flagx.HostPort
			if err := addr.Set(args[0]); err != nil {
				return usagef("present: %v", err)
			}
			app, err := g.openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			set, err := app.Present(ctx, addr.String(), mutual)
			if err != nil {
				return err
			}
			if set != nil {
				printAttributes(stdout, set)
			}
			return nil
		},
	}
}

func versionCommand(stdout io.Writer) *Command {
	return &Command{
		Name:    "version",
		Summary: "show version number",
		Run: func(args []string) error {
			fmt.Fprintln(stdout, Version)
			return nil
		},
	}
}
