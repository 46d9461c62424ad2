package cli

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"bazil.org/attest/cli/flagx"
)

func runCommand(g *globals) *Command {
	var listen flagx.HostPort
	return &Command{
		Name:    "run",
		Summary: "run attest node",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
			fs.Var(&listen, "listen", "TCP address to listen on, overriding the config")
			return fs
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return usagef("run: unexpected arguments: %q", args)
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen.String()
			}
			app, err := g.openConfigured(cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.Start(); err != nil {
				return err
			}
			if addr := app.ListenAddr(); addr != nil {
				log.Printf("%v listening on %v", app.Identity.Identifier(), addr)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			<-sig
			return nil
		},
	}
}
