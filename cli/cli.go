// Package cli is the attest command line.
package cli

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/tv42/jog"

	"bazil.org/attest/cli/flagx"
	"bazil.org/attest/config"
	"bazil.org/attest/server"
)

// Version is reported by the version command.
var Version = "dev"

// global flags, shared by every command
type globals struct {
	ConfigFile flagx.AbsPath
	DataDir    flagx.AbsPath
	Debug      bool
}

// loadConfig reads the configuration file, by default config.yaml in
// the data directory if present, and applies flag overrides.
func (g *globals) loadConfig() (*config.Config, error) {
	dataDir := g.DataDir.String()
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := g.ConfigFile.String()
	if path == "" {
		path = filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return nil, err
		}
	}
	if g.DataDir != "" {
		cfg.DataDir = g.DataDir.String()
	}
	return cfg, nil
}

func (g *globals) openApp() (*server.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return g.openConfigured(cfg)
}

func (g *globals) openConfigured(cfg *config.Config) (*server.App, error) {
	var opts []server.AppOption
	if g.Debug {
		log := jog.New(nil)
		opts = append(opts, server.Debug(log.Event))
	}
	return server.New(cfg, opts...)
}

func newRoot(g *globals, stdout io.Writer) *Command {
	return &Command{
		Name:    "attest",
		Summary: "Authenticated channels and credential exchange between nodes.",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("attest", pflag.ContinueOnError)
			fs.Var(&g.ConfigFile, "config", "path to config file (default data-dir/config.yaml)")
			fs.Var(&g.DataDir, "data-dir", "path to node state (default "+config.DefaultDataDir()+")")
			fs.BoolVar(&g.Debug, "debug", false, "debug output")
			return fs
		},
		Subcommands: []*Command{
			runCommand(g),
			createCommand(g, stdout),
			identityCommand(g, stdout),
			issueCommand(g, stdout),
			credentialCommand(g),
			presentCommand(g, stdout),
			versionCommand(stdout),
		},
	}
}

func execute(stdout io.Writer, args []string) error {
	var g globals
	return newRoot(&g, stdout).Execute(stdout, args)
}

// Main is primary entry point into the attest command line
// application.
func Main() (exitstatus int) {
	progName := filepath.Base(os.Args[0])
	log.SetFlags(0)
	log.SetPrefix(progName + ": ")

	err := execute(os.Stdout, os.Args[1:])
	if errors.Is(err, errUsage) {
		log.Print(err)
		return 2
	}
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	return 0
}
