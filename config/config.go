// Package config holds the settings of an attest node.
//
// Settings come from a YAML file laid over Default. Relative paths
// are resolved against the data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Wessie/appdirs"
	"gopkg.in/yaml.v3"

	"bazil.org/attest/identity"
)

// Vault backends.
const (
	VaultBolt   = "bolt"
	VaultFile   = "file"
	VaultMemory = "memory"
	VaultRemote = "remote"
)

// Exchange modes.
const (
	ExchangeOneWay = "one-way"
	ExchangeMutual = "mutual"
)

type Config struct {
	// DataDir holds the lock file, the database and file vaults.
	DataDir string `yaml:"data_dir"`

	// Listen is the TCP address to accept connections on. Empty
	// disables listening; the node can still dial out.
	Listen string `yaml:"listen"`

	// Peers pins the identifier expected behind a "host:port".
	Peers map[string]string `yaml:"peers"`

	Vault    VaultConfig    `yaml:"vault"`
	Listener ListenerConfig `yaml:"listener"`
	Exchange ExchangeConfig `yaml:"exchange"`

	// SweepInterval is how often expired attributes are removed
	// from storage. Zero disables sweeping; expired sets still read
	// as absent.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type VaultConfig struct {
	// Backend is one of bolt, file, memory or remote.
	Backend string `yaml:"backend"`

	// SecretFile holds the 32 byte key sealing the bolt vault.
	// Created if missing.
	SecretFile string `yaml:"secret_file"`

	// Dir is the directory of the file vault, and IdentityFile the
	// age identity encrypting it. Both are created if missing.
	Dir          string `yaml:"dir"`
	IdentityFile string `yaml:"identity_file"`

	// Remote reaches a vault served by another process.
	Remote RemoteVaultConfig `yaml:"remote"`

	// ServeSocket, if set, serves this node's vault to local
	// processes on a Unix socket.
	ServeSocket string `yaml:"serve_socket"`
}

type RemoteVaultConfig struct {
	// Socket is a Unix socket path. Exclusive with Address.
	Socket string `yaml:"socket"`

	// Address is a TCP "host:port" spoken to with edtls, and
	// Identifier the identity the server must vouch for.
	Address    string `yaml:"address"`
	Identifier string `yaml:"identifier"`
}

type ListenerConfig struct {
	// Address is the local routing address of the secure channel
	// listener.
	Address string `yaml:"address"`

	// Trusted lists the identifiers allowed to open channels. Empty
	// trusts every identity that proves its key.
	Trusted []string `yaml:"trusted"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

type ExchangeConfig struct {
	// Address is the local routing address of the credential
	// exchange worker. Empty disables it.
	Address string `yaml:"address"`

	// Mode is one-way or mutual.
	Mode string `yaml:"mode"`

	// Authorities are files holding exported identities whose
	// credentials are accepted.
	Authorities []string `yaml:"authorities"`
}

// DefaultDataDir is where node state lives unless configured.
func DefaultDataDir() string {
	return appdirs.UserDataDir("attest", "", "", false)
}

// Default returns the configuration used for anything a file does
// not set.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Vault: VaultConfig{
			Backend:      VaultBolt,
			SecretFile:   "vault.secret",
			Dir:          "vault",
			IdentityFile: "vault.age-identity",
		},
		Listener: ListenerConfig{
			Address:          "listener",
			HandshakeTimeout: 10 * time.Second,
		},
		Exchange: ExchangeConfig{
			Address: "credential_exchange",
			Mode:    ExchangeOneWay,
		},
		SweepInterval: 10 * time.Minute,
	}
}

// LoadFile reads the YAML file at path over Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config %s: %v", path, err)
	}
	return nil
}

// Path resolves p against the data directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	backends := []string{VaultBolt, VaultFile, VaultMemory, VaultRemote}
	if !contains(backends, c.Vault.Backend) {
		errs = append(errs, fmt.Errorf("vault.backend must be one of: %v", backends))
	}
	if c.Vault.Backend == VaultRemote {
		r := c.Vault.Remote
		switch {
		case r.Socket == "" && r.Address == "":
			errs = append(errs, errors.New("vault.remote needs socket or address"))
		case r.Socket != "" && r.Address != "":
			errs = append(errs, errors.New("vault.remote takes socket or address, not both"))
		case r.Address != "" && r.Identifier == "":
			errs = append(errs, errors.New("vault.remote.identifier is required with address"))
		}
		if r.Identifier != "" {
			if _, err := parseIdentifier(r.Identifier); err != nil {
				errs = append(errs, fmt.Errorf("vault.remote.identifier: %v", err))
			}
		}
	}

	if c.Listener.Address == "" {
		errs = append(errs, errors.New("listener.address is required"))
	}
	if _, err := c.TrustedIdentifiers(); err != nil {
		errs = append(errs, fmt.Errorf("listener.trusted: %v", err))
	}
	if c.Listener.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("listener.handshake_timeout must not be negative"))
	}

	modes := []string{ExchangeOneWay, ExchangeMutual}
	if !contains(modes, c.Exchange.Mode) {
		errs = append(errs, fmt.Errorf("exchange.mode must be one of: %v", modes))
	}

	if _, err := c.PeerPins(); err != nil {
		errs = append(errs, fmt.Errorf("peers: %v", err))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("sweep_interval must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func parseIdentifier(s string) (identity.Identifier, error) {
	var id identity.Identifier
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// TrustedIdentifiers parses Listener.Trusted.
func (c *Config) TrustedIdentifiers() ([]identity.Identifier, error) {
	ids := make([]identity.Identifier, 0, len(c.Listener.Trusted))
	for _, s := range c.Listener.Trusted {
		id, err := parseIdentifier(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %v", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// PeerPins parses Peers.
func (c *Config) PeerPins() (map[string]identity.Identifier, error) {
	pins := make(map[string]identity.Identifier, len(c.Peers))
	for hostport, s := range c.Peers {
		id, err := parseIdentifier(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", hostport, err)
		}
		pins[hostport] = id
	}
	return pins, nil
}

// RemoteIdentifier parses Vault.Remote.Identifier.
func (c *Config) RemoteIdentifier() (identity.Identifier, error) {
	return parseIdentifier(c.Vault.Remote.Identifier)
}
