// Package server ties the pieces of an attest node together.
//
// An App owns the data directory: it holds a lock on it, opens the
// database and the configured vault, and loads the node identity.
// Start brings up the secure channel listener, the credential
// exchange worker and the TCP transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"

	"bazil.org/attest/attrstore"
	"bazil.org/attest/channel"
	"bazil.org/attest/config"
	"bazil.org/attest/credential"
	"bazil.org/attest/db"
	"bazil.org/attest/exchange"
	"bazil.org/attest/identity"
	"bazil.org/attest/routing"
	"bazil.org/attest/transport/tcp"
	"bazil.org/attest/trust"
	"bazil.org/attest/util/grpcunix"
	"bazil.org/attest/vault"
	"bazil.org/attest/vault/vaultrpc"
)

type App struct {
	DataDir   string
	Config    *config.Config
	lockFile  *os.File
	DB        *db.DB
	Vault     vault.Vault
	Identity  *identity.Identity
	Node      *routing.Node
	Storage   *attrstore.Bolt
	Transport *tcp.Transport

	debug   func(msg interface{})
	closers []func() error

	mu      sync.Mutex
	started bool
	listen  net.Addr
	stop    chan struct{}
	wg      sync.WaitGroup
}

func nop(msg interface{}) {}

// New opens the node state in cfg.DataDir. The data directory is
// locked until Close.
func New(cfg *config.Config, opts ...AppOption) (app *App, err error) {
	var conf appConfig
	for _, opt := range opts {
		if err := opt(&conf); err != nil {
			return nil, err
		}
	}
	if conf.debug == nil {
		conf.debug = nop
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	err = os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.DataDir, "lock")
	lockFile, err := lock(lockPath)
	if err != nil {
		return nil, err
	}
	app = &App{
		DataDir:  cfg.DataDir,
		Config:   cfg,
		lockFile: lockFile,
		debug:    conf.debug,
		stop:     make(chan struct{}),
	}
	defer func() {
		if err != nil {
			// if we're reporting an error, also unlock
			app.Close()
		}
	}()

	dbpath := filepath.Join(cfg.DataDir, "attest.bolt")
	app.DB, err = db.Open(dbpath, 0600, nil)
	if err != nil {
		return nil, err
	}

	app.Vault, err = app.openVault(cfg)
	if err != nil {
		return nil, fmt.Errorf("open vault: %v", err)
	}

	ctx := context.Background()
	vaults := identity.Vaults{Identity: app.Vault}
	app.Identity, err = app.loadOrCreateIdentity(ctx, vaults, cfg.Vault.Backend != config.VaultMemory)
	if err != nil {
		return nil, fmt.Errorf("load identity: %v", err)
	}

	pins, err := cfg.PeerPins()
	if err != nil {
		return nil, err
	}
	app.Node = routing.NewNode(routing.Debug(app.debug))
	app.Storage = attrstore.NewBolt(app.DB)
	app.Transport = tcp.New(app.Node, app.Identity, tcp.Options{
		Debug: app.debug,
		Peers: pins,
	})
	return app, nil
}

// Authorities reads the exported identities the exchange worker
// trusts as credential issuers.
func (app *App) Authorities() ([]*identity.PublicIdentity, error) {
	var authorities []*identity.PublicIdentity
	for _, p := range app.Config.Exchange.Authorities {
		buf, err := ioutil.ReadFile(app.Config.Path(p))
		if err != nil {
			return nil, err
		}
		pub, err := identity.Import(nil, buf)
		if err != nil {
			return nil, fmt.Errorf("authority %s: %v", p, err)
		}
		authorities = append(authorities, pub)
	}
	return authorities, nil
}

func (app *App) listenerPolicy() (trust.Policy, error) {
	ids, err := app.Config.TrustedIdentifiers()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return trust.AllowAll, nil
	}
	return trust.Trusted(ids...), nil
}

var errStarted = errors.New("node already started")

// Start runs the workers and listeners of a serving node. If any of
// them fails to start, the ones already running are stopped and Start
// may be called again.
func (app *App) Start() (err error) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.started {
		return errStarted
	}

	var undo []func()
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}
	}()
	stopWorker := func(addr routing.Address) func() {
		return func() {
			// may already be gone
			_ = app.Node.Stop(addr)
		}
	}

	cfg := app.Config
	policy, err := app.listenerPolicy()
	if err != nil {
		return err
	}
	lopts := channel.ListenerOptions{
		Policy:  policy,
		Timeout: cfg.Listener.HandshakeTimeout,
	}
	listenerAddr := routing.Address(cfg.Listener.Address)
	if err := channel.Listen(app.Node, app.Identity, listenerAddr, lopts); err != nil {
		return err
	}
	undo = append(undo, stopWorker(listenerAddr))

	if cfg.Exchange.Address != "" {
		authorities, err := app.Authorities()
		if err != nil {
			return err
		}
		wopts := exchange.WorkerOptions{
			Authorities: authorities,
			Storage:     app.Storage,
			Mutual:      cfg.Exchange.Mode == config.ExchangeMutual,
		}
		exchangeAddr := routing.Address(cfg.Exchange.Address)
		if err := exchange.StartWorker(app.Node, app.Identity, exchangeAddr, wopts); err != nil {
			return err
		}
		undo = append(undo, stopWorker(exchangeAddr))
	}

	var stopVault func()
	if cfg.Vault.ServeSocket != "" {
		stopVault, err = app.serveVault(cfg.Path(cfg.Vault.ServeSocket))
		if err != nil {
			return fmt.Errorf("serve vault: %v", err)
		}
		undo = append(undo, stopVault)
	}

	if cfg.Listen != "" {
		addr, err := app.Transport.Listen(cfg.Listen)
		if err != nil {
			return err
		}
		app.listen = addr
	}

	if cfg.SweepInterval > 0 {
		app.wg.Add(1)
		go app.sweep(cfg.SweepInterval)
	}
	if stopVault != nil {
		app.closers = append(app.closers, func() error {
			stopVault()
			return nil
		})
	}
	app.started = true

	var listen string
	if app.listen != nil {
		listen = app.listen.String()
	}
	app.debug(Serving{Identifier: app.Identity.Identifier().String(), Listen: listen})
	return nil
}

// ListenAddr returns the TCP address being listened on, or nil.
func (app *App) ListenAddr() net.Addr {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.listen
}

// serveVault serves the vault on a unix socket at path until the
// returned function is called.
func (app *App) serveVault(path string) (stop func(), err error) {
	// we hold the data directory lock, so a socket left here is stale
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	l, err := grpcunix.Listen(path)
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer()
	vaultrpc.Register(srv, app.Vault)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(l); err != nil {
			log.Printf("vault socket: %v", err)
		}
	}()
	return func() {
		srv.Stop()
		<-done
	}, nil
}

func (app *App) sweep(interval time.Duration) {
	defer app.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-app.stop:
			return
		case now := <-ticker.C:
			n, err := app.Storage.Sweep(now)
			if err != nil {
				log.Printf("sweeping expired attributes: %v", err)
				app.debug(SweepFailed{Error: err})
				continue
			}
			app.debug(Swept{Removed: n})
		}
	}
}

// Present opens a secure channel to the node listening at hostport
// and presents the attached credential to its exchange worker. In
// mutual mode the peer's credential is verified against the
// configured authorities, stored, and returned.
func (app *App) Present(ctx context.Context, hostport string, mutual bool) (*credential.AttributeSet, error) {
	route := routing.NewRoute(tcp.Address(hostport), routing.Address(app.Config.Listener.Address))
	var policy trust.Policy = trust.AllowAll
	if pins, err := app.Config.PeerPins(); err != nil {
		return nil, err
	} else if pin, ok := pins[hostport]; ok {
		policy = trust.Trusted(pin)
	}
	ch, err := channel.Create(ctx, app.Node, app.Identity, route, channel.Options{Policy: policy})
	if err != nil {
		return nil, err
	}
	defer ch.Stop()

	exchangeRoute := ch.Route(routing.Address(app.Config.Exchange.Address))
	if !mutual {
		return nil, exchange.PresentCredential(ctx, app.Node, app.Identity, exchangeRoute)
	}
	authorities, err := app.Authorities()
	if err != nil {
		return nil, err
	}
	return exchange.PresentCredentialMutual(ctx, app.Node, app.Identity, exchangeRoute, authorities, app.Storage)
}

// Close stops the node and releases the data directory.
func (app *App) Close() {
	close(app.stop)
	if app.Transport != nil {
		if err := app.Transport.Close(); err != nil {
			log.Printf("closing transport: %v", err)
		}
	}
	if app.Node != nil {
		app.Node.Shutdown()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
	app.wg.Wait()
	if app.DB != nil {
		app.DB.Close()
	}
	app.lockFile.Close()
}
