package cli

import (
	"os"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/keysmith/keysmith/internal/backup"
	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/chainreg"
	"github.com/keysmith/keysmith/internal/keystore"
	"github.com/keysmith/keysmith/internal/manager"
	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/session"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// App bundles the assembled wallet components a command needs. One App is
// built per invocation in getApp and torn down in cleanup; tests construct
// their own against a temp directory and install it with setApp.
type App struct {
	Registry *chain.Registry
	Secrets  keystore.Store
	Sessions *session.Manager
	Metadata *metadata.Store
	Manager  *manager.Manager
	Backups  *backup.Service
}

// app is the per-invocation component graph, built on first use.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var app *App

// getApp returns the assembled application, building it on first call.
func getApp() (*App, error) {
	if app != nil {
		return app, nil
	}

	built, err := buildApp()
	if err != nil {
		return nil, err
	}
	app = built
	return app, nil
}

// setApp installs a pre-built application. Used by tests.
func setApp(a *App) {
	app = a
}

// closeApp locks all sessions and releases storage handles.
func closeApp() {
	if app == nil {
		return
	}
	if app.Manager != nil {
		app.Manager.LockAll()
	}
	if app.Metadata != nil {
		_ = app.Metadata.Close()
	}
	app = nil
}

// buildApp wires the component graph from the global configuration.
func buildApp() (*App, error) {
	home := cfg.HomeDir()
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, kserr.Wrap(err, "creating data directory")
	}

	registry := chainreg.Default()

	secrets := keystore.NewFileStore(cfg.SecretsDir(), keystore.KDFParams{
		Memory:  cfg.KDF.MemoryMiB * 1024,
		Time:    cfg.KDF.Passes,
		Threads: cfg.KDF.Lanes,
	})

	sessions := session.NewManager(clock.NewDefaultClock())

	meta, err := metadata.Open(cfg.MetadataPath())
	if err != nil {
		return nil, err
	}

	mgr := manager.NewManager(&manager.Config{
		Registry:       registry,
		Secrets:        secrets,
		Sessions:       sessions,
		Metadata:       meta,
		Logger:         logger,
		SessionTTL:     cfg.SessionTTL(),
		UnlockInterval: cfg.UnlockInterval(),
		UnlockBurst:    cfg.Security.UnlockBurst,
	})

	return &App{
		Registry: registry,
		Secrets:  secrets,
		Sessions: sessions,
		Metadata: meta,
		Manager:  mgr,
		Backups:  backup.NewService(cfg.BackupsDir(), secrets, meta),
	}, nil
}
