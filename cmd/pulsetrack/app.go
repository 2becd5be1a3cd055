package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pbaille/pulsetrack/internal/config"
	"github.com/pbaille/pulsetrack/internal/observability"
	"github.com/pbaille/pulsetrack/internal/prefs"
	"github.com/pbaille/pulsetrack/internal/remote"
	"github.com/pbaille/pulsetrack/internal/remote/sqlstore"
	"github.com/pbaille/pulsetrack/internal/store"
)

const secretKey = "pulsetrack-jwt-secret"

// app wires configuration, local prefs, the row store and the record store
// for one command invocation
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	prefs    *prefs.Store
	db       *sqlstore.Store
	auth     *sqlstore.Auth
	registry *prometheus.Registry
	store    *store.Store
	st       styles
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	p, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, prefs: p, registry: prometheus.NewRegistry()}
	theme, err := p.Theme()
	if err != nil {
		logger.Warn("read theme", "error", err)
	}
	a.st = newStyles(theme)

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithMetrics(observability.NewMetrics(a.registry)),
		store.WithPersistTimeout(cfg.PersistTimeout),
	}
	if localOnly {
		a.store = store.New(nil, opts...)
		return a, nil
	}

	if cfg.DB.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.DSN), 0o755); err != nil {
			p.Close()
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlstore.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		p.Close()
		return nil, err
	}
	secret, err := jwtSecret(cfg, p)
	if err != nil {
		db.Close()
		p.Close()
		return nil, err
	}
	auth, err := sqlstore.NewAuth(db, secret, p)
	if err != nil {
		db.Close()
		p.Close()
		return nil, err
	}

	a.db, a.auth = db, auth
	a.store = store.New(remote.NewGateway(db, auth), opts...)
	if err := a.store.Hydrate(ctx); err != nil {
		fmt.Printf("(sync skipped: %v)\n", err)
	}
	return a, nil
}

// jwtSecret returns the configured secret, or a per-machine secret generated
// on first use and kept in prefs.
func jwtSecret(cfg config.Config, p *prefs.Store) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	secret, err := prefs.Get[string](p, secretKey)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, prefs.ErrNotSet) {
		return "", fmt.Errorf("read jwt secret: %w", err)
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	secret = hex.EncodeToString(b)
	if err := prefs.Save(p, secretKey, secret); err != nil {
		return "", fmt.Errorf("save jwt secret: %w", err)
	}
	return secret, nil
}

// Close waits for background persistence, then releases everything.
func (a *app) Close() {
	a.store.Wait()
	a.store.Stop()
	if a.db != nil {
		a.db.Close()
	}
	a.prefs.Close()
}

// session returns the signed-in session, or nil.
func (a *app) session(ctx context.Context) *remote.Session {
	if a.auth == nil {
		return nil
	}
	sess, err := a.auth.GetSession(ctx)
	if err != nil {
		a.logger.Warn("get session", "error", err)
		return nil
	}
	return sess
}

// noteUnsaved tells the user when a change will not outlive the process.
func (a *app) noteUnsaved(ctx context.Context) {
	if a.auth == nil {
		fmt.Println(a.st.Muted.Render("(local only: changes are not saved)"))
		return
	}
	if a.session(ctx) == nil {
		fmt.Println(a.st.Muted.Render("(not signed in: changes are not saved; run 'pulsetrack login')"))
	}
}

// withApp opens the app around a command body.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

// resolve finds one record by ID prefix or, failing that, by exact
// case-insensitive name.
func resolve[T any](items []T, key, kind string, idOf, nameOf func(T) string) (T, error) {
	var zero T
	var matches []T
	for _, item := range items {
		if strings.HasPrefix(idOf(item), key) {
			matches = append(matches, item)
		}
	}
	if len(matches) == 0 {
		for _, item := range items {
			if strings.EqualFold(nameOf(item), key) {
				matches = append(matches, item)
			}
		}
	}

	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%s not found: %s", kind, key)
	case 1:
		return matches[0], nil
	}
	return zero, fmt.Errorf("%s %q is ambiguous (%d matches)", kind, key, len(matches))
}
