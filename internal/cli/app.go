// Package cli is the interactive client: an external caller of the
// repository API, nothing more. All sync and sharing semantics live below
// it.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/daybook-app/daybook/internal/blob"
	"github.com/daybook-app/daybook/internal/config"
	"github.com/daybook-app/daybook/internal/filex"
	"github.com/daybook-app/daybook/internal/identity"
	"github.com/daybook-app/daybook/internal/local"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/remote"
	"github.com/daybook-app/daybook/internal/repo"
	"github.com/daybook-app/daybook/internal/sharing"
	"github.com/daybook-app/daybook/internal/sync"
)

type App struct {
	config    *config.Config
	log       logging.Logger
	store     *local.Store
	meta      *local.Meta
	provider  *identity.TokenProvider
	authority remote.Authority
	repos     *repo.Repositories
	reader    *bufio.Reader

	offline atomic.Bool
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	dbPath := cfg.LocalDBPath
	if filepath.Dir(dbPath) == "." {
		dir, err := filex.EnsureSubDir("data")
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, dbPath)
	}

	store, err := local.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	var authority remote.Authority
	if cfg.RemoteDSN == "" {
		logger.Warn(ctx, "no remote DSN configured, using in-memory authority")
		authority = remote.NewMemoryStore()
	} else {
		pg, err := remote.NewPostgresStore(ctx, cfg.RemoteDSN)
		if err != nil {
			store.Close()
			return nil, err
		}
		authority = pg
	}

	provider := identity.NewTokenProvider([]byte(cfg.SessionKey))
	shares := sharing.NewService(authority, provider, logger)
	manager := sync.NewManager(provider, logger)

	var uploader repo.Uploader
	if cfg.S3Bucket != "" {
		uploader = blob.NewStore(blob.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}

	repos := repo.New(store, authority, shares, manager, uploader, logger)

	return &App{
		config:    cfg,
		log:       logger,
		store:     store,
		meta:      local.NewMeta(store),
		provider:  provider,
		authority: authority,
		repos:     repos,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

// Run resumes any persisted session, starts the identity-change and
// online-status watchers and enters the command loop.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.store.Close()

	go a.repos.Sync.Run(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	if token, err := a.meta.Get(ctx, local.MetaSessionToken); err == nil && len(token) > 0 {
		if id, err := a.provider.SetToken(string(token)); err != nil {
			a.log.Warn(ctx, "stored session token rejected", "error", err)
			_ = a.meta.Delete(ctx, local.MetaSessionToken)
		} else {
			a.log.Info(ctx, "session resumed", "email", id.Email)
		}
	}

	a.Root(ctx)
}

func (a *App) currentEmail(ctx context.Context) string {
	id, err := a.provider.Current(ctx)
	if err != nil || id == nil {
		return ""
	}
	return id.Email
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.currentEmail(ctx) != ""
}

// StartOnlineStatusWatcher periodically pings the authority and flips the
// offline flag on transitions. It returns when ctx is cancelled.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	pinger, ok := a.authority.(interface{ Ping(context.Context) error })
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := pinger.Ping(pingCtx)
			cancel()

			offline := err != nil
			if a.offline.Swap(offline) != offline {
				if offline {
					a.log.Warn(ctx, "authority unreachable, switching to offline mode", "error", err)
				} else {
					a.log.Info(ctx, "authority reachable again, switching to online mode")
				}
			}
		}
	}
}
