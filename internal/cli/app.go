package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/cache"
	"github.com/cperrin88/reposync/pkg/catalog"
	"github.com/cperrin88/reposync/pkg/compat"
	"github.com/cperrin88/reposync/pkg/config"
	"github.com/cperrin88/reposync/pkg/download"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/hooks"
	"github.com/cperrin88/reposync/pkg/model"
	"github.com/cperrin88/reposync/pkg/orchestrator"
	"github.com/cperrin88/reposync/pkg/repository"
	"github.com/cperrin88/reposync/pkg/update"
)

const seededKeyPrefix = "seeded:"

// app holds the components a command works with.
type app struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	cache    *cache.Manager
	checker  *update.Checker
	scanner  *update.Scanner
	notifier *hooks.Notifier
	manager  *orchestrator.Manager
}

// openApp opens the catalog, seeds the configured repositories and wires the update
// pipeline. onEvent receives the progress events of update passes and may be nil.
func openApp(ctx context.Context, cfg *config.Config, onEvent func(orchestrator.Event)) (*app, error) {
	c, err := catalog.Open(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, catalog: c}
	if err := a.seed(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	if a.cache, err = cache.NewManager(cfg.GetIndexCacheDir()); err != nil {
		_ = c.Close()
		return nil, err
	}

	proxy, err := cfg.Settings.ProxyURL()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	client := download.NewHTTPManager(download.Options{
		Timeout:   cfg.Settings.HTTPTimeout,
		UserAgent: cfg.Settings.UserAgent,
		Proxy:     proxy,
	})
	updater := repository.NewUpdater(c, client, repository.Options{
		CacheDir:    a.cache.Directory(),
		Credentials: cfg.ToAuthMap(),
	})

	a.checker = update.NewChecker(compat.NewChecker(cfg.Settings.Device))
	a.scanner = update.NewScanner(c, a.checker, update.ScanOptions{
		AllowedReleaseChannels:      cfg.Settings.ReleaseChannels,
		IncludeKnownVulnerabilities: cfg.Settings.IncludeKnownVulnerabilities,
		Locales:                     cfg.Settings.Locales,
	})

	hookManager := hooks.NewHookManager()
	if cfg.Settings.HooksDir != "" {
		n, err := hooks.LoadHooksFromDir(hookManager, cfg.Settings.HooksDir)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		logger.Debug("Hooks loaded", logger.Fields{"dir": cfg.Settings.HooksDir, "count": n})
	}
	a.notifier = hooks.NewNotifier(hookManager, hooks.DefaultTimeout)

	a.manager = orchestrator.NewManager(c, updater, orchestrator.Options{
		ParallelRepos: cfg.Settings.ParallelRepos,
		Scanner:       a.scanner,
		Checks:        c,
		Notifier:      a.notifier,
		Hooks: orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
			if onEvent != nil {
				onEvent(e)
			}
			a.notifier.HandleEvent(e)
		}},
	})
	return a, nil
}

func (a *app) Close() error {
	return a.catalog.Close()
}

// seed inserts every configured repository the catalog has not seen yet. A repository is
// seeded once; removing it from the catalog later does not bring it back.
func (a *app) seed(ctx context.Context) error {
	for _, rc := range a.cfg.Repositories {
		repo := rc.ToRepository()
		key := seededKeyPrefix + repo.Address
		_, seeded, err := a.catalog.Setting(ctx, key)
		if err != nil {
			return err
		}
		if seeded {
			continue
		}

		_, err = a.catalog.GetRepositoryByAddress(ctx, repo.Address)
		switch {
		case errors.Is(err, pkgerrors.ErrRepositoryNotFound):
			if _, err := a.catalog.InsertOrReplace(ctx, repo); err != nil {
				return fmt.Errorf("failed to seed repository %s: %w", rc.Name, err)
			}
			logger.Info("Repository added from configuration", logger.Fields{"name": rc.Name, "address": repo.Address})
		case err != nil:
			return err
		}
		if err := a.catalog.SetSetting(ctx, key, "1"); err != nil {
			return err
		}
	}
	return nil
}

// findRepository resolves a repository by id, address or display name.
func (a *app) findRepository(ctx context.Context, ref string) (model.Repository, error) {
	if id, ok := parseID(ref); ok {
		return a.catalog.GetRepository(ctx, id)
	}
	if repo, err := a.catalog.GetRepositoryByAddress(ctx, strings.TrimRight(ref, "/")); err == nil {
		return repo, nil
	}
	repos, err := a.catalog.GetRepositories(ctx)
	if err != nil {
		return model.Repository{}, err
	}
	for _, r := range repos {
		if strings.EqualFold(r.DisplayName(a.cfg.Settings.Locales...), ref) {
			return r, nil
		}
	}
	return model.Repository{}, fmt.Errorf("%w: %s", pkgerrors.ErrRepositoryNotFound, ref)
}

// withApp loads the configuration, opens the app and runs fn.
func withApp(ctx context.Context, onEvent func(orchestrator.Event), fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, onEvent)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close catalog", logger.Fields{"error": err.Error()})
		}
	}()
	return fn(a)
}
