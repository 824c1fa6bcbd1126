package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/contactharvest/internal/export"
	"github.com/hyperifyio/contactharvest/internal/extract"
	"github.com/hyperifyio/contactharvest/internal/host"
	"github.com/hyperifyio/contactharvest/internal/page"
	"github.com/hyperifyio/contactharvest/internal/store"
)

// App wires configuration to the store, the page source and the host
// controller.
type App struct {
	cfg  Config
	kv   store.KV
	host *host.Controller
	exp  export.Options
}

// New validates cfg, opens the store and loads the persisted collection.
func New(ctx context.Context, cfg Config, notifier host.Notifier) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	query, err := cfg.Selectors.WithDefaults().Compile()
	if err != nil {
		return nil, err
	}
	enc, _ := export.ParseEncoding(cfg.Encoding)
	loc, _ := loadLocation(cfg.TimeZone)

	kv, err := store.Open(cfg.StoreBackend, storeLocation(cfg), cfg.StrictPerms)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	h, err := host.New(ctx, host.Options{
		Store:         kv,
		Extractor:     extract.New(query),
		Notifier:      notifier,
		ScrapeTimeout: cfg.ScrapeTimeout,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	log.Debug().Str("backend", cfg.StoreBackend).Str("path", storeLocation(cfg)).Int("records", h.Len()).Msg("store opened")
	return &App{
		cfg:  cfg,
		kv:   kv,
		host: h,
		exp:  export.Options{Location: loc, Encoding: enc, FontPath: cfg.FontPath},
	}, nil
}

// Close releases the store.
func (a *App) Close() {
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}
}

// Host exposes the controller for the list, delete and clear commands.
func (a *App) Host() *host.Controller { return a.host }

// ExportOptions returns the configured serializer options.
func (a *App) ExportOptions() export.Options { return a.exp }

// Scrape runs one extraction pass against the configured page source.
func (a *App) Scrape(ctx context.Context) (host.Outcome, error) {
	return a.host.Scrape(ctx, a.Source())
}

// Export writes the collection in format f to the configured output dir.
func (a *App) Export(f export.Format) (string, error) {
	return a.host.ExportFile(f, a.cfg.OutputDir, a.exp)
}

// Source picks the page source. With no explicit source a file path wins
// over a URL; with neither there is no page to read.
func (a *App) Source() page.Source {
	return sourceFor(a.cfg)
}

func sourceFor(cfg Config) page.Source {
	src := cfg.Source
	if src == "" {
		switch {
		case strings.TrimSpace(cfg.PageFile) != "":
			src = SourceFile
		case strings.TrimSpace(cfg.PageURL) != "":
			src = SourceURL
		}
	}
	switch src {
	case SourceFile:
		if strings.TrimSpace(cfg.PageFile) == "" {
			return page.None{}
		}
		return page.File{Path: cfg.PageFile}
	case SourceURL:
		if strings.TrimSpace(cfg.PageURL) == "" {
			return page.None{}
		}
		return &page.HTTP{
			URL:               cfg.PageURL,
			UserAgent:         cfg.UserAgent,
			Cookie:            cfg.Cookie,
			MaxAttempts:       cfg.PageRetries,
			PerRequestTimeout: cfg.PageRequestTimeout,
		}
	case SourceChrome:
		if strings.TrimSpace(cfg.PageURL) == "" {
			return page.None{}
		}
		wait := cfg.ChromeWaitSelector
		if wait == "" {
			wait = cfg.Selectors.WithDefaults().Item
		}
		return page.Chrome{
			URL:          cfg.PageURL,
			Headless:     cfg.ChromeHeadless,
			WaitSelector: wait,
			Settle:       cfg.ChromeSettle,
			ExecPath:     cfg.ChromeExecPath,
			UserDataDir:  cfg.ChromeUserDataDir,
		}
	}
	return page.None{}
}

// storeLocation maps StorePath to what the backend expects: a directory for
// the file store, a database file for sqlite.
func storeLocation(cfg Config) string {
	p := strings.TrimSpace(cfg.StorePath)
	switch strings.ToLower(cfg.StoreBackend) {
	case "sqlite", "sqlite3":
		if filepath.Ext(p) == "" {
			return filepath.Join(p, sqliteFileName)
		}
	}
	return p
}
