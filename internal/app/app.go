package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/alerting"
	"donation-tracker/internal/api"
	"donation-tracker/internal/cache"
	"donation-tracker/internal/chain"
	"donation-tracker/internal/config"
	"donation-tracker/internal/coordinator"
	"donation-tracker/internal/fetcher"
	"donation-tracker/internal/service"
	"donation-tracker/internal/storage"
	"donation-tracker/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives tabular command output.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newExplorer() *fetcher.Explorer {
	ex := a.Config.Explorer
	return fetcher.NewExplorer(fetcher.ExplorerOptions{
		BaseURL:         ex.BaseURL,
		ChainID:         ex.ChainID,
		APIKey:          ex.APIKey,
		ContractAddress: ex.ContractAddress,
		WalletAddress:   ex.WalletAddress,
		StartBlock:      ex.StartBlock,
		EndBlock:        ex.EndBlock,
		Timeout:         ex.RequestTimeout,
		UserAgent:       ex.UserAgent,
	}, a.Logger)
}

func (a *App) newFetcher() fetcher.DonationFetcher {
	return fetcher.NewRetry(a.newExplorer(), fetcher.RetryOptions{}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newHead() *chain.Head {
	return chain.NewHead(chain.HeadOptions{
		RPCURL:  a.Config.Chain.RPCURL,
		Timeout: a.Config.Chain.RequestTimeout,
	}, a.Logger)
}

func (a *App) openCache() (*cache.Store, func(), error) {
	ds, closeDS, err := cache.Open(a.Config.Cache)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := closeDS(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close cache")
		}
	}
	return cache.NewStore(ds, a.Logger), closer, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newCoordinator assembles the refresh pipeline. The returned closer
// releases the cache and the archive.
func (a *App) newCoordinator(ctx context.Context, notifier alerting.Notifier) (*coordinator.Coordinator, func(), error) {
	cacheStore, closeCache, err := a.openCache()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; archive disabled")
	}

	var archive storage.DonationArchive
	var refreshLog storage.RefreshLog
	if store != nil {
		archive = store
		refreshLog = store
	}

	publisher := service.New(a.Config, archive, refreshLog, notifier, a.Logger)
	coord := coordinator.New(coordinator.Options{
		TTL:             a.Config.Cache.TTL,
		StartupDelay:    a.Config.Scheduler.StartupDelay,
		AlignToInterval: a.Config.Scheduler.AlignToInterval,
	}, cacheStore, a.newFetcher(), publisher, a.Logger)

	closer := func() {
		if closeStore != nil {
			closeStore()
		}
		closeCache()
	}
	return coord, closer, nil
}

// Run executes the long-running refresh service and its HTTP surface.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coord, closeAll, err := a.newCoordinator(ctx, a.newNotifier())
	if err != nil {
		return err
	}
	defer closeAll()

	head := a.newHead()
	defer head.Close()

	a.Logger.Info().
		Dur("ttl", a.Config.Cache.TTL).
		Str("cache_backend", a.Config.Cache.Backend).
		Msg("starting refresh coordinator")
	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	if !a.Config.HTTP.Enabled {
		<-ctx.Done()
		a.Logger.Info().Msg("refresh coordinator stopped")
		return nil
	}

	srv := &http.Server{
		Addr: a.Config.HTTP.ListenAddr,
		Handler: api.NewHandler(api.Options{
			State:          coord,
			Head:           head,
			Campaign:       a.Config.Campaign,
			AllowedOrigins: a.Config.HTTP.AllowedOrigins,
			Build:          version.Build(),
		}, a.Logger),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
		IdleTimeout:  a.Config.HTTP.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("http api listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("could not stop http server gracefully: %w", err)
	}

	a.Logger.Info().Msg("refresh coordinator stopped")
	return nil
}

// ExportOptions hold parameters for exporting archived donations.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	Archive bool
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	DryRun bool
}
