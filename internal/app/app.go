// Package app builds the long-lived services and runs them in order:
// load the city catalog, run ingestion, then serve reads.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/api"
	"github.com/JakeFAU/localnews/internal/bootstrap"
	"github.com/JakeFAU/localnews/internal/classifier"
	"github.com/JakeFAU/localnews/internal/clock/system"
	"github.com/JakeFAU/localnews/internal/config"
	"github.com/JakeFAU/localnews/internal/feed/newsapi"
	"github.com/JakeFAU/localnews/internal/news"
	"github.com/JakeFAU/localnews/internal/pipeline"
	"github.com/JakeFAU/localnews/internal/policy/ratelimit"
	"github.com/JakeFAU/localnews/internal/storage/memory"
)

const shutdownTimeout = 10 * time.Second

// Clock is the time source and sleeper used by the pipeline.
type Clock interface {
	news.Clock
	news.Sleeper
}

// Option overrides a dependency that New would otherwise build from config.
type Option func(*options)

type options struct {
	feed       news.Feed
	classifier news.Classifier
	clock      Clock
}

// WithFeed replaces the NewsAPI client.
func WithFeed(f news.Feed) Option { return func(o *options) { o.feed = f } }

// WithClassifier replaces the configured LLM classifier.
func WithClassifier(c news.Classifier) Option { return func(o *options) { o.classifier = c } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(o *options) { o.clock = c } }

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *memory.ArticleStore
	catalog   *memory.CityCatalog
	pipeline  *pipeline.Pipeline
	apiServer *api.Server
}

// New wires an App from cfg. The pipeline is only built when ingestion is
// enabled.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	store := memory.NewArticleStore()
	catalog := memory.NewCityCatalog()
	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		catalog:   catalog,
		apiServer: api.NewServer(store, catalog, logger),
	}
	if cfg.Ingest.Enabled {
		p, err := buildPipeline(cfg, store, catalog, o, logger)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		a.pipeline = p
	}
	return a, nil
}

func buildPipeline(
	cfg config.Config,
	store news.ArticleStore,
	catalog news.CityCatalog,
	o options,
	logger *zap.Logger,
) (*pipeline.Pipeline, error) {
	clock := o.clock
	if clock == nil {
		clock = system.New()
	}
	feed := o.feed
	if feed == nil {
		feed = newsapi.New(newsapi.Config{
			BaseURL:   cfg.NewsAPI.BaseURL,
			APIKey:    cfg.NewsAPI.APIKey,
			Language:  cfg.NewsAPI.Language,
			UserAgent: cfg.NewsAPI.UserAgent,
			Timeout:   cfg.NewsAPITimeout(),
			Pacer:     ratelimit.NewPacer(cfg.NewsAPI.RequestsPerSecond),
		}, logger)
	}
	cls := o.classifier
	if cls == nil {
		llm := cfg.LLM()
		var err error
		cls, err = classifier.New(cfg.Classifier.Provider, classifier.Config{
			APIKey:  llm.APIKey,
			Model:   llm.Model,
			BaseURL: llm.BaseURL,
			Timeout: cfg.ClassifierTimeout(),
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	return pipeline.New(
		feed,
		cls,
		catalog,
		store,
		ratelimit.NewCooldown(cfg.Ingest.Cooldown),
		ratelimit.NewBackoff(cfg.Ingest.MaxRetries, cfg.Ingest.BackoffBase, clock),
		clock,
		pipeline.Config{
			DesiredGlobal: cfg.Ingest.DesiredGlobal,
			DesiredLocal:  cfg.Ingest.DesiredLocal,
			PageSize:      cfg.Ingest.PageSize,
		},
		logger,
	), nil
}

// Handler exposes the read API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// LoadCities seeds the catalog from the configured CSV file.
func (a *App) LoadCities(ctx context.Context) error {
	if _, err := bootstrap.LoadCitiesFile(ctx, a.catalog, a.cfg.Cities.Path, a.logger); err != nil {
		return fmt.Errorf("load cities: %w", err)
	}
	return nil
}

// Ingest runs the pipeline once and marks the API ready. With ingestion
// disabled it only marks the API ready.
func (a *App) Ingest(ctx context.Context) (pipeline.Summary, error) {
	defer a.apiServer.SetReady(true)
	if a.pipeline == nil {
		a.logger.Info("ingestion disabled")
		return pipeline.Summary{Skipped: true}, nil
	}
	summary, err := a.pipeline.Run(ctx)
	if err != nil {
		return summary, fmt.Errorf("ingest: %w", err)
	}
	return summary, nil
}

// Prepare performs the startup sequence shared by every command.
func (a *App) Prepare(ctx context.Context) (pipeline.Summary, error) {
	if err := a.LoadCities(ctx); err != nil {
		return pipeline.Summary{}, err
	}
	return a.Ingest(ctx)
}

// Serve runs the startup sequence, then serves HTTP until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if _, err := a.Prepare(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		a.logger.Info("shutdown complete")
		return nil
	}
}
