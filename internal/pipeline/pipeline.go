// Package pipeline runs the one-shot ingestion that fills the article store:
// a global pass over top headlines filtered by the classifier, then a local
// pass that searches the feed city by city.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/classifier"
	"github.com/JakeFAU/localnews/internal/metrics"
	"github.com/JakeFAU/localnews/internal/news"
	"github.com/JakeFAU/localnews/internal/policy/ratelimit"
)

// Defaults applied by New. A zero quota disables its phase; only negative
// quotas and a non-positive page size fall back to these.
const (
	DefaultDesiredGlobal = 20
	DefaultDesiredLocal  = 80
	DefaultPageSize      = 5
)

// Config controls ingestion quotas.
type Config struct {
	DesiredGlobal int
	DesiredLocal  int
	PageSize      int
}

// DefaultConfig returns the standard quotas.
func DefaultConfig() Config {
	return Config{
		DesiredGlobal: DefaultDesiredGlobal,
		DesiredLocal:  DefaultDesiredLocal,
		PageSize:      DefaultPageSize,
	}
}

// Summary reports what a run committed.
type Summary struct {
	Skipped bool
	Global  int
	Local   int
}

// Pipeline coordinates the feed, classifier and stores.
type Pipeline struct {
	feed       news.Feed
	classifier news.Classifier
	catalog    news.CityCatalog
	store      news.ArticleStore
	cooldown   *ratelimit.Cooldown
	backoff    *ratelimit.Backoff
	clock      news.Clock
	cfg        Config
	logger     *zap.Logger
}

// New wires a Pipeline.
func New(
	feed news.Feed,
	cls news.Classifier,
	catalog news.CityCatalog,
	store news.ArticleStore,
	cooldown *ratelimit.Cooldown,
	backoff *ratelimit.Backoff,
	clock news.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DesiredGlobal < 0 {
		cfg.DesiredGlobal = DefaultDesiredGlobal
	}
	if cfg.DesiredLocal < 0 {
		cfg.DesiredLocal = DefaultDesiredLocal
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cooldown == nil {
		cooldown = ratelimit.NewCooldown(ratelimit.DefaultCooldown)
	}
	if backoff == nil {
		backoff = ratelimit.NewBackoff(ratelimit.DefaultMaxRetries, ratelimit.DefaultBaseDelay, nil)
	}
	return &Pipeline{
		feed:       feed,
		classifier: cls,
		catalog:    catalog,
		store:      store,
		cooldown:   cooldown,
		backoff:    backoff,
		clock:      clock,
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
	}
}

// Run performs one ingestion. It is a no-op when the store already holds
// articles. Only store failures are returned; feed and classifier failures
// are logged and shrink the result.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	existing, err := p.store.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count articles: %w", err)
	}
	if existing > 0 {
		p.logger.Info("articles already loaded, skipping ingestion", zap.Int("articles", existing))
		return Summary{Skipped: true}, nil
	}

	global, err := p.runGlobal(ctx)
	if err != nil {
		return Summary{Global: global}, err
	}
	local, err := p.runLocal(ctx)
	if err != nil {
		return Summary{Global: global, Local: local}, err
	}

	p.logger.Info("ingestion finished", zap.Int("global", global), zap.Int("local", local))
	return Summary{Global: global, Local: local}, nil
}

func (p *Pipeline) runGlobal(ctx context.Context) (int, error) {
	if p.cfg.DesiredGlobal == 0 {
		p.logger.Info("global quota is zero, skipping global fetch")
		return 0, nil
	}
	if p.cooldown.ShouldSkip(p.clock.Now()) {
		p.logger.Warn("skipping global fetch due to recent rate limit")
		return 0, nil
	}

	items, err := p.feed.TopHeadlines(ctx, p.cfg.DesiredGlobal)
	if err != nil {
		if errors.Is(err, news.ErrFeedRateLimited) {
			p.recordRateLimit()
		}
		if !partialPage(err, items) {
			p.logger.Error("global fetch failed", zap.Error(err))
			return 0, nil
		}
		p.logger.Warn("global page truncated at unparseable article",
			zap.Int("kept", len(items)),
			zap.Error(err),
		)
	}

	count := 0
	for _, item := range items {
		if count >= p.cfg.DesiredGlobal {
			break
		}
		article := p.toArticle(item)
		label := p.classify(ctx, article)
		if label.Scope != news.ScopeGlobal {
			continue
		}
		article.LocalHint = false
		article.City = ""
		if _, err := p.store.Insert(ctx, article); err != nil {
			return count, fmt.Errorf("insert global article: %w", err)
		}
		metrics.ObserveCommit(metrics.PhaseGlobal)
		count++
	}

	p.logger.Info("fetched global articles", zap.Int("count", count), zap.Int("candidates", len(items)))
	return count, nil
}

func (p *Pipeline) runLocal(ctx context.Context) (int, error) {
	citiesToQuery := (p.cfg.DesiredLocal + p.cfg.PageSize - 1) / p.cfg.PageSize
	cities, err := p.catalog.FindByPrefix(ctx, "", 0, citiesToQuery)
	if err != nil {
		p.logger.Error("list cities failed", zap.Error(err))
		return 0, nil
	}

	count := 0
	for _, city := range cities {
		if count >= p.cfg.DesiredLocal {
			break
		}
		if strings.TrimSpace(city.Name) == "" {
			p.logger.Warn("skipping city without a name", zap.Int64("city_id", city.ID))
			continue
		}
		if p.cooldown.ShouldSkip(p.clock.Now()) {
			p.logger.Warn("skipping local fetch due to recent rate limit", zap.String("city", city.Name))
			break
		}

		items, ok := p.searchCity(ctx, city.Name)
		if !ok {
			if ctx.Err() != nil {
				break
			}
			continue
		}

		for _, item := range items {
			article := p.toArticle(item)
			article.LocalHint = true
			article.City = city.Name
			if _, err := p.store.Insert(ctx, article); err != nil {
				return count, fmt.Errorf("insert local article: %w", err)
			}
			metrics.ObserveCommit(metrics.PhaseLocal)
			count++
			if count >= p.cfg.DesiredLocal {
				break
			}
		}
	}

	p.logger.Info("fetched local articles", zap.Int("count", count))
	return count, nil
}

// searchCity queries the feed for one city, retrying throttled attempts with
// backoff. ok is false when the city should be skipped.
func (p *Pipeline) searchCity(ctx context.Context, city string) ([]news.FeedItem, bool) {
	for attempt := 1; ; attempt++ {
		items, err := p.feed.Search(ctx, city, p.cfg.PageSize)
		if err == nil {
			return items, true
		}
		if partialPage(err, items) {
			p.logger.Warn("city page truncated at unparseable article",
				zap.String("city", city),
				zap.Int("kept", len(items)),
				zap.Error(err),
			)
			return items, true
		}
		if !errors.Is(err, news.ErrFeedRateLimited) {
			p.logger.Warn("local fetch failed, skipping city", zap.String("city", city), zap.Error(err))
			return nil, false
		}

		p.recordRateLimit()
		if !p.backoff.ShouldRetry(attempt) {
			p.logger.Warn("rate limit retries exhausted, skipping city",
				zap.String("city", city),
				zap.Int("attempts", attempt),
			)
			return nil, false
		}
		p.logger.Warn("rate limit hit, backing off",
			zap.String("city", city),
			zap.Int("attempt", attempt),
			zap.Duration("delay", p.backoff.Delay(attempt)),
		)
		if err := p.backoff.Wait(ctx, attempt); err != nil {
			p.logger.Warn("backoff interrupted", zap.String("city", city), zap.Error(err))
			return nil, false
		}
	}
}

// partialPage reports whether a parse failure still left usable items.
func partialPage(err error, items []news.FeedItem) bool {
	return errors.Is(err, news.ErrFeedParse) && len(items) > 0
}

// classify never fails: any classifier error becomes the global fallback.
func (p *Pipeline) classify(ctx context.Context, article news.Article) news.Classification {
	label, err := p.classifier.Classify(ctx, article.Title, classifier.Snippet(article.Body))
	if err != nil {
		p.logger.Warn("classification failed, defaulting to GLOBAL",
			zap.String("title", article.Title),
			zap.Error(err),
		)
		metrics.ObserveClassification(metrics.ClassifiedFallback)
		return news.GlobalFallback
	}
	if label.Scope == news.ScopeLocal {
		metrics.ObserveClassification(metrics.ClassifiedLocal)
	} else {
		metrics.ObserveClassification(metrics.ClassifiedGlobal)
	}
	return label
}

func (p *Pipeline) recordRateLimit() {
	p.cooldown.RecordSignal(p.clock.Now())
	metrics.ObserveRateLimitSignal()
}

func (p *Pipeline) toArticle(item news.FeedItem) news.Article {
	published := p.clock.Now()
	if item.PublishedAt != nil {
		published = *item.PublishedAt
	}
	return news.Article{
		Title:       item.Title,
		Body:        item.Description,
		URL:         item.URL,
		Source:      item.SourceName,
		PublishedAt: published,
	}
}
