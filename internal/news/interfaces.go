package news

import (
	"context"
	"time"
)

// ArticleStore is the append-only home of committed articles.
type ArticleStore interface {
	Insert(ctx context.Context, article Article) (Article, error)
	Count(ctx context.Context) (int, error)
	TopGlobal(ctx context.Context, limit int) ([]Article, error)
	TopLocalForCity(ctx context.Context, city string, limit int) ([]Article, error)
	All(ctx context.Context) ([]Article, error)
}

// CityCatalog serves the reference city list.
type CityCatalog interface {
	Load(ctx context.Context, cities []City) error
	Count(ctx context.Context) (int, error)
	FindByPrefix(ctx context.Context, prefix string, page, size int) ([]City, error)
}

// Feed fetches candidate headlines from the upstream news API. On an
// ErrFeedParse the returned slice holds the items decoded before the bad one.
type Feed interface {
	TopHeadlines(ctx context.Context, pageSize int) ([]FeedItem, error)
	Search(ctx context.Context, query string, pageSize int) ([]FeedItem, error)
}

// Classifier labels a headline as global or local.
type Classifier interface {
	Classify(ctx context.Context, title, snippet string) (Classification, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration or until the context ends.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}
