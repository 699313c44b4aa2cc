// Package memory provides the in-process article store and city catalog.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/JakeFAU/localnews/internal/news"
)

// Default limits used by the read API.
const (
	DefaultGlobalLimit = 20
	DefaultLocalLimit  = 80
)

// ArticleStore is an append-only, process-lifetime article collection.
// Reads take a point-in-time copy so callers never hold the lock while iterating.
type ArticleStore struct {
	mu       sync.RWMutex
	articles []news.Article
	nextID   int64
}

// NewArticleStore constructs an empty ArticleStore.
func NewArticleStore() *ArticleStore {
	return &ArticleStore{nextID: 1}
}

// Insert assigns the next id to the article and appends it.
// No uniqueness is enforced on url or title.
func (s *ArticleStore) Insert(_ context.Context, article news.Article) (news.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article.ID = s.nextID
	s.nextID++
	s.articles = append(s.articles, article)
	return article, nil
}

// Count returns the number of committed articles.
func (s *ArticleStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles), nil
}

// TopGlobal returns up to limit global articles, newest first.
func (s *ArticleStore) TopGlobal(_ context.Context, limit int) ([]news.Article, error) {
	return s.newest(limit, func(a news.Article) bool {
		return !a.LocalHint
	}), nil
}

// TopLocalForCity returns up to limit local articles for city (case-insensitive), newest first.
func (s *ArticleStore) TopLocalForCity(_ context.Context, city string, limit int) ([]news.Article, error) {
	return s.newest(limit, func(a news.Article) bool {
		return a.LocalHint && strings.EqualFold(a.City, city)
	}), nil
}

// All returns every article in insertion order.
func (s *ArticleStore) All(_ context.Context) ([]news.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]news.Article, len(s.articles))
	copy(out, s.articles)
	return out, nil
}

// newest filters articles with a publish time, walking from the most recent
// insert backwards, then stable-sorts by PublishedAt descending. Equal
// timestamps therefore come out in reverse insertion order.
func (s *ArticleStore) newest(limit int, keep func(news.Article) bool) []news.Article {
	out := []news.Article{}
	if limit <= 0 {
		return out
	}

	s.mu.RLock()
	for i := len(s.articles) - 1; i >= 0; i-- {
		a := s.articles[i]
		if a.PublishedAt.IsZero() || !keep(a) {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b news.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
