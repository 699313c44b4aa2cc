// Package news defines core types shared across subsystems.
package news

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scope is the classification label attached to a headline.
type Scope string

// Scope values returned by the classifier.
const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeLocal  Scope = "LOCAL"
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeLocal
}

// City is one row of the reference city list.
type City struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	StateCode  string          `json:"stateCode"`
	Lat        decimal.Decimal `json:"lat"`
	Lon        decimal.Decimal `json:"lon"`
	Population int             `json:"population"`
}

// Article is a classified headline as committed to the store.
// City is empty for global articles and non-empty for local ones.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	LocalHint   bool      `json:"localHint"`
	City        string    `json:"city,omitempty"`
}

// FeedItem is a candidate headline as delivered by the feed.
// PublishedAt is nil when the feed omitted it.
type FeedItem struct {
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt *time.Time
}

// Classification is the classifier's decision for one headline.
// CityState is empty unless Scope is ScopeLocal.
type Classification struct {
	Scope     Scope
	CityState string
}

// GlobalFallback is the fail-open decision used when classification fails.
var GlobalFallback = Classification{Scope: ScopeGlobal}
