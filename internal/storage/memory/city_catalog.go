package memory

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/JakeFAU/localnews/internal/news"
)

// CityCatalog holds the reference city list in load order.
type CityCatalog struct {
	mu     sync.RWMutex
	cities []news.City
}

// NewCityCatalog creates an empty catalog.
func NewCityCatalog() *CityCatalog {
	return &CityCatalog{}
}

// Load appends cities in order, assigning ids that continue from the current size.
func (c *CityCatalog) Load(_ context.Context, cities []news.City) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, city := range cities {
		city.ID = int64(len(c.cities) + 1)
		c.cities = append(c.cities, city)
	}
	return nil
}

// Count returns the number of loaded cities.
func (c *CityCatalog) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cities), nil
}

// FindByPrefix filters by case-insensitive name prefix, then skips page*size
// matches and returns at most size of the rest.
func (c *CityCatalog) FindByPrefix(_ context.Context, prefix string, page, size int) ([]news.City, error) {
	if page < 0 || size < 0 {
		return nil, news.ErrInvalidPage
	}
	out := []news.City{}
	if size == 0 {
		return out, nil
	}

	if page > math.MaxInt/size {
		return out, nil
	}
	prefix = strings.ToLower(prefix)
	skip := page * size

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, city := range c.cities {
		if !strings.HasPrefix(strings.ToLower(city.Name), prefix) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, city)
		if len(out) == size {
			break
		}
	}
	return out, nil
}
