// Package newsapi is a client for the NewsAPI v2 headline and search endpoints.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/metrics"
	"github.com/JakeFAU/localnews/internal/news"
	"github.com/JakeFAU/localnews/internal/policy/ratelimit"
)

const (
	topHeadlinesPath = "/v2/top-headlines"
	everythingPath   = "/v2/everything"

	codeRateLimited = "rateLimited"
	snippetLimit    = 256
)

// Config controls the client.
type Config struct {
	BaseURL   string
	APIKey    string
	Language  string
	UserAgent string
	Timeout   time.Duration
	// Pacer spaces outgoing requests; nil means unpaced.
	Pacer *ratelimit.Pacer
}

// Client implements news.Feed against NewsAPI.
type Client struct {
	http     *resty.Client
	apiKey   string
	language string
	pacer    *ratelimit.Pacer
	logger   *zap.Logger
}

var _ news.Feed = (*Client)(nil)

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		http:     httpClient,
		apiKey:   cfg.APIKey,
		language: language,
		pacer:    cfg.Pacer,
		logger:   logger.Named("newsapi"),
	}
}

// TopHeadlines fetches one page of top headlines.
func (c *Client) TopHeadlines(ctx context.Context, pageSize int) ([]news.FeedItem, error) {
	return c.get(ctx, topHeadlinesPath, metrics.EndpointTopHeadlines, map[string]string{
		"pageSize": strconv.Itoa(pageSize),
	})
}

// Search fetches one page of articles matching query.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]news.FeedItem, error) {
	return c.get(ctx, everythingPath, metrics.EndpointEverything, map[string]string{
		"q":        query,
		"pageSize": strconv.Itoa(pageSize),
	})
}

func (c *Client) get(ctx context.Context, path, endpoint string, params map[string]string) ([]news.FeedItem, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		metrics.ObserveFeedRequest(endpoint, metrics.OutcomeTransport)
		return nil, fmt.Errorf("%w: %v", news.ErrFeedTransport, err)
	}

	params["language"] = c.language
	params["apiKey"] = c.apiKey

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		metrics.ObserveFeedRequest(endpoint, metrics.OutcomeTransport)
		return nil, fmt.Errorf("%w: GET %s: %v", news.ErrFeedTransport, path, err)
	}

	items, err := decode(resp.StatusCode(), resp.Body())
	outcome := outcomeFor(err)
	metrics.ObserveFeedRequest(endpoint, outcome)
	if err != nil {
		c.logger.Debug("feed request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode()),
			zap.Error(err),
		)
		return items, fmt.Errorf("GET %s: %w", path, err)
	}
	return items, nil
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	PublishedAt *string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// decode maps a raw response to feed items or a classified error. A bad
// publishedAt stops decoding; the items before it are returned with the error.
func decode(status int, body []byte) ([]news.FeedItem, error) {
	if status == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", news.ErrFeedRateLimited, status)
	}

	var payload apiResponse
	parseErr := json.Unmarshal(body, &payload)
	if parseErr == nil && payload.Code == codeRateLimited {
		return nil, fmt.Errorf("%w: %s", news.ErrFeedRateLimited, payload.Message)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", news.ErrFeedTransport, status, snippet(body))
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", news.ErrFeedParse, parseErr)
	}
	if payload.Status == "error" {
		return nil, fmt.Errorf("%w: %s: %s", news.ErrFeedTransport, payload.Code, payload.Message)
	}

	items := make([]news.FeedItem, 0, len(payload.Articles))
	for i, a := range payload.Articles {
		item := news.FeedItem{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			SourceName:  a.Source.Name,
		}
		if a.PublishedAt != nil && *a.PublishedAt != "" {
			ts, err := time.Parse(time.RFC3339, *a.PublishedAt)
			if err != nil {
				return items, fmt.Errorf("%w: article %d publishedAt: %v", news.ErrFeedParse, i, err)
			}
			ts = ts.UTC()
			item.PublishedAt = &ts
		}
		items = append(items, item)
	}
	return items, nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, news.ErrFeedRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, news.ErrFeedParse):
		return metrics.OutcomeParse
	default:
		return metrics.OutcomeTransport
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLimit {
		return s[:snippetLimit] + "..."
	}
	return s
}
