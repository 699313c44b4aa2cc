package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/news"
	"github.com/JakeFAU/localnews/internal/storage/memory"
)

var published = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *memory.ArticleStore, *memory.CityCatalog) {
	t.Helper()
	store := memory.NewArticleStore()
	catalog := memory.NewCityCatalog()
	require.NoError(t, catalog.Load(context.Background(), []news.City{
		{Name: "Austin", StateCode: "TX", Lat: decimal.RequireFromString("30.3005"), Lon: decimal.RequireFromString("-97.7522"), Population: 1659251},
		{Name: "Boston", StateCode: "MA", Lat: decimal.RequireFromString("42.3188"), Lon: decimal.RequireFromString("-71.0852"), Population: 4355184},
		{Name: "Buffalo", StateCode: "NY", Lat: decimal.RequireFromString("42.9017"), Lon: decimal.RequireFromString("-78.8487"), Population: 931271},
	}))
	return NewServer(store, catalog, zap.NewNop()), store, catalog
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func insert(t *testing.T, store *memory.ArticleStore, a news.Article) {
	t.Helper()
	_, err := store.Insert(context.Background(), a)
	require.NoError(t, err)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_ReadyzFollowsIngestion(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	require.Equal(t, http.StatusServiceUnavailable, get(t, s, "/readyz").Code)

	s.SetReady(true)
	require.Equal(t, http.StatusOK, get(t, s, "/readyz").Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	_ = get(t, s, "/healthz")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_ListCities(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	tests := []struct {
		target string
		want   []string
	}{
		{"/api/cities", []string{"Austin", "Boston", "Buffalo"}},
		{"/api/cities?prefix=b", []string{"Boston", "Buffalo"}},
		{"/api/cities?prefix=B&page=1&size=1", []string{"Buffalo"}},
		{"/api/cities?size=0", []string{}},
		{"/api/cities?prefix=zzz", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			rec := get(t, s, tc.target)
			require.Equal(t, http.StatusOK, rec.Code)
			var cities []news.City
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cities))
			got := make([]string, 0, len(cities))
			for _, c := range cities {
				got = append(got, c.Name)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestServer_ListCitiesShape(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := get(t, s, "/api/cities?prefix=aus")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "Austin", body[0]["name"])
	require.Equal(t, "TX", body[0]["stateCode"])
	require.Equal(t, "30.3005", body[0]["lat"])
	require.EqualValues(t, 1659251, body[0]["population"])
}

func TestServer_ListCitiesBadParams(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	for _, target := range []string{
		"/api/cities?page=-1",
		"/api/cities?size=-5",
		"/api/cities?page=abc",
		"/api/cities?size=1.5",
	} {
		rec := get(t, s, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Contains(t, rec.Body.String(), "error")
	}
}

func TestServer_TopGlobal(t *testing.T) {
	t.Parallel()

	s, store, _ := newTestServer(t)
	insert(t, store, news.Article{Title: "older", PublishedAt: published})
	insert(t, store, news.Article{Title: "newer", PublishedAt: published.Add(time.Hour)})
	insert(t, store, news.Article{Title: "local", LocalHint: true, City: "Austin", PublishedAt: published.Add(2 * time.Hour)})

	rec := get(t, s, "/api/articles/global")
	require.Equal(t, http.StatusOK, rec.Code)

	var articles []news.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &articles))
	require.Len(t, articles, 2)
	require.Equal(t, "newer", articles[0].Title)
	require.Equal(t, "older", articles[1].Title)
}

func TestServer_TopLocal(t *testing.T) {
	t.Parallel()

	s, store, _ := newTestServer(t)
	insert(t, store, news.Article{Title: "a", LocalHint: true, City: "San Antonio", PublishedAt: published})
	insert(t, store, news.Article{Title: "b", LocalHint: true, City: "Austin", PublishedAt: published})

	rec := get(t, s, "/api/articles/local/san%20antonio")
	require.Equal(t, http.StatusOK, rec.Code)

	var articles []news.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &articles))
	require.Len(t, articles, 1)
	require.Equal(t, "a", articles[0].Title)
	require.Equal(t, "San Antonio", articles[0].City)
}

func TestServer_EmptyListsAreArrays(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	for _, target := range []string{"/api/articles", "/api/articles/global", "/api/articles/local/Nowhere"} {
		rec := get(t, s, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()), target)
	}
}

func TestServer_ListAllArticles(t *testing.T) {
	t.Parallel()

	s, store, _ := newTestServer(t)
	insert(t, store, news.Article{Title: "g", PublishedAt: published})
	insert(t, store, news.Article{Title: "l", LocalHint: true, City: "Austin", PublishedAt: published})

	rec := get(t, s, "/api/articles")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	require.NotContains(t, body[0], "city", "global articles omit city")
	require.Equal(t, "Austin", body[1]["city"])
	require.Equal(t, true, body[1]["localHint"])
	require.Equal(t, "2025-06-01T12:00:00Z", body[1]["publishedAt"])
}

type brokenStore struct{ news.ArticleStore }

func (brokenStore) TopGlobal(context.Context, int) ([]news.Article, error) {
	return nil, errors.New("backend down")
}

func TestServer_StoreErrorIs500(t *testing.T) {
	t.Parallel()

	s := NewServer(brokenStore{}, memory.NewCityCatalog(), nil)
	rec := get(t, s, "/api/articles/global")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "backend down")
}

func TestServer_RecoversFromPanics(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := get(t, s, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIntParam(t *testing.T) {
	t.Parallel()

	n, err := intParam("", 20)
	require.NoError(t, err)
	require.Equal(t, 20, n)

	n, err = intParam("3", 20)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = intParam("-1", 20)
	require.ErrorIs(t, err, news.ErrInvalidPage)

	_, err = intParam("x", 20)
	require.Error(t, err)
}
