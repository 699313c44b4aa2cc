// Package api hosts the read-only HTTP interface over ingested articles and
// the city catalog. Notable routes:
//   - GET /api/cities for prefix search with page/size paging.
//   - GET /api/articles/global and /api/articles/local/{cityName}.
//   - GET /healthz and /readyz for probes; readyz flips once ingestion is done.
//   - GET /metrics for Prometheus scraping.
package api
