// Package bootstrap seeds the city catalog from a CSV export.
package bootstrap

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/news"
)

// Column positions in the city export.
const (
	colName       = 0
	colState      = 2
	colLat        = 6
	colLon        = 7
	colPopulation = 8
	minFields     = 9
)

// LoadCitiesFile opens path and loads it with LoadCities.
func LoadCitiesFile(ctx context.Context, catalog news.CityCatalog, path string, logger *zap.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open cities file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadCities(ctx, catalog, f, logger)
}

// LoadCities parses the CSV in r and loads every valid row into catalog.
// It is a no-op when the catalog already holds cities. The header row is
// skipped; short rows, blank names and bad or negative numbers are skipped
// with a warning.
func LoadCities(ctx context.Context, catalog news.CityCatalog, r io.Reader, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bootstrap")

	existing, err := catalog.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count cities: %w", err)
	}
	if existing > 0 {
		logger.Info("cities already loaded", zap.Int("cities", existing))
		return 0, nil
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read header: %w", err)
	}

	var cities []news.City
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, _ := reader.FieldPos(0)
			logger.Warn("skipping unreadable city row", zap.Int("line", line), zap.Error(err))
			continue
		}
		city, err := parseCity(record)
		if err != nil {
			logger.Warn("skipping city row", zap.Strings("record", record), zap.Error(err))
			continue
		}
		cities = append(cities, city)
	}

	if err := catalog.Load(ctx, cities); err != nil {
		return 0, fmt.Errorf("load cities: %w", err)
	}
	logger.Info("loaded cities", zap.Int("cities", len(cities)))
	return len(cities), nil
}

func parseCity(record []string) (news.City, error) {
	if len(record) < minFields {
		return news.City{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(record))
	}
	field := func(i int) string { return strings.TrimSpace(record[i]) }

	name := field(colName)
	if name == "" {
		return news.City{}, errors.New("empty city name")
	}
	lat, err := decimal.NewFromString(field(colLat))
	if err != nil {
		return news.City{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := decimal.NewFromString(field(colLon))
	if err != nil {
		return news.City{}, fmt.Errorf("lon: %w", err)
	}
	population, err := strconv.Atoi(field(colPopulation))
	if err != nil {
		return news.City{}, fmt.Errorf("population: %w", err)
	}
	if population < 0 {
		return news.City{}, fmt.Errorf("population %d is negative", population)
	}

	return news.City{
		Name:       name,
		StateCode:  field(colState),
		Lat:        lat,
		Lon:        lon,
		Population: population,
	}, nil
}
