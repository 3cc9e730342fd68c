package scrape

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tasas/ratesync/internal/domain"
)

// StateBankSource scrapes the state bank's spreadsheet export, which
// carries the passive and active rate side by side.
type StateBankSource struct {
	client *Client
	url    string
}

func NewStateBankSource(client *Client, url string) *StateBankSource {
	return &StateBankSource{client: client, url: url}
}

func (s *StateBankSource) FetchDaily(ctx context.Context) ([]domain.ScrapedValue, error) {
	body, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return ParseStateBankCSV(body)
}

// ParseStateBankCSV parses the semicolon-separated export.
//
// Expected header:
//
//	fecha;tasa_pasiva;tasa_activa
//
// Dates are dd/mm/yyyy, decimals use a comma. Each row yields up to two
// values; an empty cell means the bank has not published that rate for the
// day and is simply skipped.
func ParseStateBankCSV(data []byte) ([]domain.ScrapedValue, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("expected 3 columns, got %d", len(header))
	}

	var values []domain.ScrapedValue
	lineNum := 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(row) < 3 {
			continue
		}

		date, err := parseLocalDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d date: %w", lineNum, err)
		}

		if cell := strings.TrimSpace(row[1]); cell != "" {
			v, err := parseLocalFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d passive rate: %w", lineNum, err)
			}
			values = append(values, domain.ScrapedValue{
				Date:   date,
				Series: domain.SeriesPassiveStateBank,
				Value:  v,
				Source: "statebank",
			})
		}

		if cell := strings.TrimSpace(row[2]); cell != "" {
			v, err := parseLocalFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d active rate: %w", lineNum, err)
			}
			values = append(values, domain.ScrapedValue{
				Date:   date,
				Series: domain.SeriesActiveStateBank,
				Value:  v,
				Source: "statebank",
			})
		}
	}

	return values, nil
}

// parseLocalFloat reads a number in the sources' comma-decimal convention.
// Thousands dots ("1.234,56") are stripped first.
func parseLocalFloat(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
