package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tasas/ratesync/internal/domain"
)

// CentralBankSource scrapes the central bank's daily passive-rate table.
type CentralBankSource struct {
	client *Client
	url    string
}

func NewCentralBankSource(client *Client, url string) *CentralBankSource {
	return &CentralBankSource{client: client, url: url}
}

// FetchDaily downloads and parses the publication page.
func (s *CentralBankSource) FetchDaily(ctx context.Context) ([]domain.ScrapedValue, error) {
	body, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return ParseCentralBankTable(body)
}

// ParseCentralBankTable extracts (date, rate) pairs from the publication's
// HTML table. Expected row shape:
//
//	<tr><td>02/01/2024</td><td>118,40</td></tr>
//
// Dates are dd/mm/yyyy in the bank's local convention; decimals use a
// comma. Rows that do not parse are skipped — the table carries header and
// footnote rows.
func ParseCentralBankTable(html []byte) ([]domain.ScrapedValue, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var values []domain.ScrapedValue
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		date, err := parseLocalDate(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}
		value, err := parseLocalFloat(strings.TrimSpace(cells.Eq(1).Text()))
		if err != nil {
			return
		}

		values = append(values, domain.ScrapedValue{
			Date:   date,
			Series: domain.SeriesPassiveCentralBank,
			Value:  value,
			Source: "centralbank",
		})
	})

	if len(values) == 0 {
		return nil, fmt.Errorf("no rate rows found in publication table")
	}
	return values, nil
}

// parseLocalDate reads a dd/mm/yyyy date as a UTC midnight.
func parseLocalDate(s string) (time.Time, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return time.Time{}, err
	}
	return domain.Day(t), nil
}
