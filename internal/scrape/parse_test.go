package scrape_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/scrape"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const centralBankHTML = `
<html><body>
<h1>Tasa pasiva - serie diaria</h1>
<table>
  <tr><th>Fecha</th><th>Tasa</th></tr>
  <tr><td>02/01/2024</td><td>118,40</td></tr>
  <tr><td>03/01/2024</td><td>118,62</td></tr>
  <tr><td colspan="2">Fuente: publicación diaria</td></tr>
</table>
</body></html>`

func TestParseCentralBankTable(t *testing.T) {
	values, err := scrape.ParseCentralBankTable([]byte(centralBankHTML))
	require.NoError(t, err)

	require.Len(t, values, 2)
	assert.Equal(t, day(2024, 1, 2), values[0].Date)
	assert.Equal(t, domain.SeriesPassiveCentralBank, values[0].Series)
	assert.Equal(t, 118.40, values[0].Value)
	assert.Equal(t, 118.62, values[1].Value)
}

func TestParseCentralBankTable_NoRows(t *testing.T) {
	_, err := scrape.ParseCentralBankTable([]byte("<html><body><p>mantenimiento</p></body></html>"))
	assert.Error(t, err)
}

const stateBankCSV = `fecha;tasa_pasiva;tasa_activa
02/01/2024;110,25;154,00
03/01/2024;110,40;
04/01/2024;;155,10
`

func TestParseStateBankCSV(t *testing.T) {
	values, err := scrape.ParseStateBankCSV([]byte(stateBankCSV))
	require.NoError(t, err)

	require.Len(t, values, 4)

	assert.Equal(t, day(2024, 1, 2), values[0].Date)
	assert.Equal(t, domain.SeriesPassiveStateBank, values[0].Series)
	assert.Equal(t, 110.25, values[0].Value)

	assert.Equal(t, domain.SeriesActiveStateBank, values[1].Series)
	assert.Equal(t, 154.00, values[1].Value)

	// Empty cells mean "not published", not zero.
	assert.Equal(t, domain.SeriesPassiveStateBank, values[2].Series)
	assert.Equal(t, day(2024, 1, 3), values[2].Date)
	assert.Equal(t, domain.SeriesActiveStateBank, values[3].Series)
	assert.Equal(t, day(2024, 1, 4), values[3].Date)
}

func TestParseStateBankCSV_ThousandsSeparators(t *testing.T) {
	data := "fecha;tasa_pasiva;tasa_activa\n02/01/2024;1.234,56;154,00\n"
	values, err := scrape.ParseStateBankCSV([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 1234.56, values[0].Value)
}

func TestParseStateBankCSV_BadHeader(t *testing.T) {
	_, err := scrape.ParseStateBankCSV([]byte("fecha;tasa\n"))
	assert.Error(t, err)
}
