package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// ParseStatementsHTML scrapes statement tables out of a screener-style
// HTML page. Each `table.data-table` carries period ends in its header
// row (first cell is the blank label column) and one line item per body
// row with the label in the first cell. Tables on the same page merge by
// period, so income, balance sheet, and cash flow sections land in the
// same rows. Values are kept verbatim as strings; the normalizer owns
// coercion.
func ParseStatementsHTML(r io.Reader, ticker string) (*models.RawStatementTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse statements page: %w", err)
	}

	byPeriod := make(map[string]map[string]string)
	var order []string
	doc.Find("table.data-table").Each(func(_ int, table *goquery.Selection) {
		var periods []string
		table.Find("thead th").Each(func(i int, th *goquery.Selection) {
			if i == 0 {
				return
			}
			periods = append(periods, strings.TrimSpace(th.Text()))
		})
		if len(periods) == 0 {
			return
		}
		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			label := strings.TrimSpace(cells.First().Text())
			if label == "" {
				return
			}
			cells.Each(func(i int, td *goquery.Selection) {
				if i == 0 || i > len(periods) {
					return
				}
				period := periods[i-1]
				if period == "" {
					return
				}
				if _, ok := byPeriod[period]; !ok {
					byPeriod[period] = make(map[string]string)
					order = append(order, period)
				}
				byPeriod[period][label] = strings.TrimSpace(td.Text())
			})
		})
	})
	if len(order) == 0 {
		return nil, fmt.Errorf("statements page: %w", ErrNoData)
	}
	return buildRawTable(utils.NormalizeTicker(ticker), order, byPeriod), nil
}
