// Package ingest converts already-fetched provider payloads into model
// types. The library performs no network I/O of its own: callers fetch
// bytes however they like and hand the readers to the decoders, or
// implement Source directly against their own transport.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// ErrNoData is returned when a payload decodes cleanly but carries no rows.
var ErrNoData = errors.New("ingest: no data in payload")

// Source is the contract an external collaborator implements to feed the
// analysis pipeline. Implementations own transport, caching, and rate
// limiting; the library never dials out itself.
type Source interface {
	// History returns the price history for a ticker.
	History(ctx context.Context, ticker string, interval models.Interval, start, end time.Time) (*models.PriceSeries, error)

	// Statements returns raw financial statements for a ticker.
	Statements(ctx context.Context, ticker string) (*models.RawStatementTable, error)

	// OptionChain returns the listed options for a ticker.
	OptionChain(ctx context.Context, ticker string) (*models.OptionChain, error)
}

// ValidateRequest checks history request parameters before a caller spends
// a fetch on them: a usable ticker, a recognized interval, and a
// well-formed YYYY-MM-DD range with start strictly before end.
func ValidateRequest(ticker, interval, startDate, endDate string) error {
	if !utils.ValidTicker(utils.NormalizeTicker(ticker)) {
		return &models.ErrInvalidRequest{Field: "ticker", Reason: fmt.Sprintf("%q is not a usable symbol", ticker)}
	}
	if _, err := models.ParseInterval(interval); err != nil {
		return err
	}
	start, err := utils.ParseDate(startDate)
	if err != nil {
		return &models.ErrInvalidRequest{Field: "start date", Reason: err.Error()}
	}
	end, err := utils.ParseDate(endDate)
	if err != nil {
		return &models.ErrInvalidRequest{Field: "end date", Reason: err.Error()}
	}
	if !start.Before(end) {
		return &models.ErrInvalidRequest{
			Field:  "date range",
			Reason: fmt.Sprintf("start %s must be before end %s", startDate, endDate),
		}
	}
	return nil
}
