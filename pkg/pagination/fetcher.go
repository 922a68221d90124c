package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// PageSizeCeiling is the maximum number of records the gateway returns per
// request. The fetcher never asks for more.
const PageSizeCeiling = 100

// PageGetter is the transport capability the fetcher needs: one signed GET
// returning the raw response body or an error.
type PageGetter interface {
	Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error)
}

// ProtocolError reports a response that violated the pagination envelope
// contract. It is fatal for the fetch in progress: coercing a malformed
// envelope to zero values risks an endless or silently truncated drain.
type ProtocolError struct {
	Endpoint string
	Offset   int
	Reason   string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("catalog protocol error at %s offset %d: %s", e.Endpoint, e.Offset, e.Reason)
}

// envelope is the gateway's response wrapper. Total and count are decoded
// as pointers so an absent field is distinguishable from a zero value.
type envelope struct {
	Data *envelopeData `json:"data"`
}

type envelopeData struct {
	Total   *int              `json:"total"`
	Count   *int              `json:"count"`
	Results []json.RawMessage `json:"results"`
}

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the per-request limit. Values above PageSizeCeiling
	// are clamped; zero or negative selects the ceiling.
	PageSize int
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: PageSizeCeiling,
	}
}

// Fetcher drains one catalog collection across as many pages as the
// gateway reports.
type Fetcher struct {
	getter   PageGetter
	pageSize int
}

// NewFetcher creates a fetcher over the given transport.
func NewFetcher(getter PageGetter, config Config) *Fetcher {
	pageSize := config.PageSize
	if pageSize <= 0 || pageSize > PageSizeCeiling {
		pageSize = PageSizeCeiling
	}

	return &Fetcher{
		getter:   getter,
		pageSize: pageSize,
	}
}

// FetchAll retrieves every record of the collection behind endpoint and
// returns them concatenated in page order, within-page order untouched.
//
// Any transport error or envelope violation aborts the drain immediately;
// nothing accumulated up to that point is returned. A zero-count page
// arriving before the reported total is reached would stall the offset
// cursor forever and is rejected as a ProtocolError.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	start := time.Now()

	var results []json.RawMessage
	offset := 0
	total := 0
	boundKnown := false
	pages := 0

	for !boundKnown || offset < total {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(f.pageSize))
		query.Set("offset", strconv.Itoa(offset))

		body, err := f.getter.Get(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}
		pages++

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &ProtocolError{
				Endpoint: endpoint,
				Offset:   offset,
				Reason:   fmt.Sprintf("malformed response body: %v", err),
			}
		}

		data, err := env.validate(endpoint, offset)
		if err != nil {
			return nil, err
		}

		count := *data.Count

		if !boundKnown {
			// The first page's total is the authoritative bound for
			// this drain; later pages' totals are ignored.
			total = *data.Total
			boundKnown = true

			log.Debug().
				Str("endpoint", endpoint).
				Int("total", total).
				Int("page_size", f.pageSize).
				Msg("Adopted collection bound")
		}

		if count == 0 && offset < total {
			return nil, &ProtocolError{
				Endpoint: endpoint,
				Offset:   offset,
				Reason:   fmt.Sprintf("zero-count page before reaching total %d", total),
			}
		}

		results = append(results, data.Results...)
		offset += count
	}

	log.Info().
		Str("endpoint", endpoint).
		Int("records", len(results)).
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Collection drained")

	return results, nil
}

// validate checks the envelope contract and returns the inner data object.
func (e *envelope) validate(endpoint string, offset int) (*envelopeData, error) {
	fail := func(reason string) error {
		return &ProtocolError{Endpoint: endpoint, Offset: offset, Reason: reason}
	}

	switch {
	case e.Data == nil:
		return nil, fail("missing data object")
	case e.Data.Total == nil:
		return nil, fail("missing data.total")
	case e.Data.Count == nil:
		return nil, fail("missing data.count")
	case e.Data.Results == nil:
		return nil, fail("missing data.results")
	case *e.Data.Total < 0:
		return nil, fail(fmt.Sprintf("negative total %d", *e.Data.Total))
	case *e.Data.Count < 0:
		return nil, fail(fmt.Sprintf("negative count %d", *e.Data.Count))
	case *e.Data.Count != len(e.Data.Results):
		return nil, fail(fmt.Sprintf("count %d does not match %d results", *e.Data.Count, len(e.Data.Results)))
	}

	return e.Data, nil
}
