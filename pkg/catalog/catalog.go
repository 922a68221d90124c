// Package catalog exposes the resource-specific entry points of the comics
// catalog: characters and comics. Each entry point fixes an endpoint path
// and otherwise reuses the identical pagination drain.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/severinkast/marvel-catalog-client/pkg/pagination"
)

// Catalog endpoint paths.
const (
	EndpointCharacters = "/v1/public/characters"
	EndpointComics     = "/v1/public/comics"
)

// Client drains catalog collections. Every fetch re-pages from scratch;
// nothing is cached between invocations.
type Client struct {
	fetcher *pagination.Fetcher
}

// New creates a catalog client over the given transport.
func New(transport pagination.PageGetter, config pagination.Config) *Client {
	return &Client{
		fetcher: pagination.NewFetcher(transport, config),
	}
}

// FetchCharacters returns every character record in the catalog.
func (c *Client) FetchCharacters(ctx context.Context) ([]json.RawMessage, error) {
	return c.fetcher.FetchAll(ctx, EndpointCharacters)
}

// FetchComics returns every comic record in the catalog.
func (c *Client) FetchComics(ctx context.Context) ([]json.RawMessage, error) {
	return c.fetcher.FetchAll(ctx, EndpointComics)
}

// Character is the slice of a character record downstream consumers rely
// on. The raw record carries far more; anything not listed here passes
// through FetchCharacters untouched.
type Character struct {
	Name   string            `json:"name"`
	Comics ComicAvailability `json:"comics"`
}

// ComicAvailability is the nested per-character comics rollup.
type ComicAvailability struct {
	Available int `json:"available"`
}

// Comic is the minimal typed view of a comic record.
type Comic struct {
	Title string `json:"title"`
}

// DecodeCharacters converts raw character records into their typed view.
func DecodeCharacters(raw []json.RawMessage) ([]Character, error) {
	characters := make([]Character, len(raw))
	for i, record := range raw {
		if err := json.Unmarshal(record, &characters[i]); err != nil {
			return nil, fmt.Errorf("decode character record %d: %w", i, err)
		}
	}
	return characters, nil
}

// DecodeComics converts raw comic records into their typed view.
func DecodeComics(raw []json.RawMessage) ([]Comic, error) {
	comics := make([]Comic, len(raw))
	for i, record := range raw {
		if err := json.Unmarshal(record, &comics[i]); err != nil {
			return nil, fmt.Errorf("decode comic record %d: %w", i, err)
		}
	}
	return comics, nil
}
