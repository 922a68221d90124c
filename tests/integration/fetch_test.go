package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/severinkast/marvel-catalog-client/internal/testutil"
	"github.com/severinkast/marvel-catalog-client/pkg/auth"
	"github.com/severinkast/marvel-catalog-client/pkg/catalog"
	"github.com/severinkast/marvel-catalog-client/pkg/client"
	"github.com/severinkast/marvel-catalog-client/pkg/pagination"
	"github.com/severinkast/marvel-catalog-client/pkg/retry"
)

func newCatalogClient(t *testing.T, mock *testutil.MockCatalog, creds auth.Credentials) *catalog.Client {
	t.Helper()

	cfg := client.DefaultConfig(creds)
	cfg.BaseURL = mock.URL()

	transport, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	return catalog.New(transport, pagination.DefaultConfig())
}

func TestFetchCharacters_DrainsFullCollection(t *testing.T) {
	creds := auth.NewCredentials("pub", "priv")

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.RequireSignature(creds)
	mock.SeedCollection(catalog.EndpointCharacters, 250)

	c := newCatalogClient(t, mock, creds)

	records, err := c.FetchCharacters(context.Background())
	if err != nil {
		t.Fatalf("FetchCharacters() error = %v", err)
	}

	if len(records) != 250 {
		t.Errorf("len(records) = %d, want 250", len(records))
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("requests = %d, want 3", mock.GetRequestCount())
	}

	wantOffsets := []int{0, 100, 200}
	gotOffsets := mock.Offsets()
	if len(gotOffsets) != len(wantOffsets) {
		t.Fatalf("offsets = %v, want %v", gotOffsets, wantOffsets)
	}
	for i := range wantOffsets {
		if gotOffsets[i] != wantOffsets[i] {
			t.Errorf("offset[%d] = %d, want %d", i, gotOffsets[i], wantOffsets[i])
		}
	}

	// Concatenation preserves catalog order end to end.
	for i, raw := range records {
		var record struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			t.Fatalf("record %d undecodable: %v", i, err)
		}
		if record.ID != i {
			t.Fatalf("records[%d].id = %d, want %d", i, record.ID, i)
		}
	}
}

func TestFetchComics_IndependentOfCharacters(t *testing.T) {
	creds := auth.NewCredentials("pub", "priv")

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SeedCollection(catalog.EndpointCharacters, 30)
	mock.SeedCollection(catalog.EndpointComics, 120)

	c := newCatalogClient(t, mock, creds)
	ctx := context.Background()

	characters, err := c.FetchCharacters(ctx)
	if err != nil {
		t.Fatalf("FetchCharacters() error = %v", err)
	}
	comics, err := c.FetchComics(ctx)
	if err != nil {
		t.Fatalf("FetchComics() error = %v", err)
	}

	if len(characters) != 30 {
		t.Errorf("characters = %d, want 30", len(characters))
	}
	if len(comics) != 120 {
		t.Errorf("comics = %d, want 120", len(comics))
	}
	// 1 page of characters + 2 pages of comics.
	if mock.GetRequestCount() != 3 {
		t.Errorf("requests = %d, want 3", mock.GetRequestCount())
	}
}

func TestFetch_InvalidSignatureRejected(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.RequireSignature(auth.NewCredentials("pub", "priv"))
	mock.SeedCollection(catalog.EndpointCharacters, 10)

	// Wrong private key: hashes will not verify.
	c := newCatalogClient(t, mock, auth.NewCredentials("pub", "wrong"))

	_, err := c.FetchCharacters(context.Background())
	if err == nil {
		t.Fatal("expected authentication failure")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestFetch_MidDrainFailureReturnsNothing(t *testing.T) {
	creds := auth.NewCredentials("pub", "priv")

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SeedCollection(catalog.EndpointCharacters, 250)
	mock.FailAtOffset(catalog.EndpointCharacters, 100, http.StatusInternalServerError, "upstream exploded")

	c := newCatalogClient(t, mock, creds)

	records, err := c.FetchCharacters(context.Background())
	if err == nil {
		t.Fatal("expected mid-drain failure")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
	if apiErr.Body != "upstream exploded" {
		t.Errorf("Body = %q, want raw gateway body", apiErr.Body)
	}
	if records != nil {
		t.Errorf("got %d partial records, want none", len(records))
	}
}

func TestFetch_ZeroCountPageAborts(t *testing.T) {
	creds := auth.NewCredentials("pub", "priv")

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SeedCollection(catalog.EndpointCharacters, 250)
	mock.SetHandler(catalog.EndpointCharacters, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "100" {
			w.Write([]byte(`{"data":{"total":250,"count":0,"results":[]}}`))
			return
		}
		mock.ServePage(w, r)
	})

	c := newCatalogClient(t, mock, creds)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.FetchCharacters(ctx)

	var protoErr *pagination.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error type = %T (%v), want *ProtocolError", err, err)
	}
}

func TestFetch_RetryWrapperRecoversTransientFailure(t *testing.T) {
	creds := auth.NewCredentials("pub", "priv")

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SeedCollection(catalog.EndpointCharacters, 150)

	// First attempt dies on page two; later attempts see a healthy gateway.
	failures := 1
	mock.SetHandler(catalog.EndpointCharacters, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "100" && failures > 0 {
			failures--
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("warming up"))
			return
		}
		mock.ServePage(w, r)
	})

	c := newCatalogClient(t, mock, creds)

	var records []json.RawMessage
	retryCfg := retry.Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	err := retry.Do(context.Background(), retryCfg, func() error {
		var fetchErr error
		records, fetchErr = c.FetchCharacters(context.Background())
		return fetchErr
	})
	if err != nil {
		t.Fatalf("retry.Do() error = %v", err)
	}

	// The retried attempt re-paged from scratch: a complete result set.
	if len(records) != 150 {
		t.Errorf("len(records) = %d, want 150", len(records))
	}
}
