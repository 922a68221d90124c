// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/severinkast/marvel-catalog-client/pkg/auth"
)

// MockCatalog is a configurable mock catalog gateway. It serves
// offset-paginated envelopes from seeded record sets, optionally verifies
// request signatures, and records every request's query parameters.
type MockCatalog struct {
	server      *httptest.Server
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
	handlers    map[string]func(w http.ResponseWriter, r *http.Request)
	creds       *auth.Credentials

	// Tracking
	RequestCount int
	Requests     []url.Values
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		collections: make(map[string][]json.RawMessage),
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.URL.Query())
		mock.mu.Unlock()

		if creds := mock.credentials(); creds != nil {
			if !validSignature(r.URL.Query(), *creds) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"code":"InvalidCredentials","message":"That hash, timestamp and key combination is invalid."}`))
				return
			}
		}

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.pageHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
}

// RequireSignature makes the mock reject requests whose ts/apikey/hash
// triple does not verify against the given key pair.
func (m *MockCatalog) RequireSignature(creds auth.Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
}

// SeedCollection installs n numbered records behind the given endpoint.
// Record i is {"id": i, "name": "record-i"}.
func (m *MockCatalog) SeedCollection(endpoint string, n int) {
	records := make([]json.RawMessage, n)
	for i := 0; i < n; i++ {
		records[i] = json.RawMessage(fmt.Sprintf(`{"id":%d,"name":"record-%d"}`, i, i))
	}
	m.SetCollection(endpoint, records)
}

// SetCollection installs an explicit record set behind the given endpoint.
func (m *MockCatalog) SetCollection(endpoint string, records []json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[endpoint] = records
}

// SetHandler sets a custom handler for a specific path, bypassing the
// paginated collection logic.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// FailAtOffset makes one endpoint return the given status for requests at
// exactly the given offset while serving normal pages otherwise.
func (m *MockCatalog) FailAtOffset(endpoint string, offset, status int, body string) {
	m.SetHandler(endpoint, func(w http.ResponseWriter, r *http.Request) {
		got, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if got == offset {
			w.WriteHeader(status)
			w.Write([]byte(body))
			return
		}
		m.pageHandler(w, r)
	})
}

// ServePage serves the default paginated response for the request. Custom
// handlers installed via SetHandler call this to fall back to the seeded
// collection.
func (m *MockCatalog) ServePage(w http.ResponseWriter, r *http.Request) {
	m.pageHandler(w, r)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Offsets returns the offset parameter of every request in arrival order.
func (m *MockCatalog) Offsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	offsets := make([]int, 0, len(m.Requests))
	for _, q := range m.Requests {
		offset, _ := strconv.Atoi(q.Get("offset"))
		offsets = append(offsets, offset)
	}
	return offsets
}

func (m *MockCatalog) credentials() *auth.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

// pageHandler serves one envelope page from the seeded collection.
func (m *MockCatalog) pageHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	records, ok := m.collections[r.URL.Path]
	m.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":404,"status":"We couldn't find that resource"}`))
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":409,"status":"You may not request more than 100 items."}`))
		return
	}

	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":409,"status":"Invalid offset."}`))
		return
	}

	total := len(records)
	end := offset + limit
	if end > total {
		end = total
	}

	var page []json.RawMessage
	if offset < total {
		page = records[offset:end]
	} else {
		page = []json.RawMessage{}
	}

	envelope := map[string]interface{}{
		"code":   200,
		"status": "Ok",
		"data": map[string]interface{}{
			"offset":  offset,
			"limit":   limit,
			"total":   total,
			"count":   len(page),
			"results": page,
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(envelope)
}

// validSignature recomputes the hash for the request's ts and compares.
func validSignature(query url.Values, creds auth.Credentials) bool {
	ts := query.Get("ts")
	apikey := query.Get("apikey")
	hash := query.Get("hash")

	if ts == "" || apikey == "" || hash == "" {
		return false
	}
	if apikey != creds.PublicKey {
		return false
	}
	return hash == auth.Sign(ts, creds)
}
