package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quickpick/backend/config"
	"github.com/quickpick/backend/internal/domain"
	"github.com/quickpick/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Cache: config.CacheConfig{Type: "memory"},
	}
}

// setupTestRouter creates a test router without a comparison service
func setupTestRouter() *gin.Engine {
	return SetupRouter(testConfig(), NewHandler(nil), zerolog.Nop())
}

// --- Mock implementations of the domain interfaces ---

type mockCacheRepository struct {
	data map[string]interface{}
}

func newMockCacheRepository() *mockCacheRepository {
	return &mockCacheRepository{data: make(map[string]interface{})}
}

func (m *mockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *mockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

type mockGeocoder struct {
	location *domain.Location
	err      error
}

func (m *mockGeocoder) Lookup(ctx context.Context, pincode string) (*domain.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.location, nil
}

type mockSource struct {
	provider domain.ProviderID
	records  []domain.RawRecord
	err      error
}

func (m *mockSource) Provider() domain.ProviderID { return m.provider }

func (m *mockSource) Fetch(ctx context.Context, query string, location domain.Location) ([]domain.RawRecord, error) {
	return m.records, m.err
}

// setupTestRouterWithService creates a test router with a real SearchService over mocks
func setupTestRouterWithService(geocoder domain.Geocoder, sources ...domain.ProviderSource) *gin.Engine {
	service := usecase.NewSearchService(
		newMockCacheRepository(),
		geocoder,
		sources,
		usecase.NewComparator(usecase.ComparatorConfig{}, zerolog.Nop()),
		usecase.SearchServiceConfig{LocationTTL: time.Hour},
		zerolog.Nop(),
	)
	return SetupRouter(testConfig(), NewHandler(service), zerolog.Nop())
}

func bangaloreGeocoder() *mockGeocoder {
	return &mockGeocoder{location: &domain.Location{Pincode: "560001", Latitude: 12.97, Longitude: 77.59}}
}

func postJSON(router *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decodeBody(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "quickpick-backend" {
			t.Errorf("service = %v, want quickpick-backend", response["service"])
		}
		if w.Header().Get(requestIDHeader) == "" {
			t.Errorf("X-Request-ID header missing")
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestProvidersEndpoint tests the provider listing
func TestProvidersEndpoint(t *testing.T) {
	router := setupTestRouterWithService(bangaloreGeocoder(),
		&mockSource{provider: domain.ProviderZepto},
	)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		Providers []providerInfo `json:"providers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	want := []providerInfo{
		{ID: domain.ProviderBlinkit, Enabled: false},
		{ID: domain.ProviderZepto, Enabled: true},
		{ID: domain.ProviderInstamart, Enabled: false},
	}
	if len(response.Providers) != len(want) {
		t.Fatalf("providers = %v, want %v", response.Providers, want)
	}
	for i := range want {
		if response.Providers[i] != want[i] {
			t.Errorf("providers[%d] = %+v, want %+v", i, response.Providers[i], want[i])
		}
	}
}

// TestSearchCompareEndpoint tests the full search endpoint
func TestSearchCompareEndpoint(t *testing.T) {
	t.Run("returns not implemented without a service", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/search/compare", `{"query":"milk","pincode":"560001"}`)

		if w.Code != http.StatusNotImplemented {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotImplemented)
		}
		errorMsg, _ := decodeBody(t, w)["error"].(string)
		if !strings.Contains(errorMsg, "not configured") {
			t.Errorf("error = %q, want to contain 'not configured'", errorMsg)
		}
	})

	t.Run("returns matched rows cheapest first", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder(),
			&mockSource{provider: domain.ProviderBlinkit, records: []domain.RawRecord{
				{"name": "Amul Taaza Toned Milk", "quantity": "500 ml", "price": "₹27", "outOfStock": false},
				{"name": "Amul Gold Full Cream Milk", "quantity": "1 l", "price": "₹68", "outOfStock": false},
			}},
			&mockSource{provider: domain.ProviderZepto, records: []domain.RawRecord{
				{"name": "Amul Taaza Toned Fresh Milk 500 ml", "price": "₹26", "mrp": "₹28", "outOfStock": false},
			}},
			&mockSource{provider: domain.ProviderInstamart, err: domain.ErrProviderFailure},
		)

		w := postJSON(router, "/api/v1/search/compare", `{"query":"amul milk","pincode":"560001"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.ComparisonResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if result.Query != "amul milk" {
			t.Errorf("query = %q, want amul milk", result.Query)
		}
		if result.Location == nil || result.Location.Pincode != "560001" {
			t.Errorf("location = %+v, want pincode 560001", result.Location)
		}
		if result.Providers[domain.ProviderInstamart] != domain.ProviderStatusFailed {
			t.Errorf("instamart status = %s, want failed", result.Providers[domain.ProviderInstamart])
		}
		if len(result.Rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(result.Rows))
		}

		first := result.Rows[0]
		if first.BestPrice == nil || *first.BestPrice != 26 {
			t.Errorf("first row best price = %v, want 26", first.BestPrice)
		}
		if first.BestProvider == nil || *first.BestProvider != domain.ProviderZepto {
			t.Errorf("first row best provider = %v, want zepto", first.BestProvider)
		}
		if first.Providers[domain.ProviderBlinkit] == nil || first.Providers[domain.ProviderZepto] == nil {
			t.Errorf("first row = %+v, want blinkit and zepto matched", first.Providers)
		}
	})

	t.Run("absent providers serialize as null", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder(),
			&mockSource{provider: domain.ProviderBlinkit, records: []domain.RawRecord{
				{"name": "Lays Classic Salted", "quantity": "52 g", "price": "₹20"},
			}},
		)

		w := postJSON(router, "/api/v1/search/compare", `{"query":"lays","pincode":"560001"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		rows := decodeBody(t, w)["results"].([]interface{})
		providers := rows[0].(map[string]interface{})["providers"].(map[string]interface{})
		for _, p := range []string{"zepto", "instamart"} {
			value, ok := providers[p]
			if !ok || value != nil {
				t.Errorf("providers[%s] = %v (present %v), want null", p, value, ok)
			}
		}
	})

	t.Run("returns 400 for missing pincode", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder())

		w := postJSON(router, "/api/v1/search/compare", `{"query":"milk"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder())

		w := postJSON(router, "/api/v1/search/compare", `{invalid`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 when the pincode cannot be resolved", func(t *testing.T) {
		router := setupTestRouterWithService(&mockGeocoder{err: domain.ErrLocationNotFound})

		w := postJSON(router, "/api/v1/search/compare", `{"query":"milk","pincode":"000000"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if msg := decodeBody(t, w)["error"]; msg != "failed to get location from pincode" {
			t.Errorf("error = %v, want location failure", msg)
		}
	})

	t.Run("returns 404 when no provider has results", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder(),
			&mockSource{provider: domain.ProviderBlinkit, records: []domain.RawRecord{}},
			&mockSource{provider: domain.ProviderZepto, err: errors.New("scraper down")},
		)

		w := postJSON(router, "/api/v1/search/compare", `{"query":"unobtainium","pincode":"560001"}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("validates HTTP method", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"GET", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/api/v1/search/compare", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestCompareEndpoint tests comparison of caller-supplied listings
func TestCompareEndpoint(t *testing.T) {
	t.Run("compares supplied listings", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder())

		payload := `{"providers":{
			"blinkit":[{"name":"Lays Classic Salted Chips","quantity":"52 g","price":"₹20"}],
			"zepto":[{"name":"Lay's Classic Salted Potato Chips 50g","price":"₹20","mrp":"₹20"}],
			"instamart":[{"name":"Bingo Original Style Chips","quantity":"50 g","price":"₹20","availability":"Available"}]
		}}`
		w := postJSON(router, "/api/v1/compare", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.ComparisonResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(result.Rows) != 2 {
			t.Fatalf("rows = %d, want 2 (lays matched, bingo separate)", len(result.Rows))
		}
		if result.Location != nil {
			t.Errorf("location = %+v, want none", result.Location)
		}
		for provider, status := range result.Providers {
			if status != domain.ProviderStatusOK {
				t.Errorf("%s status = %s, want ok", provider, status)
			}
		}
	})

	t.Run("returns 400 for an unknown provider", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder())

		w := postJSON(router, "/api/v1/compare", `{"providers":{"bigbasket":[{"name":"x","price":1}]}}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for an empty body", func(t *testing.T) {
		router := setupTestRouterWithService(bangaloreGeocoder())

		w := postJSON(router, "/api/v1/compare", ``)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter()
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/api/v1/providers"},
		{"POST", "/api/v1/search/compare"},
		{"POST", "/api/v1/compare"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want application/json; charset=utf-8", got)
			}
			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
