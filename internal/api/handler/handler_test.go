package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blockwatch-labs/tzindexer/internal/metadata"
	"github.com/blockwatch-labs/tzindexer/internal/query"
	"github.com/blockwatch-labs/tzindexer/pkg/schema"
	"go.uber.org/zap"
)

func boolPtr(b bool) *bool { return &b }

func testMetadataService() *metadata.Service {
	reg := schema.Registry{Platforms: []schema.Platform{
		{Name: "tezos", Networks: []schema.Network{
			{Name: "mainnet", Entities: []schema.Entity{
				{Name: "blocks", Table: "blocks", Columns: []schema.ColumnDef{
					{Name: "hash", Type: schema.TypeHash},
					{Name: "level", Type: schema.TypeInt},
				}},
			}},
		}},
	}}
	overrides := metadata.OverrideTree{"tezos": metadata.PlatformOverride{Visible: boolPtr(true)}}
	return metadata.New(reg, overrides)
}

func noEngine(platform, network string) (*query.Engine, bool) { return nil, false }

func testHandler() *Handler {
	return NewHandler(testMetadataService(), noEngine, NewStaticKeySet(nil), "admintok", nil, zap.NewNop())
}

func TestStaticKeySetEmptyAcceptsAnyNonEmptyKey(t *testing.T) {
	s := NewStaticKeySet(nil)
	if !s.Valid("anything") {
		t.Error("Valid(anything) = false, want true for an unconfigured key set")
	}
	if s.Valid("") {
		t.Error("Valid(\"\") = true, want false")
	}
}

func TestStaticKeySetConfiguredRejectsUnknownKey(t *testing.T) {
	s := NewStaticKeySet([]string{"key-a", "key-b"})
	if !s.Valid("key-a") {
		t.Error("Valid(key-a) = false, want true")
	}
	if s.Valid("key-c") {
		t.Error("Valid(key-c) = true, want false")
	}
}

func TestHealthRouteIsUngated(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/health status = %d, want 200", rec.Code)
	}
}

func TestDiscoveryRouteRejectsMissingAPIKey(t *testing.T) {
	h := NewHandler(testMetadataService(), noEngine, NewStaticKeySet([]string{"secret"}), "admintok", nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v2/metadata/platforms", nil)
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] == "" {
		t.Error("401 response missing message field")
	}
}

func TestDiscoveryRouteAcceptsValidAPIKey(t *testing.T) {
	h := NewHandler(testMetadataService(), noEngine, NewStaticKeySet([]string{"secret"}), "admintok", nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v2/metadata/platforms", nil)
	req.Header.Set("apiKey", "secret")
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestDiscoveryUnknownPlatformRenders404(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/v2/metadata/bitcoin/networks", nil)
	req.Header.Set("apiKey", "anykey")
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDataQueryRouteMissingEngineRenders404(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodPost, "/v2/data/tezos/mainnet/blocks", nil)
	req.Header.Set("apiKey", "anykey")
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAdminRouteRejectsMissingBearerToken(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/admin/networks", nil)
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRouteRejectsWrongBearerToken(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/admin/networks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// panicHandler always panics, used to exercise recoverMiddleware.
func panicHandler(w http.ResponseWriter, r *http.Request) {
	panic("boom")
}

func TestRecoverMiddlewareTurnsPanicIntoOpaque500(t *testing.T) {
	h := testHandler()
	mw := h.recoverMiddleware(http.HandlerFunc(panicHandler))
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "serverResource failed" {
		t.Errorf("message = %q, want \"serverResource failed\"", body["message"])
	}
}

func TestWriteJSONSetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, map[string]int{"a": 1})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}
