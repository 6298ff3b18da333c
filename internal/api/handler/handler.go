// Package handler implements the Discovery HTTP surface and the
// admin network-registry surface over internal/metadata and
// internal/query, matching the teacher's mux.Router + RequireAuth
// middleware shape generalized to two independently-configured
// bearer tokens.
package handler

import (
	"net/http"

	"github.com/blockwatch-labs/tzindexer/internal/metadata"
	"github.com/blockwatch-labs/tzindexer/internal/query"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// KeyValidator reports whether an API key presented on the Discovery
// surface is valid. The source of truth for valid keys is a collaborator
// this package never implements, matching spec's scoping of API
// credential storage outside this module's responsibility.
type KeyValidator interface {
	Valid(key string) bool
}

// StaticKeySet is the simplest KeyValidator: a fixed set of keys loaded
// once at startup from configuration.
type StaticKeySet map[string]struct{}

// NewStaticKeySet builds a StaticKeySet from a list of configured keys.
func NewStaticKeySet(keys []string) StaticKeySet {
	s := make(StaticKeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Valid reports whether key is one of the configured keys. An empty
// configured set accepts any non-empty key, so a deployment that has not
// yet configured API keys is not locked out of its own Discovery surface.
func (s StaticKeySet) Valid(key string) bool {
	if key == "" {
		return false
	}
	if len(s) == 0 {
		return true
	}
	_, ok := s[key]
	return ok
}

// Handler holds the dependencies every Discovery and admin route needs.
// One Handler instance is shared by every registered route; EngineFor
// resolves the per-(platform,network) query engine the Discovery data
// route needs without the Handler itself holding per-network state.
type Handler struct {
	Metadata   *metadata.Service
	EngineFor  func(platform, network string) (*query.Engine, bool)
	Keys       KeyValidator
	AdminToken string
	Admin      *AdminStore
	Logger     *zap.Logger
}

// NewHandler builds a Handler wired to the shared metadata service, a
// per-network query engine resolver, the Discovery apiKey validator, and
// the admin surface's bearer token and backing store.
func NewHandler(meta *metadata.Service, engineFor func(platform, network string) (*query.Engine, bool), keys KeyValidator, adminToken string, admin *AdminStore, logger *zap.Logger) *Handler {
	return &Handler{
		Metadata:   meta,
		EngineFor:  engineFor,
		Keys:       keys,
		AdminToken: adminToken,
		Admin:      admin,
		Logger:     logger,
	}
}

// NewRouter builds the full route table: the public health check, the
// apiKey-gated Discovery surface, and the bearer-token-gated admin
// surface, every route wrapped in recoverMiddleware.
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.recoverMiddleware)

	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)

	discovery := r.PathPrefix("/v2").Subrouter()
	discovery.Use(h.requireAPIKey)
	discovery.HandleFunc("/metadata/platforms", h.HandlePlatforms).Methods(http.MethodGet)
	discovery.HandleFunc("/metadata/{platform}/networks", h.HandleNetworks).Methods(http.MethodGet)
	discovery.HandleFunc("/metadata/{platform}/{network}/entities", h.HandleEntities).Methods(http.MethodGet)
	discovery.HandleFunc("/metadata/{platform}/{network}/{entity}/attributes", h.HandleAttributes).Methods(http.MethodGet)
	discovery.HandleFunc("/metadata/{platform}/{network}/{entity}/{attribute}", h.HandleAttributeValues).Methods(http.MethodGet)
	discovery.HandleFunc("/data/{platform}/{network}/{entity}", h.HandleDataQuery).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdminToken)
	admin.HandleFunc("/networks", h.HandleAdminNetworksList).Methods(http.MethodGet)
	admin.HandleFunc("/networks", h.HandleAdminNetworksUpsert).Methods(http.MethodPost)
	admin.HandleFunc("/networks/{platform}/{network}", h.HandleAdminNetworkDelete).Methods(http.MethodDelete)

	return r
}

// requireAPIKey validates the Discovery surface's apiKey header against
// h.Keys, responding 401 on a missing or invalid key.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("apiKey")
		if !h.Keys.Valid(key) {
			writeError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdminToken validates the admin surface's bearer token, a
// separate credential from the Discovery apiKey, matching the teacher's
// RequireAuth middleware generalized to two independently-configured
// tokens.
func (h *Handler) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+h.AdminToken {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware is the API layer's single top-level exception
// interceptor: a panic anywhere downstream is logged and turned into the
// spec's opaque 500 body, rather than crashing the process or leaking a
// stack trace to the caller.
func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Logger.Error("panic recovered in HTTP handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "serverResource failed")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// HandleHealth returns a simple health check response.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeError writes the spec's status-code/body contract: every
// non-2xx Discovery/admin response is a flat JSON object with one
// "message" field.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// writeJSON writes a 200 response with the given payload.
func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
