package handler

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleAdminNetworksList returns every registered (platform, network)
// pair's RPC endpoint configuration.
func (h *Handler) HandleAdminNetworksList(w http.ResponseWriter, r *http.Request) {
	networks, err := h.Admin.List(r.Context())
	if err != nil {
		h.Logger.Error("failed to list registered networks", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "serverResource failed")
		return
	}
	if networks == nil {
		networks = make([]RegisteredNetwork, 0)
	}
	writeJSON(w, networks)
}

// HandleAdminNetworksUpsert registers or updates one (platform, network)
// pair's RPC endpoints, matching the teacher's HandleChainsUpsert shape
// generalized off a numeric chain id onto a platform+network key.
func (h *Handler) HandleAdminNetworksUpsert(w http.ResponseWriter, r *http.Request) {
	var n RegisteredNetwork
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if n.Platform == "" || n.Network == "" {
		writeError(w, http.StatusBadRequest, "platform and network are required")
		return
	}
	if len(n.Endpoints) == 0 {
		writeError(w, http.StatusBadRequest, "at least one endpoint is required")
		return
	}

	if err := h.Admin.Upsert(r.Context(), n); err != nil {
		h.Logger.Error("failed to upsert registered network", zap.Error(err), zap.String("platform", n.Platform), zap.String("network", n.Network))
		writeError(w, http.StatusInternalServerError, "serverResource failed")
		return
	}

	h.Logger.Info("network registered", zap.String("platform", n.Platform), zap.String("network", n.Network))
	writeJSON(w, n)
}

// HandleAdminNetworkDelete removes one (platform, network) pair's
// registration.
func (h *Handler) HandleAdminNetworkDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	platform, network := vars["platform"], vars["network"]

	if err := h.Admin.Delete(r.Context(), platform, network); err != nil {
		h.Logger.Error("failed to delete registered network", zap.Error(err), zap.String("platform", platform), zap.String("network", network))
		writeError(w, http.StatusInternalServerError, "serverResource failed")
		return
	}

	h.Logger.Info("network deregistered", zap.String("platform", platform), zap.String("network", network))
	writeJSON(w, map[string]string{"ok": "1"})
}
