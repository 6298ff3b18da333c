package handler

import (
	"errors"
	"net/http"

	"github.com/blockwatch-labs/tzindexer/internal/metadata"
	"github.com/blockwatch-labs/tzindexer/internal/query"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandlePlatforms serves GET /v2/metadata/platforms.
func (h *Handler) HandlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Metadata.ListPlatforms())
}

// HandleNetworks serves GET /v2/metadata/{platform}/networks.
func (h *Handler) HandleNetworks(w http.ResponseWriter, r *http.Request) {
	platform := mux.Vars(r)["platform"]
	out, err := h.Metadata.ListNetworks(platform)
	if h.writeMetadataError(w, err) {
		return
	}
	writeJSON(w, out)
}

// HandleEntities serves GET /v2/metadata/{platform}/{network}/entities.
func (h *Handler) HandleEntities(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.Metadata.ListEntities(vars["platform"], vars["network"])
	if h.writeMetadataError(w, err) {
		return
	}
	writeJSON(w, out)
}

// HandleAttributes serves GET /v2/metadata/{platform}/{network}/{entity}/attributes.
func (h *Handler) HandleAttributes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.Metadata.ListAttributes(vars["platform"], vars["network"], vars["entity"])
	if h.writeMetadataError(w, err) {
		return
	}
	writeJSON(w, out)
}

// HandleAttributeValues serves GET /v2/metadata/{platform}/{network}/{entity}/{attribute}.
// An optional ?prefix= query param narrows the returned values, the same
// prefix-bound LIKE the engine's cache-miss path uses.
func (h *Handler) HandleAttributeValues(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	platform, network, entity, attribute := vars["platform"], vars["network"], vars["entity"], vars["attribute"]

	engine, ok := h.EngineFor(platform, network)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	values, err := engine.AttributeValues(r.Context(), platform, network, entity, attribute, r.URL.Query().Get("prefix"))
	if h.writeMetadataError(w, err) {
		return
	}
	writeJSON(w, values)
}

// dataQueryBody is the POST /v2/data/{p}/{n}/{e} request shape: a
// caller-supplied query.Query, decoded with the same go-jose codec the
// rest of this handler layer uses.
type dataQueryBody struct {
	Select       []string            `json:"select"`
	Predicates   []query.Predicate   `json:"predicates"`
	Aggregations []query.Aggregation `json:"aggregations"`
	GroupBy      []string            `json:"groupBy"`
	OrderBy      []query.OrderBy     `json:"orderBy"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// HandleDataQuery serves POST /v2/data/{platform}/{network}/{entity}.
func (h *Handler) HandleDataQuery(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	platform, network, entity := vars["platform"], vars["network"], vars["entity"]

	engine, ok := h.EngineFor(platform, network)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var body dataQueryBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
	}

	q := query.Query{
		Select:       body.Select,
		Predicates:   body.Predicates,
		Aggregations: body.Aggregations,
		GroupBy:      body.GroupBy,
		OrderBy:      body.OrderBy,
		Limit:        body.Limit,
		Offset:       body.Offset,
	}

	rows, err := engine.Run(r.Context(), platform, network, entity, q)
	if err != nil {
		var ve *query.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		if h.writeMetadataError(w, err) {
			return
		}
		h.Logger.Error("data query execution failed", zap.String("platform", platform), zap.String("network", network), zap.String("entity", entity), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "serverResource failed")
		return
	}
	writeJSON(w, rows)
}

// writeMetadataError renders err using spec's 404-for-unknown-or-hidden
// collapse, returning true if it wrote a response (so callers can early
// return) and false if err is nil.
func (h *Handler) writeMetadataError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	var unknown *metadata.UnknownPathError
	var hidden *metadata.HiddenPathError
	if errors.As(err, &unknown) || errors.As(err, &hidden) {
		writeError(w, http.StatusNotFound, "not found")
		return true
	}
	h.Logger.Error("discovery request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "serverResource failed")
	return true
}
