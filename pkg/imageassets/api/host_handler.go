package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/just-work/image-assets/pkg/imageassets"
)

const maxUploadSize = 32 << 20 // 32 MB

// HostHandler handles HTTP requests scoped to a host entity
type HostHandler struct {
	service imageassets.Service
}

// NewHostHandler creates a new host handler
func NewHostHandler(service imageassets.Service) *HostHandler {
	return &HostHandler{service: service}
}

// Routes returns the routes for host-scoped operations
func (h *HostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{kind}/required-types", h.RequiredTypesForKind)
	r.Get("/{kind}/{id}/required-types", h.RequiredTypes)
	r.Get("/{kind}/{id}/assets", h.ListAssets)
	r.Post("/{kind}/{id}/assets", h.UploadAsset)
	r.Post("/{kind}/{id}/reconcile", h.Reconcile)
	r.Get("/{kind}/{id}/deleted-assets", h.ListDeletedAssets)

	return r
}

// RequiredTypesForKind lists the asset types required for every host of a kind
func (h *HostHandler) RequiredTypesForKind(w http.ResponseWriter, r *http.Request) {
	kind := imageassets.HostKind(chi.URLParam(r, "kind"))

	types, err := h.service.RequiredFor(r.Context(), imageassets.HostRef{Kind: kind})
	if err != nil {
		slog.Error("Failed to list required types", "kind", kind, "error", err)
		writeServiceError(w, r, err)
		return
	}

	resp := make([]AssetTypeResponse, 0, len(types))
	for _, t := range types {
		resp = append(resp, toAssetTypeResponse(t))
	}
	render.JSON(w, r, resp)
}

// RequiredTypes lists the asset types a host instance is still missing
func (h *HostHandler) RequiredTypes(w http.ResponseWriter, r *http.Request) {
	host, ok := hostFromURL(w, r)
	if !ok {
		return
	}

	types, err := h.service.RequiredFor(r.Context(), host)
	if err != nil {
		slog.Error("Failed to list required types", "host", host.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	resp := make([]AssetTypeResponse, 0, len(types))
	for _, t := range types {
		resp = append(resp, toAssetTypeResponse(t))
	}
	render.JSON(w, r, resp)
}

// ListAssets lists the assets attached to a host instance
func (h *HostHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	host, ok := hostFromURL(w, r)
	if !ok {
		return
	}

	assets, err := h.service.ListAssetsByHost(r.Context(), host)
	if err != nil {
		slog.Error("Failed to list assets", "host", host.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	resp := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		resp = append(resp, toAssetResponse(a))
	}
	render.JSON(w, r, resp)
}

// UploadAsset validates an uploaded file and attaches it to a host instance.
// Multipart form fields:
//   - file: the image content (required)
//   - asset_type_id: UUID of the asset type (required)
//   - active: "true" to activate immediately (default: false)
//   - storage_backend: backend name (default: service default)
func (h *HostHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	host, ok := hostFromURL(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	assetTypeID, err := uuid.Parse(r.FormValue("asset_type_id"))
	if err != nil {
		slog.Error("Invalid asset type ID", "asset_type_id", r.FormValue("asset_type_id"), "error", err)
		http.Error(w, "Invalid asset type ID", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing 'file' form field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, err := h.service.AttachAsset(r.Context(), imageassets.AttachAssetRequest{
		Host:               host,
		AssetTypeID:        assetTypeID,
		FileName:           header.Filename,
		Data:               data,
		Active:             r.FormValue("active") == "true",
		StorageBackendName: r.FormValue("storage_backend"),
	})
	if err != nil {
		slog.Error("Failed to attach asset", "host", host.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Asset attached", "asset_id", asset.ID.String(), "host", host.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAssetResponse(asset))
}

// ReconcileResponse is the response body for a reconciliation check
type ReconcileResponse struct {
	OK         bool                    `json:"ok"`
	Violations []imageassets.Violation `json:"violations,omitempty"`
}

// Reconcile checks a candidate attachment set against the host's policy.
// The request body is a JSON array of {asset_type_id, active} rows.
func (h *HostHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	host, ok := hostFromURL(w, r)
	if !ok {
		return
	}

	var edits []imageassets.AssetEdit
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	violations, err := h.service.Reconcile(r.Context(), host, edits)
	if err != nil {
		slog.Error("Failed to reconcile assets", "host", host.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, ReconcileResponse{
		OK:         len(violations) == 0,
		Violations: violations,
	})
}

// ListDeletedAssets lists the soft-deleted assets of a host instance
func (h *HostHandler) ListDeletedAssets(w http.ResponseWriter, r *http.Request) {
	host, ok := hostFromURL(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.ListDeletedAssetsByHost(r.Context(), host)
	if err != nil {
		slog.Error("Failed to list deleted assets", "host", host.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	resp := make([]DeletedAssetResponse, 0, len(deleted))
	for _, d := range deleted {
		resp = append(resp, toDeletedAssetResponse(d))
	}
	render.JSON(w, r, resp)
}

// hostFromURL parses the {kind}/{id} URL segments into a host reference.
// Writes a 400 response and returns false when the id is not a UUID.
func hostFromURL(w http.ResponseWriter, r *http.Request) (imageassets.HostRef, bool) {
	kind := imageassets.HostKind(chi.URLParam(r, "kind"))
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid host ID", "host_id", idStr, "error", err)
		http.Error(w, "Invalid host ID", http.StatusBadRequest)
		return imageassets.HostRef{}, false
	}
	return imageassets.HostRef{Kind: kind, ID: id}, true
}
