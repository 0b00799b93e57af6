package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/just-work/image-assets/pkg/imageassets"
)

// AssetResponse is the response body for an asset
type AssetResponse struct {
	ID                 string    `json:"id"`
	AssetTypeID        string    `json:"asset_type_id"`
	HostKind           string    `json:"host_kind"`
	HostID             string    `json:"host_id"`
	StorageBackendName string    `json:"storage_backend_name"`
	BlobKey            string    `json:"blob_key"`
	FileName           string    `json:"file_name,omitempty"`
	Size               int64     `json:"size"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DeletedAssetResponse is the response body for a soft-deleted asset
type DeletedAssetResponse struct {
	ID                 string    `json:"id"`
	AssetTypeID        string    `json:"asset_type_id"`
	HostKind           string    `json:"host_kind"`
	HostID             string    `json:"host_id"`
	StorageBackendName string    `json:"storage_backend_name"`
	BlobKey            string    `json:"blob_key"`
	FileName           string    `json:"file_name,omitempty"`
	Size               int64     `json:"size"`
	DeletedAt          time.Time `json:"deleted_at"`
}

// AssetHandler handles HTTP requests for individual assets
type AssetHandler struct {
	service imageassets.Service
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service imageassets.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

// Routes returns the routes for assets
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", h.GetAsset)
	r.Get("/{id}/download", h.DownloadAsset)
	r.Get("/{id}/url", h.GetAssetURL)
	r.Patch("/{id}", h.UpdateAsset)
	r.Delete("/{id}", h.DeleteAsset)

	return r
}

// GetAsset retrieves an asset by ID
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get asset", "asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, toAssetResponse(asset))
}

// DownloadAsset streams the asset content to the client
func (h *AssetHandler) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	reader, err := h.service.DownloadAsset(r.Context(), id)
	if err != nil {
		slog.Error("Failed to download asset", "asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", "attachment")
	http.ServeContent(w, r, asset.FileName, asset.UpdatedAt, bytes.NewReader(data))
}

// AssetURLResponse is the response body for a download URL
type AssetURLResponse struct {
	URL string `json:"url"`
}

// GetAssetURL returns a direct download URL for the asset content
func (h *AssetHandler) GetAssetURL(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	url, err := h.service.GetAssetURL(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get asset URL", "asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, AssetURLResponse{URL: url})
}

// UpdateAssetRequest is the request body for updating an asset
type UpdateAssetRequest struct {
	Active bool `json:"active"`
}

// UpdateAsset toggles the active flag of an asset
func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, err := h.service.SetAssetActive(r.Context(), id, req.Active)
	if err != nil {
		slog.Error("Failed to update asset", "asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Asset updated", "asset_id", id.String(), "active", req.Active)
	render.JSON(w, r, toAssetResponse(asset))
}

// DeleteAsset soft-deletes an asset, retaining its blob for later purge or
// recovery. Returns the created deleted-asset record.
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteAsset(r.Context(), id)
	if err != nil {
		slog.Error("Failed to delete asset", "asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Asset deleted", "asset_id", id.String(), "deleted_asset_id", deleted.ID.String())
	render.JSON(w, r, toDeletedAssetResponse(deleted))
}

func assetIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func toAssetResponse(a *imageassets.Asset) AssetResponse {
	return AssetResponse{
		ID:                 a.ID.String(),
		AssetTypeID:        a.AssetTypeID.String(),
		HostKind:           string(a.Host.Kind),
		HostID:             a.Host.ID.String(),
		StorageBackendName: a.StorageBackendName,
		BlobKey:            a.BlobKey,
		FileName:           a.FileName,
		Size:               a.Size,
		Active:             a.Active,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toDeletedAssetResponse(d *imageassets.DeletedAsset) DeletedAssetResponse {
	return DeletedAssetResponse{
		ID:                 d.ID.String(),
		AssetTypeID:        d.AssetTypeID.String(),
		HostKind:           string(d.Host.Kind),
		HostID:             d.Host.ID.String(),
		StorageBackendName: d.StorageBackendName,
		BlobKey:            d.BlobKey,
		FileName:           d.FileName,
		Size:               d.Size,
		DeletedAt:          d.DeletedAt,
	}
}
