package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/just-work/image-assets/pkg/imageassets"
)

// DeletedAssetHandler handles HTTP requests for soft-deleted assets
type DeletedAssetHandler struct {
	service imageassets.Service
}

// NewDeletedAssetHandler creates a new deleted asset handler
func NewDeletedAssetHandler(service imageassets.Service) *DeletedAssetHandler {
	return &DeletedAssetHandler{service: service}
}

// Routes returns the routes for deleted assets
func (h *DeletedAssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{id}/recover", h.RecoverDeletedAsset)
	r.Delete("/{id}", h.PurgeDeletedAsset)

	return r
}

// RecoverDeletedAsset turns a deleted asset back into an inactive asset.
// The blob is reattached as is; no content is copied or re-validated.
func (h *DeletedAssetHandler) RecoverDeletedAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	asset, err := h.service.RecoverDeletedAsset(r.Context(), id)
	if err != nil {
		slog.Error("Failed to recover deleted asset", "deleted_asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Deleted asset recovered", "deleted_asset_id", id.String(), "asset_id", asset.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAssetResponse(asset))
}

// PurgeDeletedAsset removes a deleted asset and its blob permanently
func (h *DeletedAssetHandler) PurgeDeletedAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.PurgeDeletedAsset(r.Context(), id); err != nil {
		slog.Error("Failed to purge deleted asset", "deleted_asset_id", id.String(), "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Deleted asset purged", "deleted_asset_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
