package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/just-work/image-assets/pkg/imageassets"
)

// ViolationsResponse is the response body for a rejected validation
type ViolationsResponse struct {
	Error      string                  `json:"error"`
	Violations []imageassets.Violation `json:"violations"`
}

// writeServiceError maps service errors to HTTP status codes
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *imageassets.ValidationError
	if errors.As(err, &verr) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ViolationsResponse{
			Error:      "content rejected",
			Violations: verr.Violations,
		})
		return
	}

	switch {
	case errors.Is(err, imageassets.ErrAssetNotFound),
		errors.Is(err, imageassets.ErrAssetTypeNotFound),
		errors.Is(err, imageassets.ErrDeletedAssetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, imageassets.ErrDuplicateActiveAsset),
		errors.Is(err, imageassets.ErrDuplicateSlug):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, imageassets.ErrUnknownHostKind),
		errors.Is(err, imageassets.ErrHostInstanceRequired),
		errors.Is(err, imageassets.ErrStorageBackendNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
