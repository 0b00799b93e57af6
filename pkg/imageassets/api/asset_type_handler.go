package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/just-work/image-assets/pkg/imageassets"
)

// CreateAssetTypeRequest is the request body for creating an asset type
type CreateAssetTypeRequest struct {
	Slug           string   `json:"slug"`
	AllowedFormats []string `json:"allowed_formats,omitempty"`
	MinWidth       int      `json:"min_width,omitempty"`
	MinHeight      int      `json:"min_height,omitempty"`
	Aspect         float64  `json:"aspect,omitempty"`
	Accuracy       float64  `json:"accuracy,omitempty"`
	MaxSize        int64    `json:"max_size,omitempty"`
	RequiredFor    []string `json:"required_for,omitempty"`
	AllowedFor     []string `json:"allowed_for,omitempty"`
}

// AssetTypeResponse is the response body for an asset type
type AssetTypeResponse struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	AllowedFormats []string  `json:"allowed_formats,omitempty"`
	MinWidth       int       `json:"min_width,omitempty"`
	MinHeight      int       `json:"min_height,omitempty"`
	Aspect         float64   `json:"aspect,omitempty"`
	Accuracy       float64   `json:"accuracy,omitempty"`
	MaxSize        int64     `json:"max_size,omitempty"`
	RequiredFor    []string  `json:"required_for,omitempty"`
	AllowedFor     []string  `json:"allowed_for,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AssetTypeHandler handles HTTP requests for asset types
type AssetTypeHandler struct {
	service imageassets.Service
}

// NewAssetTypeHandler creates a new asset type handler
func NewAssetTypeHandler(service imageassets.Service) *AssetTypeHandler {
	return &AssetTypeHandler{service: service}
}

// Routes returns the routes for asset types
func (h *AssetTypeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateAssetType)
	r.Get("/", h.ListAssetTypes)
	r.Get("/{id}", h.GetAssetType)
	r.Put("/{id}", h.UpdateAssetType)
	r.Get("/slug/{slug}", h.GetAssetTypeBySlug)

	return r
}

// CreateAssetType creates a new asset type
func (h *AssetTypeHandler) CreateAssetType(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	assetType, err := h.service.CreateAssetType(r.Context(), imageassets.CreateAssetTypeRequest{
		Slug:           req.Slug,
		AllowedFormats: toFormats(req.AllowedFormats),
		MinWidth:       req.MinWidth,
		MinHeight:      req.MinHeight,
		Aspect:         req.Aspect,
		Accuracy:       req.Accuracy,
		MaxSize:        req.MaxSize,
		RequiredFor:    toHostKinds(req.RequiredFor),
		AllowedFor:     toHostKinds(req.AllowedFor),
	})
	if err != nil {
		slog.Error("Failed to create asset type", "slug", req.Slug, "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Asset type created", "asset_type_id", assetType.ID.String(), "slug", assetType.Slug)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAssetTypeResponse(assetType))
}

// ListAssetTypes lists asset types
// Query parameters:
//   - kind: only return types attachable to this host kind
func (h *AssetTypeHandler) ListAssetTypes(w http.ResponseWriter, r *http.Request) {
	kind := imageassets.HostKind(r.URL.Query().Get("kind"))

	types, err := h.service.TypesFor(r.Context(), kind)
	if err != nil {
		slog.Error("Failed to list asset types", "kind", kind, "error", err)
		writeServiceError(w, r, err)
		return
	}

	resp := make([]AssetTypeResponse, 0, len(types))
	for _, t := range types {
		resp = append(resp, toAssetTypeResponse(t))
	}
	render.JSON(w, r, resp)
}

// GetAssetType retrieves an asset type by ID
func (h *AssetTypeHandler) GetAssetType(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid asset type ID", http.StatusBadRequest)
		return
	}

	assetType, err := h.service.GetAssetType(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get asset type", "asset_type_id", idStr, "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, toAssetTypeResponse(assetType))
}

// GetAssetTypeBySlug retrieves an asset type by its slug
func (h *AssetTypeHandler) GetAssetTypeBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	assetType, err := h.service.GetAssetTypeBySlug(r.Context(), slug)
	if err != nil {
		slog.Error("Failed to get asset type by slug", "slug", slug, "error", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, toAssetTypeResponse(assetType))
}

// UpdateAssetType replaces the validation policy of an asset type
func (h *AssetTypeHandler) UpdateAssetType(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid asset type ID", http.StatusBadRequest)
		return
	}

	var req CreateAssetTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	existing, err := h.service.GetAssetType(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	existing.Slug = req.Slug
	existing.AllowedFormats = toFormats(req.AllowedFormats)
	existing.MinWidth = req.MinWidth
	existing.MinHeight = req.MinHeight
	existing.Aspect = req.Aspect
	existing.Accuracy = req.Accuracy
	existing.MaxSize = req.MaxSize
	existing.RequiredFor = toHostKinds(req.RequiredFor)
	existing.AllowedFor = toHostKinds(req.AllowedFor)

	if err := h.service.UpdateAssetType(r.Context(), imageassets.UpdateAssetTypeRequest{AssetType: existing}); err != nil {
		slog.Error("Failed to update asset type", "asset_type_id", idStr, "error", err)
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Asset type updated", "asset_type_id", idStr)
	render.JSON(w, r, toAssetTypeResponse(existing))
}

func toAssetTypeResponse(t *imageassets.AssetType) AssetTypeResponse {
	return AssetTypeResponse{
		ID:             t.ID.String(),
		Slug:           t.Slug,
		AllowedFormats: fromFormats(t.AllowedFormats),
		MinWidth:       t.MinWidth,
		MinHeight:      t.MinHeight,
		Aspect:         t.Aspect,
		Accuracy:       t.Accuracy,
		MaxSize:        t.MaxSize,
		RequiredFor:    fromHostKinds(t.RequiredFor),
		AllowedFor:     fromHostKinds(t.AllowedFor),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func toFormats(values []string) []imageassets.Format {
	if len(values) == 0 {
		return nil
	}
	formats := make([]imageassets.Format, len(values))
	for i, v := range values {
		formats[i] = imageassets.Format(v)
	}
	return formats
}

func fromFormats(formats []imageassets.Format) []string {
	if len(formats) == 0 {
		return nil
	}
	values := make([]string, len(formats))
	for i, f := range formats {
		values[i] = string(f)
	}
	return values
}

func toHostKinds(values []string) []imageassets.HostKind {
	if len(values) == 0 {
		return nil
	}
	kinds := make([]imageassets.HostKind, len(values))
	for i, v := range values {
		kinds[i] = imageassets.HostKind(v)
	}
	return kinds
}

func fromHostKinds(kinds []imageassets.HostKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	values := make([]string, len(kinds))
	for i, k := range kinds {
		values[i] = string(k)
	}
	return values
}
