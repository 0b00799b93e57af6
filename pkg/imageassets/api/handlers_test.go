package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-work/image-assets/pkg/imageassets"
	"github.com/just-work/image-assets/pkg/imageassets/repo/memory"
	memorystorage "github.com/just-work/image-assets/pkg/imageassets/storage/memory"
)

func setupHandlerTest(t *testing.T) (chi.Router, imageassets.Service) {
	t.Helper()

	service, err := imageassets.New(
		imageassets.WithRepository(memory.New()),
		imageassets.WithBlobStore("memory", memorystorage.New()),
		imageassets.WithEventSink(imageassets.NewNoopEventSink()),
		imageassets.WithHostKinds("video", "article"),
	)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Mount("/asset-types", NewAssetTypeHandler(service).Routes())
	router.Mount("/hosts", NewHostHandler(service).Routes())
	router.Mount("/assets", NewAssetHandler(service).Routes())
	router.Mount("/deleted-assets", NewDeletedAssetHandler(service).Routes())

	return router, service
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func createTypeViaAPI(t *testing.T, router chi.Router, body CreateAssetTypeRequest) AssetTypeResponse {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/asset-types/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AssetTypeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func uploadViaAPI(t *testing.T, router chi.Router, host string, assetTypeID string, data []byte, active bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "poster.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("asset_type_id", assetTypeID))
	require.NoError(t, mw.WriteField("active", fmt.Sprintf("%t", active)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/hosts/"+host+"/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAssetTypeHandler_Create(t *testing.T) {
	router, _ := setupHandlerTest(t)

	resp := createTypeViaAPI(t, router, CreateAssetTypeRequest{
		Slug:           "poster",
		AllowedFormats: []string{"png"},
		MinWidth:       100,
		RequiredFor:    []string{"video"},
	})

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "poster", resp.Slug)
	assert.Equal(t, []string{"png"}, resp.AllowedFormats)
	assert.Equal(t, []string{"video"}, resp.RequiredFor)
}

func TestAssetTypeHandler_DuplicateSlug(t *testing.T) {
	router, _ := setupHandlerTest(t)
	createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster"})

	payload, _ := json.Marshal(CreateAssetTypeRequest{Slug: "poster"})
	req := httptest.NewRequest(http.MethodPost, "/asset-types/", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssetTypeHandler_ListByKind(t *testing.T) {
	router, _ := setupHandlerTest(t)
	createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster", RequiredFor: []string{"video"}})
	createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "cover", RequiredFor: []string{"article"}})

	req := httptest.NewRequest(http.MethodGet, "/asset-types/?kind=video", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []AssetTypeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "poster", resp[0].Slug)
}

func TestAssetTypeHandler_GetBySlug(t *testing.T) {
	router, _ := setupHandlerTest(t)
	created := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster"})

	req := httptest.NewRequest(http.MethodGet, "/asset-types/slug/poster", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AssetTypeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
}

func TestHostHandler_UploadAndList(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster", RequiredFor: []string{"video"}})
	host := "video/" + uuid.NewString()

	w := uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created AssetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Active)
	assert.Equal(t, "poster.png", created.FileName)

	req := httptest.NewRequest(http.MethodGet, "/hosts/"+host+"/assets", nil)
	lw := httptest.NewRecorder()
	router.ServeHTTP(lw, req)
	require.Equal(t, http.StatusOK, lw.Code)

	var listed []AssetResponse
	require.NoError(t, json.Unmarshal(lw.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestHostHandler_UploadRejectedContent(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster", MinWidth: 100})
	host := "video/" + uuid.NewString()

	w := uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), false)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ViolationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, imageassets.ViolationMinWidth, resp.Violations[0].Code)
}

func TestHostHandler_UploadDuplicateActive(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster"})
	host := "video/" + uuid.NewString()

	w := uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHostHandler_UnknownKind(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster"})

	w := uploadViaAPI(t, router, "podcast/"+uuid.NewString(), assetType.ID, testPNG(t, 10, 10), false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHostHandler_Reconcile(t *testing.T) {
	router, _ := setupHandlerTest(t)
	poster := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster", RequiredFor: []string{"video"}})
	thumb := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "thumbnail", RequiredFor: []string{"video"}})
	host := "video/" + uuid.NewString()

	reconcile := func(edits []imageassets.AssetEdit) ReconcileResponse {
		payload, err := json.Marshal(edits)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/hosts/"+host+"/reconcile", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp ReconcileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	posterID := uuid.MustParse(poster.ID)
	thumbID := uuid.MustParse(thumb.ID)

	resp := reconcile([]imageassets.AssetEdit{
		{AssetTypeID: posterID, Active: true},
		{AssetTypeID: thumbID, Active: true},
	})
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Violations)

	resp = reconcile([]imageassets.AssetEdit{
		{AssetTypeID: posterID, Active: true},
	})
	assert.False(t, resp.OK)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, imageassets.ViolationMissingTypes, resp.Violations[0].Code)
}

func TestHostHandler_RequiredTypes(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster", RequiredFor: []string{"video"}})
	host := "video/" + uuid.NewString()

	required := func(path string) []AssetTypeResponse {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp []AssetTypeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	assert.Len(t, required("/hosts/video/required-types"), 1)
	assert.Len(t, required("/hosts/"+host+"/required-types"), 1)

	w := uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), true)
	require.Equal(t, http.StatusCreated, w.Code)

	// The instance no longer misses the type; the kind still requires it.
	assert.Empty(t, required("/hosts/"+host+"/required-types"))
	assert.Len(t, required("/hosts/video/required-types"), 1)
}

func TestAssetHandler_Lifecycle(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster"})
	host := "video/" + uuid.NewString()

	w := uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), false)
	require.Equal(t, http.StatusCreated, w.Code)
	var asset AssetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &asset))

	// Activate
	payload, _ := json.Marshal(UpdateAssetRequest{Active: true})
	req := httptest.NewRequest(http.MethodPatch, "/assets/"+asset.ID, bytes.NewReader(payload))
	pw := httptest.NewRecorder()
	router.ServeHTTP(pw, req)
	require.Equal(t, http.StatusOK, pw.Code)

	var updated AssetResponse
	require.NoError(t, json.Unmarshal(pw.Body.Bytes(), &updated))
	assert.True(t, updated.Active)

	// Download
	req = httptest.NewRequest(http.MethodGet, "/assets/"+asset.ID+"/download", nil)
	dw := httptest.NewRecorder()
	router.ServeHTTP(dw, req)
	require.Equal(t, http.StatusOK, dw.Code)
	assert.Equal(t, "attachment", dw.Header().Get("Content-Disposition"))
	assert.NotZero(t, dw.Body.Len())

	// Soft delete
	req = httptest.NewRequest(http.MethodDelete, "/assets/"+asset.ID, nil)
	delw := httptest.NewRecorder()
	router.ServeHTTP(delw, req)
	require.Equal(t, http.StatusOK, delw.Code)

	var deleted DeletedAssetResponse
	require.NoError(t, json.Unmarshal(delw.Body.Bytes(), &deleted))
	assert.Equal(t, asset.BlobKey, deleted.BlobKey)

	// The asset is gone
	req = httptest.NewRequest(http.MethodGet, "/assets/"+asset.ID, nil)
	gw := httptest.NewRecorder()
	router.ServeHTTP(gw, req)
	assert.Equal(t, http.StatusNotFound, gw.Code)

	// Recover
	req = httptest.NewRequest(http.MethodPost, "/deleted-assets/"+deleted.ID+"/recover", nil)
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, req)
	require.Equal(t, http.StatusCreated, rw.Code)

	var recovered AssetResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &recovered))
	assert.False(t, recovered.Active)
	assert.Equal(t, asset.BlobKey, recovered.BlobKey)
}

func TestDeletedAssetHandler_Purge(t *testing.T) {
	router, _ := setupHandlerTest(t)
	assetType := createTypeViaAPI(t, router, CreateAssetTypeRequest{Slug: "poster"})
	host := "video/" + uuid.NewString()

	w := uploadViaAPI(t, router, host, assetType.ID, testPNG(t, 10, 10), false)
	require.Equal(t, http.StatusCreated, w.Code)
	var asset AssetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &asset))

	req := httptest.NewRequest(http.MethodDelete, "/assets/"+asset.ID, nil)
	delw := httptest.NewRecorder()
	router.ServeHTTP(delw, req)
	require.Equal(t, http.StatusOK, delw.Code)
	var deleted DeletedAssetResponse
	require.NoError(t, json.Unmarshal(delw.Body.Bytes(), &deleted))

	req = httptest.NewRequest(http.MethodDelete, "/deleted-assets/"+deleted.ID, nil)
	pw := httptest.NewRecorder()
	router.ServeHTTP(pw, req)
	assert.Equal(t, http.StatusNoContent, pw.Code)

	// Purging twice is a 404
	req = httptest.NewRequest(http.MethodDelete, "/deleted-assets/"+deleted.ID, nil)
	pw2 := httptest.NewRecorder()
	router.ServeHTTP(pw2, req)
	assert.Equal(t, http.StatusNotFound, pw2.Code)
}
