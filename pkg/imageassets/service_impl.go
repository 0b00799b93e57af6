package imageassets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/just-work/image-assets/pkg/imageassets/blobkey"
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	eventSink      EventSink
	hostKinds      hostKindSet
	keyGenerator   blobkey.Generator
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first registered backend
// becomes the default unless WithDefaultBackend overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend sets the backend used when a request names none
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithHostKinds registers the host kinds the deployment attaches assets to.
// When at least one kind is registered, operations on unregistered kinds
// fail with ErrUnknownHostKind.
func WithHostKinds(kinds ...HostKind) Option {
	return func(s *service) {
		for _, k := range kinds {
			s.hostKinds.register(k)
		}
	}
}

// WithBlobKeyGenerator overrides the storage key generation strategy
func WithBlobKeyGenerator(gen blobkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = gen
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		hostKinds:  make(hostKindSet),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.keyGenerator == nil {
		s.keyGenerator = blobkey.NewShardedGenerator()
	}

	return s, nil
}

func (s *service) checkHostKind(kind HostKind) error {
	if kind == "" {
		return fmt.Errorf("%w: empty kind", ErrUnknownHostKind)
	}
	if !s.hostKinds.known(kind) {
		return fmt.Errorf("%w: %s", ErrUnknownHostKind, kind)
	}
	return nil
}

// Asset type operations

func (s *service) CreateAssetType(ctx context.Context, req CreateAssetTypeRequest) (*AssetType, error) {
	if req.Slug == "" {
		return nil, fmt.Errorf("asset type slug is required")
	}
	for _, kind := range req.RequiredFor {
		if err := s.checkHostKind(kind); err != nil {
			return nil, err
		}
	}
	for _, kind := range req.AllowedFor {
		if err := s.checkHostKind(kind); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	assetType := &AssetType{
		ID:             uuid.New(),
		Slug:           req.Slug,
		AllowedFormats: req.AllowedFormats,
		MinWidth:       req.MinWidth,
		MinHeight:      req.MinHeight,
		Aspect:         req.Aspect,
		Accuracy:       req.Accuracy,
		MaxSize:        req.MaxSize,
		RequiredFor:    req.RequiredFor,
		AllowedFor:     req.AllowedFor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repository.CreateAssetType(ctx, assetType); err != nil {
		return nil, fmt.Errorf("creating asset type %q: %w", req.Slug, err)
	}

	if s.eventSink != nil {
		_ = s.eventSink.AssetTypeCreated(ctx, assetType)
	}

	return assetType, nil
}

func (s *service) GetAssetType(ctx context.Context, id uuid.UUID) (*AssetType, error) {
	return s.repository.GetAssetType(ctx, id)
}

func (s *service) GetAssetTypeBySlug(ctx context.Context, slug string) (*AssetType, error) {
	return s.repository.GetAssetTypeBySlug(ctx, slug)
}

func (s *service) UpdateAssetType(ctx context.Context, req UpdateAssetTypeRequest) error {
	req.AssetType.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateAssetType(ctx, req.AssetType); err != nil {
		return fmt.Errorf("updating asset type %q: %w", req.AssetType.Slug, err)
	}
	return nil
}

func (s *service) ListAssetTypes(ctx context.Context) ([]*AssetType, error) {
	return s.repository.ListAssetTypes(ctx)
}

// Registry queries

func (s *service) TypesFor(ctx context.Context, kind HostKind) ([]*AssetType, error) {
	if kind == "" {
		return s.repository.ListAssetTypes(ctx)
	}
	if err := s.checkHostKind(kind); err != nil {
		return nil, err
	}
	return s.repository.ListAssetTypesForKind(ctx, kind)
}

func (s *service) RequiredFor(ctx context.Context, host HostRef) ([]*AssetType, error) {
	if host.Kind == "" {
		return s.repository.ListAssetTypes(ctx)
	}
	if err := s.checkHostKind(host.Kind); err != nil {
		return nil, err
	}

	required, err := s.repository.ListRequiredAssetTypes(ctx, host.Kind)
	if err != nil {
		return nil, err
	}
	if !host.IsInstance() {
		return required, nil
	}

	// Instance-aware mode: drop types already satisfied by a stored active
	// asset, so callers can present "still missing" rather than "always
	// required".
	satisfied, err := s.repository.ListActiveAssetTypeIDs(ctx, host)
	if err != nil {
		return nil, err
	}
	satisfiedSet := make(map[uuid.UUID]struct{}, len(satisfied))
	for _, id := range satisfied {
		satisfiedSet[id] = struct{}{}
	}

	remaining := required[:0]
	for _, t := range required {
		if _, ok := satisfiedSet[t.ID]; !ok {
			remaining = append(remaining, t)
		}
	}
	return remaining, nil
}

// Validation

func (s *service) ValidateContent(data []byte, assetType *AssetType) []Violation {
	return ValidateContent(data, assetType)
}

// Asset operations

func (s *service) AttachAsset(ctx context.Context, req AttachAssetRequest) (*Asset, error) {
	if !req.Host.IsInstance() {
		return nil, ErrHostInstanceRequired
	}
	if err := s.checkHostKind(req.Host.Kind); err != nil {
		return nil, err
	}

	assetType, err := s.repository.GetAssetType(ctx, req.AssetTypeID)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	if violations := ValidateContent(req.Data, assetType); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	backendName := req.StorageBackendName
	if backendName == "" {
		backendName = s.defaultBackend
	}
	store, err := s.GetBackend(backendName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	asset := &Asset{
		ID:                 uuid.New(),
		AssetTypeID:        assetType.ID,
		Host:               req.Host,
		StorageBackendName: backendName,
		FileName:           req.FileName,
		Size:               int64(len(req.Data)),
		Active:             req.Active,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	asset.BlobKey = s.keyGenerator.GenerateKey(asset.ID, req.FileName)

	if err := store.Upload(ctx, asset.BlobKey, bytes.NewReader(req.Data)); err != nil {
		return nil, &StorageError{Backend: backendName, Key: asset.BlobKey, Op: "upload", Err: err}
	}

	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		// The row never existed, so the fresh blob has no owner; remove it.
		_ = store.Delete(ctx, asset.BlobKey)
		return nil, &AssetError{AssetID: asset.ID, Op: "attach", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.AssetCreated(ctx, asset)
	}

	return asset, nil
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.repository.GetAsset(ctx, id)
}

func (s *service) ListAssetsByHost(ctx context.Context, host HostRef) ([]*Asset, error) {
	if !host.IsInstance() {
		return nil, ErrHostInstanceRequired
	}
	return s.repository.ListAssetsByHost(ctx, host)
}

func (s *service) SetAssetActive(ctx context.Context, id uuid.UUID, active bool) (*Asset, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Active == active {
		return asset, nil
	}

	asset.Active = active
	asset.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: id, Op: "set_active", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.AssetUpdated(ctx, asset)
	}

	return asset, nil
}

func (s *service) DownloadAsset(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	store, err := s.GetBackend(asset.StorageBackendName)
	if err != nil {
		return nil, err
	}
	rc, err := store.Download(ctx, asset.BlobKey)
	if err != nil {
		return nil, &StorageError{Backend: asset.StorageBackendName, Key: asset.BlobKey, Op: "download", Err: err}
	}
	return rc, nil
}

func (s *service) GetAssetURL(ctx context.Context, id uuid.UUID) (string, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return "", err
	}
	store, err := s.GetBackend(asset.StorageBackendName)
	if err != nil {
		return "", err
	}
	return store.GetDownloadURL(ctx, asset.BlobKey, asset.FileName)
}

// Soft-delete lifecycle

// DeleteAsset removes the asset row and materializes a DeletedAsset carrying
// the same blob key in one repository transaction. The blob is not touched;
// its ownership transfers to the deleted record.
func (s *service) DeleteAsset(ctx context.Context, id uuid.UUID) (*DeletedAsset, error) {
	deleted, err := s.repository.MoveAssetToDeleted(ctx, id)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "delete", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.AssetDeleted(ctx, deleted)
	}

	return deleted, nil
}

func (s *service) ListDeletedAssetsByHost(ctx context.Context, host HostRef) ([]*DeletedAsset, error) {
	if !host.IsInstance() {
		return nil, ErrHostInstanceRequired
	}
	return s.repository.ListDeletedAssetsByHost(ctx, host)
}

// PurgeDeletedAsset frees the underlying blob and removes the deleted-asset
// record. This is the only path that deletes blob storage. The blob is
// removed first: a failed blob delete aborts the purge so the record keeps
// pointing at the still-existing file.
func (s *service) PurgeDeletedAsset(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repository.GetDeletedAsset(ctx, id)
	if err != nil {
		return err
	}

	store, err := s.GetBackend(deleted.StorageBackendName)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, deleted.BlobKey); err != nil {
		return &StorageError{Backend: deleted.StorageBackendName, Key: deleted.BlobKey, Op: "purge", Err: err}
	}

	if err := s.repository.RemoveDeletedAsset(ctx, id); err != nil {
		return &AssetError{AssetID: id, Op: "purge", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.AssetPurged(ctx, id)
	}

	return nil
}

// RecoverDeletedAsset turns a deleted-asset record back into an inactive
// asset with the same blob key and removes the record, all in one repository
// transaction. Blob storage is never invoked: the file simply changes owner.
func (s *service) RecoverDeletedAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	asset, err := s.repository.RecoverDeletedAsset(ctx, id)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "recover", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.AssetRecovered(ctx, asset)
	}

	return asset, nil
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
	if s.defaultBackend == "" {
		s.defaultBackend = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	if name == "" {
		name = s.defaultBackend
	}
	backend, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}

// Host kind registry

func (s *service) RegisterHostKind(kind HostKind) {
	s.hostKinds.register(kind)
}

func (s *service) HostKinds() []HostKind {
	return s.hostKinds.all()
}
