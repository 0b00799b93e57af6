package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/just-work/image-assets/pkg/imageassets"
)

// Repository implements imageassets.Repository using in-memory storage.
// It enforces the same constraints a relational store would: unique asset
// type slugs and at most one active asset per (asset type, host) pair. The
// composite move/recover operations run under one lock, which stands in for
// the single transaction a database repository uses.
type Repository struct {
	mu            sync.RWMutex
	assetTypes    map[uuid.UUID]*imageassets.AssetType
	typesBySlug   map[string]uuid.UUID
	assets        map[uuid.UUID]*imageassets.Asset
	deletedAssets map[uuid.UUID]*imageassets.DeletedAsset
	assetsByHost  map[string][]uuid.UUID // host ref -> []asset_id
}

// New creates a new in-memory repository
func New() imageassets.Repository {
	return &Repository{
		assetTypes:    make(map[uuid.UUID]*imageassets.AssetType),
		typesBySlug:   make(map[string]uuid.UUID),
		assets:        make(map[uuid.UUID]*imageassets.Asset),
		deletedAssets: make(map[uuid.UUID]*imageassets.DeletedAsset),
		assetsByHost:  make(map[string][]uuid.UUID),
	}
}

// Asset type operations

func (r *Repository) CreateAssetType(ctx context.Context, assetType *imageassets.AssetType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.typesBySlug[assetType.Slug]; exists {
		return imageassets.ErrDuplicateSlug
	}

	// Create a copy to avoid external modifications
	typeCopy := *assetType
	r.assetTypes[assetType.ID] = &typeCopy
	r.typesBySlug[assetType.Slug] = assetType.ID

	return nil
}

func (r *Repository) GetAssetType(ctx context.Context, id uuid.UUID) (*imageassets.AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assetType, exists := r.assetTypes[id]
	if !exists {
		return nil, imageassets.ErrAssetTypeNotFound
	}
	typeCopy := *assetType
	return &typeCopy, nil
}

func (r *Repository) GetAssetTypeBySlug(ctx context.Context, slug string) (*imageassets.AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.typesBySlug[slug]
	if !exists {
		return nil, imageassets.ErrAssetTypeNotFound
	}
	typeCopy := *r.assetTypes[id]
	return &typeCopy, nil
}

func (r *Repository) UpdateAssetType(ctx context.Context, assetType *imageassets.AssetType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.assetTypes[assetType.ID]
	if !exists {
		return imageassets.ErrAssetTypeNotFound
	}
	if other, taken := r.typesBySlug[assetType.Slug]; taken && other != assetType.ID {
		return imageassets.ErrDuplicateSlug
	}

	if current.Slug != assetType.Slug {
		delete(r.typesBySlug, current.Slug)
		r.typesBySlug[assetType.Slug] = assetType.ID
	}

	typeCopy := *assetType
	r.assetTypes[assetType.ID] = &typeCopy

	return nil
}

func (r *Repository) ListAssetTypes(ctx context.Context) ([]*imageassets.AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*imageassets.AssetType, 0, len(r.assetTypes))
	for _, assetType := range r.assetTypes {
		typeCopy := *assetType
		result = append(result, &typeCopy)
	}
	sortTypesBySlug(result)
	return result, nil
}

func (r *Repository) ListAssetTypesForKind(ctx context.Context, kind imageassets.HostKind) ([]*imageassets.AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*imageassets.AssetType
	for _, assetType := range r.assetTypes {
		if assetType.AppliesTo(kind) {
			typeCopy := *assetType
			result = append(result, &typeCopy)
		}
	}
	sortTypesBySlug(result)
	return result, nil
}

func (r *Repository) ListRequiredAssetTypes(ctx context.Context, kind imageassets.HostKind) ([]*imageassets.AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*imageassets.AssetType
	for _, assetType := range r.assetTypes {
		if assetType.RequiredForKind(kind) {
			typeCopy := *assetType
			result = append(result, &typeCopy)
		}
	}
	sortTypesBySlug(result)
	return result, nil
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *imageassets.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assetTypes[asset.AssetTypeID]; !exists {
		return imageassets.ErrAssetTypeNotFound
	}
	if asset.Active && r.hasActiveAssetLocked(asset.AssetTypeID, asset.Host, asset.ID) {
		return imageassets.ErrDuplicateActiveAsset
	}

	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy

	hostKey := asset.Host.String()
	r.assetsByHost[hostKey] = append(r.assetsByHost[hostKey], asset.ID)

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*imageassets.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, imageassets.ErrAssetNotFound
	}
	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *imageassets.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[asset.ID]; !exists {
		return imageassets.ErrAssetNotFound
	}
	if asset.Active && r.hasActiveAssetLocked(asset.AssetTypeID, asset.Host, asset.ID) {
		return imageassets.ErrDuplicateActiveAsset
	}

	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy

	return nil
}

func (r *Repository) ListAssetsByHost(ctx context.Context, host imageassets.HostRef) ([]*imageassets.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, exists := r.assetsByHost[host.String()]
	if !exists {
		return []*imageassets.Asset{}, nil
	}

	result := make([]*imageassets.Asset, 0, len(ids))
	for _, id := range ids {
		if asset, ok := r.assets[id]; ok {
			assetCopy := *asset
			result = append(result, &assetCopy)
		}
	}

	// Sort by created_at ascending: stable form row order
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) ListActiveAssetTypeIDs(ctx context.Context, host imageassets.HostRef) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []uuid.UUID
	for _, id := range r.assetsByHost[host.String()] {
		if asset, ok := r.assets[id]; ok && asset.Active {
			result = append(result, asset.AssetTypeID)
		}
	}
	return result, nil
}

// Soft-delete lifecycle

func (r *Repository) MoveAssetToDeleted(ctx context.Context, assetID uuid.UUID) (*imageassets.DeletedAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[assetID]
	if !exists {
		return nil, imageassets.ErrAssetNotFound
	}

	deleted := &imageassets.DeletedAsset{
		ID:                 uuid.New(),
		AssetTypeID:        asset.AssetTypeID,
		Host:               asset.Host,
		StorageBackendName: asset.StorageBackendName,
		BlobKey:            asset.BlobKey,
		FileName:           asset.FileName,
		Size:               asset.Size,
		DeletedAt:          time.Now().UTC(),
	}
	r.deletedAssets[deleted.ID] = deleted

	delete(r.assets, assetID)
	r.dropHostIndexLocked(asset.Host, assetID)

	deletedCopy := *deleted
	return &deletedCopy, nil
}

func (r *Repository) GetDeletedAsset(ctx context.Context, id uuid.UUID) (*imageassets.DeletedAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deleted, exists := r.deletedAssets[id]
	if !exists {
		return nil, imageassets.ErrDeletedAssetNotFound
	}
	deletedCopy := *deleted
	return &deletedCopy, nil
}

func (r *Repository) ListDeletedAssetsByHost(ctx context.Context, host imageassets.HostRef) ([]*imageassets.DeletedAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*imageassets.DeletedAsset
	for _, deleted := range r.deletedAssets {
		if deleted.Host == host {
			deletedCopy := *deleted
			result = append(result, &deletedCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DeletedAt.Before(result[j].DeletedAt)
	})
	return result, nil
}

func (r *Repository) RemoveDeletedAsset(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deletedAssets[id]; !exists {
		return imageassets.ErrDeletedAssetNotFound
	}
	delete(r.deletedAssets, id)
	return nil
}

func (r *Repository) RecoverDeletedAsset(ctx context.Context, id uuid.UUID) (*imageassets.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, exists := r.deletedAssets[id]
	if !exists {
		return nil, imageassets.ErrDeletedAssetNotFound
	}

	now := time.Now().UTC()
	asset := &imageassets.Asset{
		ID:                 uuid.New(),
		AssetTypeID:        deleted.AssetTypeID,
		Host:               deleted.Host,
		StorageBackendName: deleted.StorageBackendName,
		BlobKey:            deleted.BlobKey,
		FileName:           deleted.FileName,
		Size:               deleted.Size,
		Active:             false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.assets[asset.ID] = asset

	hostKey := asset.Host.String()
	r.assetsByHost[hostKey] = append(r.assetsByHost[hostKey], asset.ID)

	delete(r.deletedAssets, id)

	assetCopy := *asset
	return &assetCopy, nil
}

// hasActiveAssetLocked reports whether another active asset of the same type
// exists for the host. Caller must hold the lock.
func (r *Repository) hasActiveAssetLocked(assetTypeID uuid.UUID, host imageassets.HostRef, excludeID uuid.UUID) bool {
	for _, id := range r.assetsByHost[host.String()] {
		if id == excludeID {
			continue
		}
		if asset, ok := r.assets[id]; ok && asset.Active && asset.AssetTypeID == assetTypeID {
			return true
		}
	}
	return false
}

func (r *Repository) dropHostIndexLocked(host imageassets.HostRef, assetID uuid.UUID) {
	hostKey := host.String()
	ids := r.assetsByHost[hostKey]
	for i, id := range ids {
		if id == assetID {
			r.assetsByHost[hostKey] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.assetsByHost[hostKey]) == 0 {
		delete(r.assetsByHost, hostKey)
	}
}

func sortTypesBySlug(types []*imageassets.AssetType) {
	sort.Slice(types, func(i, j int) bool {
		return types[i].Slug < types[j].Slug
	})
}
