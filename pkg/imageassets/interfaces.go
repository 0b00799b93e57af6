package imageassets

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads blob content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download downloads blob content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes blob content
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a URL for downloading blob content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for a stored blob
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for asset persistence.
//
// Each method runs in its own transaction scope. MoveAssetToDeleted and
// RecoverDeletedAsset are composite operations: the row removal and row
// creation they perform must be atomic so that an asset's file reference is
// never orphaned between the Asset and DeletedAsset tables. Neither touches
// blob storage; blob ownership transfer is purely a matter of which row
// currently holds the key.
type Repository interface {
	// Asset type operations
	CreateAssetType(ctx context.Context, assetType *AssetType) error
	GetAssetType(ctx context.Context, id uuid.UUID) (*AssetType, error)
	GetAssetTypeBySlug(ctx context.Context, slug string) (*AssetType, error)
	UpdateAssetType(ctx context.Context, assetType *AssetType) error
	ListAssetTypes(ctx context.Context) ([]*AssetType, error)
	// ListAssetTypesForKind returns types with the kind in their required or
	// allowed set, duplicates removed.
	ListAssetTypesForKind(ctx context.Context, kind HostKind) ([]*AssetType, error)
	// ListRequiredAssetTypes returns types with the kind in their required set.
	ListRequiredAssetTypes(ctx context.Context, kind HostKind) ([]*AssetType, error)

	// Asset operations. CreateAsset and UpdateAsset fail with
	// ErrDuplicateActiveAsset when they would produce a second active asset
	// for the same (asset type, host) pair.
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	UpdateAsset(ctx context.Context, asset *Asset) error
	ListAssetsByHost(ctx context.Context, host HostRef) ([]*Asset, error)
	// ListActiveAssetTypeIDs returns the type IDs for which the host already
	// has an active asset stored.
	ListActiveAssetTypeIDs(ctx context.Context, host HostRef) ([]uuid.UUID, error)

	// Soft-delete lifecycle
	MoveAssetToDeleted(ctx context.Context, assetID uuid.UUID) (*DeletedAsset, error)
	GetDeletedAsset(ctx context.Context, id uuid.UUID) (*DeletedAsset, error)
	ListDeletedAssetsByHost(ctx context.Context, host HostRef) ([]*DeletedAsset, error)
	RemoveDeletedAsset(ctx context.Context, id uuid.UUID) error
	RecoverDeletedAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
}

// EventSink defines the interface for lifecycle event handling
type EventSink interface {
	// AssetTypeCreated is fired when an asset type is created
	AssetTypeCreated(ctx context.Context, assetType *AssetType) error

	// AssetCreated is fired when an asset is attached
	AssetCreated(ctx context.Context, asset *Asset) error

	// AssetUpdated is fired when an asset is updated
	AssetUpdated(ctx context.Context, asset *Asset) error

	// AssetDeleted is fired when an asset is moved to its deleted record
	AssetDeleted(ctx context.Context, deleted *DeletedAsset) error

	// AssetPurged is fired when a deleted asset and its blob are purged
	AssetPurged(ctx context.Context, deletedAssetID uuid.UUID) error

	// AssetRecovered is fired when a deleted asset is recovered
	AssetRecovered(ctx context.Context, asset *Asset) error
}

// ObjectMeta contains metadata about a blob in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}
