package imageassets

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the image-assets library
type Service interface {
	// Asset type operations
	CreateAssetType(ctx context.Context, req CreateAssetTypeRequest) (*AssetType, error)
	GetAssetType(ctx context.Context, id uuid.UUID) (*AssetType, error)
	GetAssetTypeBySlug(ctx context.Context, slug string) (*AssetType, error)
	UpdateAssetType(ctx context.Context, req UpdateAssetTypeRequest) error
	ListAssetTypes(ctx context.Context) ([]*AssetType, error)

	// Registry queries. TypesFor returns the types attachable to a host
	// kind; an empty kind returns every type. RequiredFor returns the types
	// a host must carry: for a class-level reference all types required for
	// the kind, for an instance only those not yet satisfied by a stored
	// active asset.
	TypesFor(ctx context.Context, kind HostKind) ([]*AssetType, error)
	RequiredFor(ctx context.Context, host HostRef) ([]*AssetType, error)

	// Validation
	ValidateContent(data []byte, assetType *AssetType) []Violation
	Reconcile(ctx context.Context, host HostRef, edits []AssetEdit) ([]Violation, error)

	// Asset operations
	AttachAsset(ctx context.Context, req AttachAssetRequest) (*Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	ListAssetsByHost(ctx context.Context, host HostRef) ([]*Asset, error)
	SetAssetActive(ctx context.Context, id uuid.UUID, active bool) (*Asset, error)
	DownloadAsset(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	GetAssetURL(ctx context.Context, id uuid.UUID) (string, error)

	// Soft-delete lifecycle
	DeleteAsset(ctx context.Context, id uuid.UUID) (*DeletedAsset, error)
	ListDeletedAssetsByHost(ctx context.Context, host HostRef) ([]*DeletedAsset, error)
	PurgeDeletedAsset(ctx context.Context, id uuid.UUID) error
	RecoverDeletedAsset(ctx context.Context, id uuid.UUID) (*Asset, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)

	// Host kind registry
	RegisterHostKind(kind HostKind)
	HostKinds() []HostKind
}
