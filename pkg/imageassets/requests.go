package imageassets

import "github.com/google/uuid"

// Request/Response DTOs

// CreateAssetTypeRequest contains parameters for creating an asset type
type CreateAssetTypeRequest struct {
	Slug           string
	AllowedFormats []Format
	MinWidth       int
	MinHeight      int
	Aspect         float64
	Accuracy       float64
	MaxSize        int64
	RequiredFor    []HostKind
	AllowedFor     []HostKind
}

// UpdateAssetTypeRequest contains parameters for updating an asset type
type UpdateAssetTypeRequest struct {
	AssetType *AssetType
}

// AttachAssetRequest contains parameters for attaching a validated file to a
// host entity. StorageBackendName selects the blob store; when empty the
// service default is used.
type AttachAssetRequest struct {
	Host               HostRef
	AssetTypeID        uuid.UUID
	FileName           string
	Data               []byte
	Active             bool
	StorageBackendName string
}
