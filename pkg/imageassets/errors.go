package imageassets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates an asset was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetTypeNotFound indicates an asset type was not found
	ErrAssetTypeNotFound = errors.New("asset type not found")

	// ErrDeletedAssetNotFound indicates a deleted asset was not found
	ErrDeletedAssetNotFound = errors.New("deleted asset not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrDuplicateActiveAsset indicates the at-most-one-active-asset
	// constraint per (asset type, host) was violated. Callers racing past
	// in-process reconciliation see this at commit time and should retry.
	ErrDuplicateActiveAsset = errors.New("duplicate active asset for type and host")

	// ErrDuplicateSlug indicates an asset type with the same slug exists
	ErrDuplicateSlug = errors.New("asset type slug already exists")

	// ErrUnknownHostKind indicates a host kind not registered with the service
	ErrUnknownHostKind = errors.New("unknown host kind")

	// ErrContentRejected indicates a file failed content validation
	ErrContentRejected = errors.New("content rejected by asset type policy")

	// ErrHostInstanceRequired indicates a class-level host reference was
	// passed where a specific host entity is needed
	ErrHostInstanceRequired = errors.New("host instance required")
)

// AssetError represents an error related to asset operations
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError carries the full violation list produced by content
// validation. It wraps ErrContentRejected so callers can branch with
// errors.Is while still reaching every violation for per-field display.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("%v: %s", ErrContentRejected, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrContentRejected
}
