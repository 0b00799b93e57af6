package imageassets

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Format is a decoded image encoding name as reported by the image decoder.
type Format string

// Image format constants (typed).
const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
)

// HostKind identifies a class of host entities that assets attach to (e.g.,
// "video", "article"). Deployments register their kinds with the service.
type HostKind string

// HostRef is a polymorphic reference to a host entity. A zero ID refers to
// the host kind itself rather than a specific instance.
type HostRef struct {
	Kind HostKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// IsInstance reports whether the reference points at a specific host entity.
func (h HostRef) IsInstance() bool {
	return h.ID != uuid.Nil
}

func (h HostRef) String() string {
	if !h.IsInstance() {
		return string(h.Kind)
	}
	return fmt.Sprintf("%s/%s", h.Kind, h.ID)
}

// AssetType is a named validation policy for attached files.
//
// An empty AllowedFormats set accepts any decodable format. Zero values for
// MinWidth, MinHeight, Aspect and MaxSize leave the corresponding constraint
// unenforced. Accuracy is the tolerance band for the aspect check; zero means
// the aspect must match exactly.
type AssetType struct {
	ID             uuid.UUID  `json:"id"`
	Slug           string     `json:"slug"`
	AllowedFormats []Format   `json:"allowed_formats,omitempty"`
	MinWidth       int        `json:"min_width,omitempty"`
	MinHeight      int        `json:"min_height,omitempty"`
	Aspect         float64    `json:"aspect,omitempty"`
	Accuracy       float64    `json:"accuracy,omitempty"`
	MaxSize        int64      `json:"max_size,omitempty"`
	RequiredFor    []HostKind `json:"required_for,omitempty"`
	AllowedFor     []HostKind `json:"allowed_for,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FormatAllowed reports whether the decoded format satisfies the policy.
func (t *AssetType) FormatAllowed(f Format) bool {
	if len(t.AllowedFormats) == 0 {
		return true
	}
	for _, allowed := range t.AllowedFormats {
		if allowed == f {
			return true
		}
	}
	return false
}

// RequiredForKind reports whether the type is mandatory for the host kind.
func (t *AssetType) RequiredForKind(kind HostKind) bool {
	for _, k := range t.RequiredFor {
		if k == kind {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the type may be attached to the host kind,
// either as a required or as an allowed type.
func (t *AssetType) AppliesTo(kind HostKind) bool {
	if t.RequiredForKind(kind) {
		return true
	}
	for _, k := range t.AllowedFor {
		if k == kind {
			return true
		}
	}
	return false
}

// Asset is one attached file instance. At most one active asset may exist
// per (asset type, host) pair; the repository enforces that constraint.
type Asset struct {
	ID                 uuid.UUID `json:"id"`
	AssetTypeID        uuid.UUID `json:"asset_type_id"`
	Host               HostRef   `json:"host"`
	StorageBackendName string    `json:"storage_backend_name"`
	BlobKey            string    `json:"blob_key"`
	FileName           string    `json:"file_name,omitempty"`
	Size               int64     `json:"size"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DeletedAsset is a retained copy of a removed asset's file reference,
// pending either purge or recovery. It carries the same blob key as the
// originating asset; the blob itself is not touched by deletion.
type DeletedAsset struct {
	ID                 uuid.UUID `json:"id"`
	AssetTypeID        uuid.UUID `json:"asset_type_id"`
	Host               HostRef   `json:"host"`
	StorageBackendName string    `json:"storage_backend_name"`
	BlobKey            string    `json:"blob_key"`
	FileName           string    `json:"file_name,omitempty"`
	Size               int64     `json:"size"`
	DeletedAt          time.Time `json:"deleted_at"`
}

// AssetEdit is one row of a candidate attachment set under reconciliation.
// A zero AssetTypeID marks a blank row with no type chosen yet; such rows,
// like inactive ones, are skipped by the reconciler.
type AssetEdit struct {
	AssetTypeID uuid.UUID `json:"asset_type_id"`
	Active      bool      `json:"active"`
}

// ViolationCode is the machine-readable class of a validation violation.
type ViolationCode string

// Violation codes (typed).
const (
	ViolationFileTooLarge   ViolationCode = "file_too_large"
	ViolationUndecodable    ViolationCode = "undecodable"
	ViolationBadFormat      ViolationCode = "bad_format"
	ViolationMinWidth       ViolationCode = "min_width"
	ViolationMinHeight      ViolationCode = "min_height"
	ViolationBadAspect      ViolationCode = "bad_aspect"
	ViolationMissingTypes   ViolationCode = "missing_required_types"
	ViolationDuplicateTypes ViolationCode = "duplicate_active_types"
)

// Violation is one human-readable constraint failure. Validators accumulate
// violations and never stop at the first one.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return v.Message
}
