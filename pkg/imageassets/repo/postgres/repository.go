package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/just-work/image-assets/pkg/imageassets"
)

// Repository implements imageassets.Repository using PostgreSQL.
//
// The at-most-one-active-asset constraint is backed by a partial unique
// index on (asset_type_id, host_kind, host_id) WHERE active, so concurrent
// writers racing past in-process reconciliation fail at commit time with
// ErrDuplicateActiveAsset instead of silently merging. See migrations/ for
// the schema.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository from a connection pool
func New(pool *pgxpool.Pool) imageassets.Repository {
	return &Repository{pool: pool}
}

// handlePostgresError maps low-level pg errors onto the domain error set
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "active") {
				return imageassets.ErrDuplicateActiveAsset
			}
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return imageassets.ErrDuplicateSlug
			}
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Asset type operations

func (r *Repository) CreateAssetType(ctx context.Context, assetType *imageassets.AssetType) error {
	query := `
		INSERT INTO asset_type (
			id, slug, allowed_formats, min_width, min_height, aspect,
			accuracy, max_size, required_for, allowed_for, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		assetType.ID, assetType.Slug, formatsToStrings(assetType.AllowedFormats),
		assetType.MinWidth, assetType.MinHeight, assetType.Aspect,
		assetType.Accuracy, assetType.MaxSize,
		kindsToStrings(assetType.RequiredFor), kindsToStrings(assetType.AllowedFor),
		assetType.CreatedAt, assetType.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create asset type", err)
	}
	return nil
}

const assetTypeColumns = `
	id, slug, allowed_formats, min_width, min_height, aspect,
	accuracy, max_size, required_for, allowed_for, created_at, updated_at`

func (r *Repository) GetAssetType(ctx context.Context, id uuid.UUID) (*imageassets.AssetType, error) {
	query := `SELECT` + assetTypeColumns + ` FROM asset_type WHERE id = $1`
	return r.scanAssetType(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) GetAssetTypeBySlug(ctx context.Context, slug string) (*imageassets.AssetType, error) {
	query := `SELECT` + assetTypeColumns + ` FROM asset_type WHERE slug = $1`
	return r.scanAssetType(r.pool.QueryRow(ctx, query, slug))
}

func (r *Repository) UpdateAssetType(ctx context.Context, assetType *imageassets.AssetType) error {
	query := `
		UPDATE asset_type SET
			slug = $2, allowed_formats = $3, min_width = $4, min_height = $5,
			aspect = $6, accuracy = $7, max_size = $8, required_for = $9,
			allowed_for = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		assetType.ID, assetType.Slug, formatsToStrings(assetType.AllowedFormats),
		assetType.MinWidth, assetType.MinHeight, assetType.Aspect,
		assetType.Accuracy, assetType.MaxSize,
		kindsToStrings(assetType.RequiredFor), kindsToStrings(assetType.AllowedFor),
		assetType.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update asset type", err)
	}
	if tag.RowsAffected() == 0 {
		return imageassets.ErrAssetTypeNotFound
	}
	return nil
}

func (r *Repository) ListAssetTypes(ctx context.Context) ([]*imageassets.AssetType, error) {
	query := `SELECT` + assetTypeColumns + ` FROM asset_type ORDER BY slug`
	return r.queryAssetTypes(ctx, query)
}

func (r *Repository) ListAssetTypesForKind(ctx context.Context, kind imageassets.HostKind) ([]*imageassets.AssetType, error) {
	query := `SELECT` + assetTypeColumns + `
		FROM asset_type
		WHERE $1 = ANY(required_for) OR $1 = ANY(allowed_for)
		ORDER BY slug`
	return r.queryAssetTypes(ctx, query, string(kind))
}

func (r *Repository) ListRequiredAssetTypes(ctx context.Context, kind imageassets.HostKind) ([]*imageassets.AssetType, error) {
	query := `SELECT` + assetTypeColumns + `
		FROM asset_type
		WHERE $1 = ANY(required_for)
		ORDER BY slug`
	return r.queryAssetTypes(ctx, query, string(kind))
}

func (r *Repository) queryAssetTypes(ctx context.Context, query string, args ...interface{}) ([]*imageassets.AssetType, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list asset types", err)
	}
	defer rows.Close()

	var result []*imageassets.AssetType
	for rows.Next() {
		assetType, err := r.scanAssetType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, assetType)
	}
	return result, rows.Err()
}

func (r *Repository) scanAssetType(row pgx.Row) (*imageassets.AssetType, error) {
	var assetType imageassets.AssetType
	var formats, requiredFor, allowedFor []string

	err := row.Scan(
		&assetType.ID, &assetType.Slug, &formats,
		&assetType.MinWidth, &assetType.MinHeight, &assetType.Aspect,
		&assetType.Accuracy, &assetType.MaxSize, &requiredFor, &allowedFor,
		&assetType.CreatedAt, &assetType.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imageassets.ErrAssetTypeNotFound
		}
		return nil, r.handlePostgresError("scan asset type", err)
	}

	assetType.AllowedFormats = stringsToFormats(formats)
	assetType.RequiredFor = stringsToKinds(requiredFor)
	assetType.AllowedFor = stringsToKinds(allowedFor)
	return &assetType, nil
}

// Asset operations

const assetColumns = `
	id, asset_type_id, host_kind, host_id, storage_backend,
	blob_key, file_name, size, active, created_at, updated_at`

func (r *Repository) CreateAsset(ctx context.Context, asset *imageassets.Asset) error {
	query := `
		INSERT INTO asset (
			id, asset_type_id, host_kind, host_id, storage_backend,
			blob_key, file_name, size, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		asset.ID, asset.AssetTypeID, string(asset.Host.Kind), asset.Host.ID,
		asset.StorageBackendName, asset.BlobKey, asset.FileName, asset.Size,
		asset.Active, asset.CreatedAt, asset.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*imageassets.Asset, error) {
	query := `SELECT` + assetColumns + ` FROM asset WHERE id = $1`
	return scanAsset(r.pool.QueryRow(ctx, query, id), r)
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *imageassets.Asset) error {
	query := `
		UPDATE asset SET
			asset_type_id = $2, active = $3, file_name = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		asset.ID, asset.AssetTypeID, asset.Active, asset.FileName, asset.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return imageassets.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ListAssetsByHost(ctx context.Context, host imageassets.HostRef) ([]*imageassets.Asset, error) {
	query := `SELECT` + assetColumns + `
		FROM asset WHERE host_kind = $1 AND host_id = $2
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, string(host.Kind), host.ID)
	if err != nil {
		return nil, r.handlePostgresError("list assets by host", err)
	}
	defer rows.Close()

	var result []*imageassets.Asset
	for rows.Next() {
		asset, err := scanAsset(rows, r)
		if err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}

func (r *Repository) ListActiveAssetTypeIDs(ctx context.Context, host imageassets.HostRef) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT asset_type_id FROM asset
		WHERE host_kind = $1 AND host_id = $2 AND active`

	rows, err := r.pool.Query(ctx, query, string(host.Kind), host.ID)
	if err != nil {
		return nil, r.handlePostgresError("list active asset type ids", err)
	}
	defer rows.Close()

	var result []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

func scanAsset(row pgx.Row, r *Repository) (*imageassets.Asset, error) {
	var asset imageassets.Asset
	var hostKind string

	err := row.Scan(
		&asset.ID, &asset.AssetTypeID, &hostKind, &asset.Host.ID,
		&asset.StorageBackendName, &asset.BlobKey, &asset.FileName,
		&asset.Size, &asset.Active, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imageassets.ErrAssetNotFound
		}
		return nil, r.handlePostgresError("scan asset", err)
	}

	asset.Host.Kind = imageassets.HostKind(hostKind)
	return &asset, nil
}

// Soft-delete lifecycle

// MoveAssetToDeleted relocates an asset row into deleted_asset within one
// transaction so the blob key is never orphaned between the two tables.
func (r *Repository) MoveAssetToDeleted(ctx context.Context, assetID uuid.UUID) (*imageassets.DeletedAsset, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, r.handlePostgresError("move asset to deleted", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT` + assetColumns + ` FROM asset WHERE id = $1 FOR UPDATE`
	var asset imageassets.Asset
	var hostKind string
	err = tx.QueryRow(ctx, query, assetID).Scan(
		&asset.ID, &asset.AssetTypeID, &hostKind, &asset.Host.ID,
		&asset.StorageBackendName, &asset.BlobKey, &asset.FileName,
		&asset.Size, &asset.Active, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imageassets.ErrAssetNotFound
		}
		return nil, r.handlePostgresError("move asset to deleted", err)
	}
	asset.Host.Kind = imageassets.HostKind(hostKind)

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

	_, err = tx.Exec(ctx, `
		INSERT INTO deleted_asset (
			id, asset_type_id, host_kind, host_id, storage_backend,
			blob_key, file_name, size, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		deleted.ID, deleted.AssetTypeID, string(deleted.Host.Kind), deleted.Host.ID,
		deleted.StorageBackendName, deleted.BlobKey, deleted.FileName,
		deleted.Size, deleted.DeletedAt)
	if err != nil {
		return nil, r.handlePostgresError("move asset to deleted", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM asset WHERE id = $1`, assetID); err != nil {
		return nil, r.handlePostgresError("move asset to deleted", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, r.handlePostgresError("move asset to deleted", err)
	}
	return deleted, nil
}

const deletedAssetColumns = `
	id, asset_type_id, host_kind, host_id, storage_backend,
	blob_key, file_name, size, deleted_at`

func (r *Repository) GetDeletedAsset(ctx context.Context, id uuid.UUID) (*imageassets.DeletedAsset, error) {
	query := `SELECT` + deletedAssetColumns + ` FROM deleted_asset WHERE id = $1`
	return scanDeletedAsset(r.pool.QueryRow(ctx, query, id), r)
}

func (r *Repository) ListDeletedAssetsByHost(ctx context.Context, host imageassets.HostRef) ([]*imageassets.DeletedAsset, error) {
	query := `SELECT` + deletedAssetColumns + `
		FROM deleted_asset WHERE host_kind = $1 AND host_id = $2
		ORDER BY deleted_at`

	rows, err := r.pool.Query(ctx, query, string(host.Kind), host.ID)
	if err != nil {
		return nil, r.handlePostgresError("list deleted assets by host", err)
	}
	defer rows.Close()

	var result []*imageassets.DeletedAsset
	for rows.Next() {
		deleted, err := scanDeletedAsset(rows, r)
		if err != nil {
			return nil, err
		}
		result = append(result, deleted)
	}
	return result, rows.Err()
}

func (r *Repository) RemoveDeletedAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deleted_asset WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("remove deleted asset", err)
	}
	if tag.RowsAffected() == 0 {
		return imageassets.ErrDeletedAssetNotFound
	}
	return nil
}

// RecoverDeletedAsset materializes a new inactive asset from a deleted-asset
// row and removes that row, in one transaction. Blob storage is not touched.
func (r *Repository) RecoverDeletedAsset(ctx context.Context, id uuid.UUID) (*imageassets.Asset, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, r.handlePostgresError("recover deleted asset", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT` + deletedAssetColumns + ` FROM deleted_asset WHERE id = $1 FOR UPDATE`
	var deleted imageassets.DeletedAsset
	var hostKind string
	err = tx.QueryRow(ctx, query, id).Scan(
		&deleted.ID, &deleted.AssetTypeID, &hostKind, &deleted.Host.ID,
		&deleted.StorageBackendName, &deleted.BlobKey, &deleted.FileName,
		&deleted.Size, &deleted.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imageassets.ErrDeletedAssetNotFound
		}
		return nil, r.handlePostgresError("recover deleted asset", err)
	}
	deleted.Host.Kind = imageassets.HostKind(hostKind)

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

	_, err = tx.Exec(ctx, `
		INSERT INTO asset (
			id, asset_type_id, host_kind, host_id, storage_backend,
			blob_key, file_name, size, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		asset.ID, asset.AssetTypeID, string(asset.Host.Kind), asset.Host.ID,
		asset.StorageBackendName, asset.BlobKey, asset.FileName, asset.Size,
		asset.Active, asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("recover deleted asset", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM deleted_asset WHERE id = $1`, id); err != nil {
		return nil, r.handlePostgresError("recover deleted asset", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, r.handlePostgresError("recover deleted asset", err)
	}
	return asset, nil
}

func scanDeletedAsset(row pgx.Row, r *Repository) (*imageassets.DeletedAsset, error) {
	var deleted imageassets.DeletedAsset
	var hostKind string

	err := row.Scan(
		&deleted.ID, &deleted.AssetTypeID, &hostKind, &deleted.Host.ID,
		&deleted.StorageBackendName, &deleted.BlobKey, &deleted.FileName,
		&deleted.Size, &deleted.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imageassets.ErrDeletedAssetNotFound
		}
		return nil, r.handlePostgresError("scan deleted asset", err)
	}

	deleted.Host.Kind = imageassets.HostKind(hostKind)
	return &deleted, nil
}

// Array column helpers

func formatsToStrings(formats []imageassets.Format) []string {
	result := make([]string, len(formats))
	for i, f := range formats {
		result[i] = string(f)
	}
	return result
}

func stringsToFormats(values []string) []imageassets.Format {
	if len(values) == 0 {
		return nil
	}
	result := make([]imageassets.Format, len(values))
	for i, v := range values {
		result[i] = imageassets.Format(v)
	}
	return result
}

func kindsToStrings(kinds []imageassets.HostKind) []string {
	result := make([]string, len(kinds))
	for i, k := range kinds {
		result[i] = string(k)
	}
	return result
}

func stringsToKinds(values []string) []imageassets.HostKind {
	if len(values) == 0 {
		return nil
	}
	result := make([]imageassets.HostKind, len(values))
	for i, v := range values {
		result[i] = imageassets.HostKind(v)
	}
	return result
}
