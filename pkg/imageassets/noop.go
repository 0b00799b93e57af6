package imageassets

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) AssetTypeCreated(ctx context.Context, assetType *AssetType) error {
	return nil
}

func (n *NoopEventSink) AssetCreated(ctx context.Context, asset *Asset) error {
	return nil
}

func (n *NoopEventSink) AssetUpdated(ctx context.Context, asset *Asset) error {
	return nil
}

func (n *NoopEventSink) AssetDeleted(ctx context.Context, deleted *DeletedAsset) error {
	return nil
}

func (n *NoopEventSink) AssetPurged(ctx context.Context, deletedAssetID uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) AssetRecovered(ctx context.Context, asset *Asset) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) AssetTypeCreated(ctx context.Context, assetType *AssetType) error {
	l.logger.Info("asset type created", "id", assetType.ID, "slug", assetType.Slug)
	return nil
}

func (l *LoggingEventSink) AssetCreated(ctx context.Context, asset *Asset) error {
	l.logger.Info("asset created", "id", asset.ID, "host", asset.Host.String(), "active", asset.Active)
	return nil
}

func (l *LoggingEventSink) AssetUpdated(ctx context.Context, asset *Asset) error {
	l.logger.Info("asset updated", "id", asset.ID, "active", asset.Active)
	return nil
}

func (l *LoggingEventSink) AssetDeleted(ctx context.Context, deleted *DeletedAsset) error {
	l.logger.Info("asset deleted", "deleted_asset_id", deleted.ID, "blob_key", deleted.BlobKey)
	return nil
}

func (l *LoggingEventSink) AssetPurged(ctx context.Context, deletedAssetID uuid.UUID) error {
	l.logger.Info("deleted asset purged", "deleted_asset_id", deletedAssetID)
	return nil
}

func (l *LoggingEventSink) AssetRecovered(ctx context.Context, asset *Asset) error {
	l.logger.Info("asset recovered", "id", asset.ID, "blob_key", asset.BlobKey)
	return nil
}
