package imageassets_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-work/image-assets/pkg/imageassets"
	"github.com/just-work/image-assets/pkg/imageassets/repo/memory"
	memorystorage "github.com/just-work/image-assets/pkg/imageassets/storage/memory"
)

const (
	kindVideo   = imageassets.HostKind("video")
	kindArticle = imageassets.HostKind("article")
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []imageassets.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []imageassets.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []imageassets.Option{
				imageassets.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and blob store should succeed",
			options: []imageassets.Option{
				imageassets.WithRepository(memory.New()),
				imageassets.WithBlobStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := imageassets.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

// setupServiceWithStore returns a service together with its blob store so
// tests can observe blob lifecycles from the outside.
func setupServiceWithStore(t *testing.T) (imageassets.Service, imageassets.BlobStore) {
	t.Helper()

	store := memorystorage.New()
	svc, err := imageassets.New(
		imageassets.WithRepository(memory.New()),
		imageassets.WithBlobStore("memory", store),
		imageassets.WithHostKinds(kindVideo, kindArticle),
	)
	require.NoError(t, err)
	return svc, store
}

func blobExists(t *testing.T, store imageassets.BlobStore, key string) bool {
	t.Helper()

	rc, err := store.Download(context.Background(), key)
	if err != nil {
		return false
	}
	defer rc.Close()
	return true
}

func TestAttachAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("valid content is stored and downloadable", func(t *testing.T) {
		svc, store := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		data := pngImage(t, 200, 100)
		asset, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: assetType.ID,
			FileName:    "poster.png",
			Data:        data,
			Active:      true,
		})
		require.NoError(t, err)
		assert.Equal(t, assetType.ID, asset.AssetTypeID)
		assert.Equal(t, host, asset.Host)
		assert.Equal(t, int64(len(data)), asset.Size)
		assert.True(t, asset.Active)
		assert.NotEmpty(t, asset.BlobKey)
		assert.True(t, blobExists(t, store, asset.BlobKey))

		rc, err := svc.DownloadAsset(ctx, asset.ID)
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("rejected content leaves no blob behind", func(t *testing.T) {
		svc, _ := setupServiceWithStore(t)
		assetType, err := svc.CreateAssetType(ctx, imageassets.CreateAssetTypeRequest{
			Slug:     "poster",
			MinWidth: 100,
		})
		require.NoError(t, err)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		_, err = svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: assetType.ID,
			FileName:    "small.png",
			Data:        pngImage(t, 10, 10),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, imageassets.ErrContentRejected)

		var verr *imageassets.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, imageassets.ViolationMinWidth, verr.Violations[0].Code)

		assets, err := svc.ListAssetsByHost(ctx, host)
		require.NoError(t, err)
		assert.Empty(t, assets)
	})

	t.Run("second active asset for same type and host conflicts", func(t *testing.T) {
		svc, _ := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		attach := func() (*imageassets.Asset, error) {
			return svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
				Host:        host,
				AssetTypeID: assetType.ID,
				FileName:    "poster.png",
				Data:        pngImage(t, 10, 10),
				Active:      true,
			})
		}

		_, err := attach()
		require.NoError(t, err)

		_, err = attach()
		assert.ErrorIs(t, err, imageassets.ErrDuplicateActiveAsset)
	})

	t.Run("inactive duplicates are allowed", func(t *testing.T) {
		svc, _ := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		for i := 0; i < 3; i++ {
			_, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
				Host:        host,
				AssetTypeID: assetType.ID,
				FileName:    "poster.png",
				Data:        pngImage(t, 10, 10),
			})
			require.NoError(t, err)
		}

		assets, err := svc.ListAssetsByHost(ctx, host)
		require.NoError(t, err)
		assert.Len(t, assets, 3)
	})

	t.Run("class-level host is rejected", func(t *testing.T) {
		svc, _ := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)

		_, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        imageassets.HostRef{Kind: kindVideo},
			AssetTypeID: assetType.ID,
			Data:        pngImage(t, 10, 10),
		})
		assert.ErrorIs(t, err, imageassets.ErrHostInstanceRequired)
	})

	t.Run("unknown asset type", func(t *testing.T) {
		svc, _ := setupServiceWithStore(t)

		_, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        imageassets.HostRef{Kind: kindVideo, ID: uuid.New()},
			AssetTypeID: uuid.New(),
			Data:        pngImage(t, 10, 10),
		})
		assert.ErrorIs(t, err, imageassets.ErrAssetTypeNotFound)
	})
}

func TestSetAssetActive(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupServiceWithStore(t)
	assetType := createTestType(t, svc, "poster", kindVideo)
	host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

	first, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
		Host:        host,
		AssetTypeID: assetType.ID,
		Data:        pngImage(t, 10, 10),
		Active:      true,
	})
	require.NoError(t, err)

	second, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
		Host:        host,
		AssetTypeID: assetType.ID,
		Data:        pngImage(t, 10, 10),
	})
	require.NoError(t, err)

	// Activating the second asset while the first is active violates the
	// one-active-per-type constraint.
	_, err = svc.SetAssetActive(ctx, second.ID, true)
	assert.ErrorIs(t, err, imageassets.ErrDuplicateActiveAsset)

	// Deactivate the first, then the second can take over.
	deactivated, err := svc.SetAssetActive(ctx, first.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	activated, err := svc.SetAssetActive(ctx, second.ID, true)
	require.NoError(t, err)
	assert.True(t, activated.Active)
}

func TestDeleteRecoverPurge(t *testing.T) {
	ctx := context.Background()

	t.Run("delete retains the blob", func(t *testing.T) {
		svc, store := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		asset, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: assetType.ID,
			FileName:    "poster.png",
			Data:        pngImage(t, 10, 10),
			Active:      true,
		})
		require.NoError(t, err)

		deleted, err := svc.DeleteAsset(ctx, asset.ID)
		require.NoError(t, err)
		assert.Equal(t, asset.BlobKey, deleted.BlobKey)
		assert.False(t, deleted.DeletedAt.IsZero())

		// The asset row is gone but the blob survives.
		_, err = svc.GetAsset(ctx, asset.ID)
		assert.ErrorIs(t, err, imageassets.ErrAssetNotFound)
		assert.True(t, blobExists(t, store, asset.BlobKey))

		listed, err := svc.ListDeletedAssetsByHost(ctx, host)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, deleted.ID, listed[0].ID)
	})

	t.Run("recover reattaches as inactive without touching the blob", func(t *testing.T) {
		svc, store := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		asset, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: assetType.ID,
			FileName:    "poster.png",
			Data:        pngImage(t, 10, 10),
			Active:      true,
		})
		require.NoError(t, err)

		deleted, err := svc.DeleteAsset(ctx, asset.ID)
		require.NoError(t, err)

		recovered, err := svc.RecoverDeletedAsset(ctx, deleted.ID)
		require.NoError(t, err)
		assert.False(t, recovered.Active)
		assert.Equal(t, asset.BlobKey, recovered.BlobKey)
		assert.True(t, blobExists(t, store, recovered.BlobKey))

		// The deleted record is consumed by the recovery.
		_, err = svc.RecoverDeletedAsset(ctx, deleted.ID)
		assert.ErrorIs(t, err, imageassets.ErrDeletedAssetNotFound)

		listed, err := svc.ListDeletedAssetsByHost(ctx, host)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("purge removes record and blob", func(t *testing.T) {
		svc, store := setupServiceWithStore(t)
		assetType := createTestType(t, svc, "poster", kindVideo)
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		asset, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: assetType.ID,
			FileName:    "poster.png",
			Data:        pngImage(t, 10, 10),
		})
		require.NoError(t, err)

		deleted, err := svc.DeleteAsset(ctx, asset.ID)
		require.NoError(t, err)

		require.NoError(t, svc.PurgeDeletedAsset(ctx, deleted.ID))
		assert.False(t, blobExists(t, store, asset.BlobKey))

		err = svc.PurgeDeletedAsset(ctx, deleted.ID)
		assert.ErrorIs(t, err, imageassets.ErrDeletedAssetNotFound)
	})

	t.Run("delete unknown asset", func(t *testing.T) {
		svc, _ := setupServiceWithStore(t)

		_, err := svc.DeleteAsset(ctx, uuid.New())
		assert.ErrorIs(t, err, imageassets.ErrAssetNotFound)
	})
}

func TestRegistryQueries(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupServiceWithStore(t)

	poster := createTestType(t, svc, "poster", kindVideo)
	_ = createTestType(t, svc, "cover", kindArticle)
	_, err := svc.CreateAssetType(ctx, imageassets.CreateAssetTypeRequest{
		Slug:       "icon",
		AllowedFor: []imageassets.HostKind{kindVideo},
	})
	require.NoError(t, err)

	t.Run("types for a kind include required and allowed", func(t *testing.T) {
		types, err := svc.TypesFor(ctx, kindVideo)
		require.NoError(t, err)

		slugs := make([]string, len(types))
		for i, tp := range types {
			slugs[i] = tp.Slug
		}
		assert.ElementsMatch(t, []string{"poster", "icon"}, slugs)
	})

	t.Run("empty kind lists everything", func(t *testing.T) {
		types, err := svc.TypesFor(ctx, "")
		require.NoError(t, err)
		assert.Len(t, types, 3)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := svc.TypesFor(ctx, "podcast")
		assert.ErrorIs(t, err, imageassets.ErrUnknownHostKind)
	})

	t.Run("required for class-level reference", func(t *testing.T) {
		types, err := svc.RequiredFor(ctx, imageassets.HostRef{Kind: kindVideo})
		require.NoError(t, err)
		require.Len(t, types, 1)
		assert.Equal(t, "poster", types[0].Slug)
	})

	t.Run("required for instance excludes satisfied types", func(t *testing.T) {
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		types, err := svc.RequiredFor(ctx, host)
		require.NoError(t, err)
		require.Len(t, types, 1)

		_, err = svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: poster.ID,
			Data:        pngImage(t, 10, 10),
			Active:      true,
		})
		require.NoError(t, err)

		types, err = svc.RequiredFor(ctx, host)
		require.NoError(t, err)
		assert.Empty(t, types)
	})

	t.Run("inactive assets do not satisfy requirements", func(t *testing.T) {
		host := imageassets.HostRef{Kind: kindVideo, ID: uuid.New()}

		_, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: poster.ID,
			Data:        pngImage(t, 10, 10),
		})
		require.NoError(t, err)

		types, err := svc.RequiredFor(ctx, host)
		require.NoError(t, err)
		require.Len(t, types, 1)
		assert.Equal(t, "poster", types[0].Slug)
	})
}

func TestAssetTypeCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupServiceWithStore(t)

	created, err := svc.CreateAssetType(ctx, imageassets.CreateAssetTypeRequest{
		Slug:           "poster",
		AllowedFormats: []imageassets.Format{imageassets.FormatPNG, imageassets.FormatJPEG},
		MinWidth:       100,
		Aspect:         2.0,
		Accuracy:       0.1,
		RequiredFor:    []imageassets.HostKind{kindVideo},
	})
	require.NoError(t, err)

	t.Run("lookup by id and slug", func(t *testing.T) {
		byID, err := svc.GetAssetType(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "poster", byID.Slug)

		bySlug, err := svc.GetAssetTypeBySlug(ctx, "poster")
		require.NoError(t, err)
		assert.Equal(t, created.ID, bySlug.ID)
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		_, err := svc.CreateAssetType(ctx, imageassets.CreateAssetTypeRequest{Slug: "poster"})
		assert.ErrorIs(t, err, imageassets.ErrDuplicateSlug)
	})

	t.Run("unknown kind in policy is rejected", func(t *testing.T) {
		_, err := svc.CreateAssetType(ctx, imageassets.CreateAssetTypeRequest{
			Slug:        "splash",
			RequiredFor: []imageassets.HostKind{"podcast"},
		})
		assert.ErrorIs(t, err, imageassets.ErrUnknownHostKind)
	})

	t.Run("update tightens the policy", func(t *testing.T) {
		updated := *created
		updated.MinWidth = 200
		require.NoError(t, svc.UpdateAssetType(ctx, imageassets.UpdateAssetTypeRequest{AssetType: &updated}))

		got, err := svc.GetAssetType(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 200, got.MinWidth)
	})
}

func TestBackendRegistry(t *testing.T) {
	svc, store := setupServiceWithStore(t)

	t.Run("registered backend resolves", func(t *testing.T) {
		got, err := svc.GetBackend("memory")
		require.NoError(t, err)
		assert.Equal(t, store, got)
	})

	t.Run("empty name resolves the default", func(t *testing.T) {
		got, err := svc.GetBackend("")
		require.NoError(t, err)
		assert.Equal(t, store, got)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := svc.GetBackend("s3")
		assert.ErrorIs(t, err, imageassets.ErrStorageBackendNotFound)
	})
}
