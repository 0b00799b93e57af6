package imageassets_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/just-work/image-assets/pkg/imageassets"
	"github.com/just-work/image-assets/pkg/imageassets/repo/memory"
	memorystorage "github.com/just-work/image-assets/pkg/imageassets/storage/memory"
)

func setupTestService(t *testing.T, kinds ...imageassets.HostKind) imageassets.Service {
	t.Helper()

	svc, err := imageassets.New(
		imageassets.WithRepository(memory.New()),
		imageassets.WithBlobStore("memory", memorystorage.New()),
		imageassets.WithEventSink(imageassets.NewNoopEventSink()),
		imageassets.WithHostKinds(kinds...),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc
}

func createTestType(t *testing.T, svc imageassets.Service, slug string, requiredFor ...imageassets.HostKind) *imageassets.AssetType {
	t.Helper()

	assetType, err := svc.CreateAssetType(context.Background(), imageassets.CreateAssetTypeRequest{
		Slug:        slug,
		RequiredFor: requiredFor,
	})
	require.NoError(t, err)
	return assetType
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	const video = imageassets.HostKind("video")

	setup := func(t *testing.T) (imageassets.Service, *imageassets.AssetType, *imageassets.AssetType) {
		svc := setupTestService(t, video)
		poster := createTestType(t, svc, "poster", video)
		thumb := createTestType(t, svc, "thumbnail", video)
		return svc, poster, thumb
	}

	t.Run("complete set passes", func(t *testing.T) {
		svc, poster, thumb := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: poster.ID, Active: true},
			{AssetTypeID: thumb.ID, Active: true},
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("missing required type", func(t *testing.T) {
		svc, poster, _ := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: poster.ID, Active: true},
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, imageassets.ViolationMissingTypes, violations[0].Code)
		assert.Contains(t, violations[0].Message, "thumbnail")
	})

	t.Run("duplicate active rows", func(t *testing.T) {
		svc, poster, thumb := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: poster.ID, Active: true},
			{AssetTypeID: poster.ID, Active: true},
			{AssetTypeID: thumb.ID, Active: true},
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, imageassets.ViolationDuplicateTypes, violations[0].Code)
		assert.Contains(t, violations[0].Message, "poster")
	})

	t.Run("missing and duplicate reported together", func(t *testing.T) {
		svc, poster, _ := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: poster.ID, Active: true},
			{AssetTypeID: poster.ID, Active: true},
		})
		require.NoError(t, err)
		require.Len(t, violations, 2)
		assert.Equal(t, imageassets.ViolationMissingTypes, violations[0].Code)
		assert.Equal(t, imageassets.ViolationDuplicateTypes, violations[1].Code)
	})

	t.Run("inactive rows never satisfy and never duplicate", func(t *testing.T) {
		svc, poster, thumb := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: poster.ID, Active: true},
			{AssetTypeID: poster.ID, Active: false},
			{AssetTypeID: thumb.ID, Active: false},
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, imageassets.ViolationMissingTypes, violations[0].Code)
		assert.Contains(t, violations[0].Message, "thumbnail")
	})

	t.Run("blank rows are skipped", func(t *testing.T) {
		svc, poster, thumb := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: poster.ID, Active: true},
			{AssetTypeID: thumb.ID, Active: true},
			{Active: true},
			{Active: true},
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("stored active asset satisfies requirement", func(t *testing.T) {
		svc, poster, thumb := setup(t)
		host := imageassets.HostRef{Kind: video, ID: uuid.New()}

		_, err := svc.AttachAsset(ctx, imageassets.AttachAssetRequest{
			Host:        host,
			AssetTypeID: poster.ID,
			FileName:    "poster.png",
			Data:        pngImage(t, 10, 10),
			Active:      true,
		})
		require.NoError(t, err)

		// The poster requirement is already satisfied by the stored asset,
		// so an edit set covering only the thumbnail passes.
		violations, err := svc.Reconcile(ctx, host, []imageassets.AssetEdit{
			{AssetTypeID: thumb.ID, Active: true},
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("class-level reference is rejected", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.Reconcile(ctx, imageassets.HostRef{Kind: video}, nil)
		assert.ErrorIs(t, err, imageassets.ErrHostInstanceRequired)
	})

	t.Run("unknown host kind is rejected", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.Reconcile(ctx, imageassets.HostRef{Kind: "podcast", ID: uuid.New()}, nil)
		assert.ErrorIs(t, err, imageassets.ErrUnknownHostKind)
	})
}
