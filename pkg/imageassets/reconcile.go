package imageassets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Reconcile validates the shape of a candidate attachment set for one host:
// every still-unsatisfied required type must be covered by exactly one active
// row, and no type may have more than one active row. Inactive rows and rows
// with no type chosen are skipped entirely; they never satisfy a requirement
// and never count as duplicates.
//
// The baseline of required types is evaluated against the host's stored
// state, so types already satisfied by an existing active asset do not
// reappear as missing. Missing and duplicate checks run independently and
// both violations can be returned together. File content is not re-validated
// here; run ValidateContent per new or changed file before reconciling.
func (s *service) Reconcile(ctx context.Context, host HostRef, edits []AssetEdit) ([]Violation, error) {
	if !host.IsInstance() {
		return nil, ErrHostInstanceRequired
	}
	if err := s.checkHostKind(host.Kind); err != nil {
		return nil, err
	}

	required, err := s.RequiredFor(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolving required asset types: %w", err)
	}

	requiredIDs := make(map[uuid.UUID]struct{}, len(required))
	for _, t := range required {
		requiredIDs[t.ID] = struct{}{}
	}

	covered := make(map[uuid.UUID]struct{})
	duplicated := make(map[uuid.UUID]struct{})
	for _, edit := range edits {
		if !edit.Active || edit.AssetTypeID == uuid.Nil {
			continue
		}
		if _, seen := covered[edit.AssetTypeID]; seen {
			duplicated[edit.AssetTypeID] = struct{}{}
		}
		covered[edit.AssetTypeID] = struct{}{}
	}

	missing := make(map[uuid.UUID]struct{})
	for id := range requiredIDs {
		if _, ok := covered[id]; !ok {
			missing[id] = struct{}{}
		}
	}

	var violations []Violation
	if len(missing) > 0 {
		slugs, err := s.slugsFor(ctx, missing)
		if err != nil {
			return nil, err
		}
		violations = append(violations, Violation{
			Code:    ViolationMissingTypes,
			Message: fmt.Sprintf("missing required asset types: %s", strings.Join(slugs, ", ")),
		})
	}
	if len(duplicated) > 0 {
		slugs, err := s.slugsFor(ctx, duplicated)
		if err != nil {
			return nil, err
		}
		violations = append(violations, Violation{
			Code:    ViolationDuplicateTypes,
			Message: fmt.Sprintf("duplicate active assets for types: %s", strings.Join(slugs, ", ")),
		})
	}

	return violations, nil
}

// slugsFor resolves a set of asset type IDs to their sorted slugs for
// violation messages.
func (s *service) slugsFor(ctx context.Context, ids map[uuid.UUID]struct{}) ([]string, error) {
	slugs := make([]string, 0, len(ids))
	for id := range ids {
		assetType, err := s.repository.GetAssetType(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving asset type %s: %w", id, err)
		}
		slugs = append(slugs, assetType.Slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}
