package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-erp-gateway/core"
)

// TokenStore persists upstream credentials with one row per owner.
// Write races converge through the unique owner_id index: the insert
// upserts on conflict, so the last refresh wins without partial
// overwrites.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

func (s *TokenStore) FindByOwner(ctx context.Context, ownerID string) (core.CredentialRecord, bool, error) {
	if s == nil || s.repo == nil {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmed := strings.TrimSpace(ownerID)
	if trimmed == "" {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: owner id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("owner_id", "=", trimmed),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialRecord{}, false, err
	}
	if len(records) == 0 {
		return core.CredentialRecord{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *TokenStore) UpsertByOwner(ctx context.Context, in core.CredentialRecord) (core.CredentialRecord, error) {
	if s == nil || s.db == nil {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: owner id is required")
	}
	if strings.TrimSpace(in.AccessToken) == "" {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: access token is required")
	}

	now := time.Now().UTC()
	record := newTokenRecord(in, now)
	record.ID = uuid.NewString()

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (owner_id) DO UPDATE").
		Set("owner_type = EXCLUDED.owner_type").
		Set("access_token = EXCLUDED.access_token").
		Set("token_type = EXCLUDED.token_type").
		Set("resource = EXCLUDED.resource").
		Set("expires_on = EXCLUDED.expires_on").
		Set("expires_in = EXCLUDED.expires_in").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.CredentialRecord{}, err
	}

	written, found, err := s.FindByOwner(ctx, in.OwnerID)
	if err != nil {
		return core.CredentialRecord{}, err
	}
	if !found {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: upserted credential not found for owner %q", in.OwnerID)
	}
	return written, nil
}

func (s *TokenStore) FindLegacyOwnerless(ctx context.Context) (core.CredentialRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: token store is not configured")
	}
	record := &tokenRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("owner_id IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CredentialRecord{}, false, nil
		}
		return core.CredentialRecord{}, false, err
	}
	return record.toDomain(), true, nil
}

// AdoptLegacy claims the ownerless row for the given owner. Returns
// false when no legacy row exists or another writer claimed it first.
func (s *TokenStore) AdoptLegacy(ctx context.Context, owner core.OwnerRef) (core.CredentialRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: token store is not configured")
	}
	ownerID := strings.TrimSpace(owner.ID)
	if ownerID == "" {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: owner id is required")
	}

	var adopted core.CredentialRecord
	claimed := false
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		legacy := &tokenRecord{}
		selectErr := tx.NewSelect().
			Model(legacy).
			Where("owner_id IS NULL").
			Limit(1).
			Scan(ctx)
		if selectErr != nil {
			if errors.Is(selectErr, sql.ErrNoRows) {
				return nil
			}
			return selectErr
		}

		result, updateErr := tx.NewUpdate().
			Model((*tokenRecord)(nil)).
			Set("owner_id = ?", ownerID).
			Set("owner_type = ?", string(owner.Type)).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", legacy.ID).
			Where("owner_id IS NULL").
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected == 0 {
			return nil
		}

		claimedOwner := ownerID
		legacy.OwnerID = &claimedOwner
		legacy.OwnerType = string(owner.Type)
		adopted = legacy.toDomain()
		claimed = true
		return nil
	})
	if err != nil {
		return core.CredentialRecord{}, false, err
	}
	return adopted, claimed, nil
}

// ListExpiring returns records whose expiry falls at or before the
// given epoch second, oldest first.
func (s *TokenStore) ListExpiring(ctx context.Context, before int64) ([]core.CredentialRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: token store is not configured")
	}
	var records []*tokenRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("owner_id IS NOT NULL").
		Where("expires_on <= ?", before).
		Order("expires_on ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.CredentialRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var (
	_ core.TokenStore          = (*TokenStore)(nil)
	_ core.ExpiringTokenLister = (*TokenStore)(nil)
)
