package sqlstore

import (
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-erp-gateway/core"
)

// tokenRecord is one cached upstream credential. owner_id is nullable
// so rows written before per-owner credentials existed stay readable
// until adopted.
type tokenRecord struct {
	bun.BaseModel `bun:"table:erp_tokens,alias:et"`

	ID          string    `bun:"id,pk"`
	OwnerID     *string   `bun:"owner_id"`
	OwnerType   string    `bun:"owner_type,notnull"`
	AccessToken string    `bun:"access_token,notnull"`
	TokenType   string    `bun:"token_type"`
	Resource    string    `bun:"resource"`
	ExpiresOn   int64     `bun:"expires_on,notnull"`
	ExpiresIn   *int64    `bun:"expires_in"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *tokenRecord) toDomain() core.CredentialRecord {
	if r == nil {
		return core.CredentialRecord{}
	}
	record := core.CredentialRecord{
		OwnerID:     core.ServiceOwnerID,
		OwnerType:   core.OwnerTypeService,
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		Resource:    r.Resource,
		ExpiresOn:   r.ExpiresOn,
	}
	if r.OwnerID != nil && strings.TrimSpace(*r.OwnerID) != "" {
		record.OwnerID = strings.TrimSpace(*r.OwnerID)
	}
	if strings.TrimSpace(r.OwnerType) != "" {
		record.OwnerType = core.OwnerType(strings.TrimSpace(r.OwnerType))
	}
	if r.ExpiresIn != nil {
		record.ExpiresIn = *r.ExpiresIn
	}
	return record
}

func newTokenRecord(in core.CredentialRecord, now time.Time) *tokenRecord {
	ownerID := strings.TrimSpace(in.OwnerID)
	record := &tokenRecord{
		OwnerID:     &ownerID,
		OwnerType:   string(in.OwnerType),
		AccessToken: in.AccessToken,
		TokenType:   in.TokenType,
		Resource:    in.Resource,
		ExpiresOn:   in.ExpiresOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ExpiresIn > 0 {
		expiresIn := in.ExpiresIn
		record.ExpiresIn = &expiresIn
	}
	return record
}
