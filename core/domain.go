package core

import (
	"strings"
	"time"
)

// OwnerType identifies which identity class a credential belongs to.
type OwnerType string

const (
	OwnerTypeService   OwnerType = "service"
	OwnerTypeLocal     OwnerType = "local"
	OwnerTypeFederated OwnerType = "federated"
)

// ServiceOwnerID is the shared owner id used for machine-to-machine calls
// that carry no caller identity.
const ServiceOwnerID = "service"

const DefaultRefreshBuffer = 60 * time.Second

// OwnerRef is a fully resolved credential owner. It also satisfies
// OwnerContext so resolved refs can be passed back through broker entry
// points unchanged.
type OwnerRef struct {
	ID   string
	Type OwnerType
}

func (OwnerRef) ownerContext() {}

func ServiceOwner() OwnerRef {
	return OwnerRef{ID: ServiceOwnerID, Type: OwnerTypeService}
}

func (r OwnerRef) IsService() bool {
	return r.Type == OwnerTypeService || strings.TrimSpace(r.ID) == ServiceOwnerID
}

// CredentialRecord is one durable upstream token, keyed by owner.
// ExpiresOn (epoch seconds) is authoritative; ExpiresIn is derived at
// read time and never stored back.
type CredentialRecord struct {
	OwnerID     string
	OwnerType   OwnerType
	AccessToken string
	TokenType   string
	Resource    string
	ExpiresOn   int64
	ExpiresIn   int64
}

// FreshAt reports whether the record can be served without an upstream
// refresh: expires_on must be strictly beyond now plus the buffer.
func (r CredentialRecord) FreshAt(now time.Time, buffer time.Duration) bool {
	if strings.TrimSpace(r.AccessToken) == "" {
		return false
	}
	if buffer < 0 {
		buffer = 0
	}
	return r.ExpiresOn > now.Add(buffer).Unix()
}

// WithDerivedExpiry recomputes ExpiresIn from the authoritative
// ExpiresOn, clamped at zero.
func (r CredentialRecord) WithDerivedExpiry(now time.Time) CredentialRecord {
	remaining := r.ExpiresOn - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	r.ExpiresIn = remaining
	if strings.TrimSpace(r.OwnerID) == "" {
		r.OwnerID = ServiceOwnerID
	}
	if strings.TrimSpace(string(r.OwnerType)) == "" {
		r.OwnerType = OwnerTypeService
	}
	return r
}

// UpstreamToken is the validated payload returned by the upstream token
// endpoint. ExpiresOn is required; ExpiresIn is optional and falls back
// to ext_expires_in when absent.
type UpstreamToken struct {
	AccessToken string
	TokenType   string
	Resource    string
	ExpiresOn   int64
	ExpiresIn   int64
}

func (t UpstreamToken) toRecord(owner OwnerRef) CredentialRecord {
	return CredentialRecord{
		OwnerID:     owner.ID,
		OwnerType:   owner.Type,
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Resource:    t.Resource,
		ExpiresOn:   t.ExpiresOn,
		ExpiresIn:   t.ExpiresIn,
	}
}
