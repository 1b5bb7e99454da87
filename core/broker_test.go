package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fakeTokenStore struct {
	records     map[string]CredentialRecord
	legacy      *CredentialRecord
	findErr     error
	upsertErr   error
	upsertCalls int
	adoptCalls  int
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{records: map[string]CredentialRecord{}}
}

func (s *fakeTokenStore) FindByOwner(_ context.Context, ownerID string) (CredentialRecord, bool, error) {
	if s.findErr != nil {
		return CredentialRecord{}, false, s.findErr
	}
	record, ok := s.records[strings.TrimSpace(ownerID)]
	return record, ok, nil
}

func (s *fakeTokenStore) UpsertByOwner(_ context.Context, record CredentialRecord) (CredentialRecord, error) {
	if s.upsertErr != nil {
		return CredentialRecord{}, s.upsertErr
	}
	s.upsertCalls++
	s.records[record.OwnerID] = record
	return record, nil
}

func (s *fakeTokenStore) FindLegacyOwnerless(context.Context) (CredentialRecord, bool, error) {
	if s.legacy == nil {
		return CredentialRecord{}, false, nil
	}
	return *s.legacy, true, nil
}

func (s *fakeTokenStore) AdoptLegacy(_ context.Context, owner OwnerRef) (CredentialRecord, bool, error) {
	s.adoptCalls++
	if s.legacy == nil {
		return CredentialRecord{}, false, nil
	}
	adopted := *s.legacy
	adopted.OwnerID = owner.ID
	adopted.OwnerType = owner.Type
	s.records[owner.ID] = adopted
	s.legacy = nil
	return adopted, true, nil
}

type fakeTokenSource struct {
	token UpstreamToken
	err   error
	calls int
}

func (s *fakeTokenSource) FetchToken(context.Context) (UpstreamToken, error) {
	s.calls++
	if s.err != nil {
		return UpstreamToken{}, s.err
	}
	return s.token, nil
}

func testBrokerConfig() Config {
	cfg := DefaultConfig()
	cfg.Upstream.TenantID = "tenant-1"
	cfg.Upstream.ClientID = "client-1"
	cfg.Upstream.ClientSecret = "secret-1"
	cfg.Upstream.Resource = "https://erp.example.com/"
	cfg.ERP.BaseURL = "https://erp.example.com/"
	return cfg
}

func newTestBroker(t *testing.T, store TokenStore, source TokenSource, now time.Time) *Broker {
	t.Helper()
	broker, err := NewBroker(testBrokerConfig(),
		WithTokenStore(store),
		WithTokenSource(source),
	)
	if err != nil {
		t.Fatalf("new broker: %v", err)
	}
	broker.now = func() time.Time { return now }
	return broker
}

func TestBroker_Token_ServesFreshRecordWithoutUpstreamCall(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	store.records["user_1"] = CredentialRecord{
		OwnerID:     "user_1",
		OwnerType:   OwnerTypeLocal,
		AccessToken: "cached",
		ExpiresOn:   now.Unix() + 61,
	}
	source := &fakeTokenSource{}
	broker := newTestBroker(t, store, source, now)

	record, err := broker.Token(context.Background(), LocalUser{ID: "user_1"})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("expected no upstream call for fresh record, got %d", source.calls)
	}
	if record.AccessToken != "cached" {
		t.Fatalf("expected cached token, got %q", record.AccessToken)
	}
	if record.ExpiresIn != 61 {
		t.Fatalf("expected derived expires_in 61, got %d", record.ExpiresIn)
	}
}

func TestBroker_Token_RefreshesInsideBuffer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	store.records["user_1"] = CredentialRecord{
		OwnerID:     "user_1",
		OwnerType:   OwnerTypeLocal,
		AccessToken: "stale",
		ExpiresOn:   now.Unix() + 59,
	}
	source := &fakeTokenSource{token: UpstreamToken{
		AccessToken: "fresh",
		TokenType:   "Bearer",
		Resource:    "https://erp.example.com/",
		ExpiresOn:   now.Unix() + 3600,
	}}
	broker := newTestBroker(t, store, source, now)

	record, err := broker.Token(context.Background(), LocalUser{ID: "user_1"})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", source.calls)
	}
	if record.AccessToken != "fresh" {
		t.Fatalf("expected refreshed token, got %q", record.AccessToken)
	}
	if record.ExpiresOn <= now.Unix()+59 {
		t.Fatalf("expected expires_on to advance, got %d", record.ExpiresOn)
	}
	if record.ExpiresIn < 0 {
		t.Fatalf("expected non-negative expires_in, got %d", record.ExpiresIn)
	}
	if store.upsertCalls != 1 {
		t.Fatalf("expected refreshed record to be persisted, got %d upserts", store.upsertCalls)
	}
}

func TestBroker_Token_MissingRecordTriggersRefresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	source := &fakeTokenSource{token: UpstreamToken{
		AccessToken: "fresh",
		ExpiresOn:   now.Unix() + 3600,
	}}
	broker := newTestBroker(t, store, source, now)

	record, err := broker.Token(context.Background(), LocalUser{ID: "user_2"})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if record.OwnerID != "user_2" {
		t.Fatalf("expected record keyed to caller, got %q", record.OwnerID)
	}
	if record.OwnerType != OwnerTypeLocal {
		t.Fatalf("expected local owner type, got %q", record.OwnerType)
	}
}

func TestBroker_Token_AdoptsLegacyRecordForServiceOwner(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	store.legacy = &CredentialRecord{
		AccessToken: "legacy",
		ExpiresOn:   now.Unix() + 3600,
	}
	source := &fakeTokenSource{}
	broker := newTestBroker(t, store, source, now)

	record, err := broker.Token(context.Background(), nil)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if store.adoptCalls != 1 {
		t.Fatalf("expected one adoption attempt, got %d", store.adoptCalls)
	}
	if source.calls != 0 {
		t.Fatalf("expected adopted record to satisfy the read, got %d upstream calls", source.calls)
	}
	if record.OwnerID != ServiceOwnerID {
		t.Fatalf("expected service owner, got %q", record.OwnerID)
	}
	if record.AccessToken != "legacy" {
		t.Fatalf("expected legacy token, got %q", record.AccessToken)
	}
}

func TestBroker_Token_NoLegacyAdoptionForUserOwners(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	store.legacy = &CredentialRecord{AccessToken: "legacy", ExpiresOn: now.Unix() + 3600}
	source := &fakeTokenSource{token: UpstreamToken{AccessToken: "fresh", ExpiresOn: now.Unix() + 3600}}
	broker := newTestBroker(t, store, source, now)

	if _, err := broker.Token(context.Background(), LocalUser{ID: "user_3"}); err != nil {
		t.Fatalf("token: %v", err)
	}
	if store.adoptCalls != 0 {
		t.Fatalf("expected no adoption for user owners, got %d", store.adoptCalls)
	}
	if source.calls != 1 {
		t.Fatalf("expected upstream refresh for user owner, got %d", source.calls)
	}
}

func TestBroker_Refresh_BypassesFreshnessCheck(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	store.records["user_1"] = CredentialRecord{
		OwnerID:     "user_1",
		OwnerType:   OwnerTypeLocal,
		AccessToken: "cached",
		ExpiresOn:   now.Unix() + 7200,
	}
	source := &fakeTokenSource{token: UpstreamToken{AccessToken: "forced", ExpiresOn: now.Unix() + 3600}}
	broker := newTestBroker(t, store, source, now)

	record, err := broker.Refresh(context.Background(), LocalUser{ID: "user_1"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected forced upstream call, got %d", source.calls)
	}
	if record.AccessToken != "forced" {
		t.Fatalf("expected forced token, got %q", record.AccessToken)
	}
}

func TestBroker_Token_SourceFailureSurfacesRichError(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	source := &fakeTokenSource{err: UpstreamAuthError("core: token endpoint returned status 401", 401, "")}
	broker := newTestBroker(t, store, source, now)

	_, err := broker.Token(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected upstream failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != GatewayErrorUpstreamAuth {
		t.Fatalf("expected text code %q, got %q", GatewayErrorUpstreamAuth, richErr.TextCode)
	}
}

func TestBroker_Token_PersistenceErrorMapped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	store := newFakeTokenStore()
	store.findErr = errors.New("disk gone")
	broker := newTestBroker(t, store, &fakeTokenSource{}, now)

	_, err := broker.Token(context.Background(), LocalUser{ID: "user_1"})
	if err == nil {
		t.Fatalf("expected persistence failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != GatewayErrorPersistence {
		t.Fatalf("expected text code %q, got %q", GatewayErrorPersistence, richErr.TextCode)
	}
}

func TestNewBroker_RequiresStore(t *testing.T) {
	_, err := NewBroker(testBrokerConfig())
	if err == nil {
		t.Fatalf("expected configuration error without a token store")
	}
}
