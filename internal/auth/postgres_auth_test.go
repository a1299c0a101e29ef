package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// testAPIKey is the raw API key used in tests. Must start with "tgk_" and be >= 8 chars.
const testAPIKey = "tgk_test_valid_key_1234567890abcdef"

// testHash returns a bcrypt hash of testAPIKey using MinCost (fast for tests).
func testHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to generate bcrypt hash: %v", err)
	}
	return string(hash)
}

// mockStore implements ClientStore for testing.
type mockStore struct {
	row       *clientRow
	err       error
	callCount atomic.Int32
}

func (m *mockStore) LookupByPrefix(_ context.Context, _ string) (*clientRow, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.row, nil
}

func TestPostgresAuth_CacheMiss_ValidKey(t *testing.T) {
	store := &mockStore{
		row: &clientRow{
			ClientID:   "client_abc",
			APIKeyHash: testHash(t),
			ReadOnly:   true,
		},
	}
	auth := NewPostgresAuthenticatorWithStore(store, 1*time.Minute, zap.NewNop())

	client, err := auth.Authenticate(context.Background(), testAPIKey)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if client.ClientID != "client_abc" {
		t.Errorf("expected client ID client_abc, got %s", client.ClientID)
	}
	if !client.ReadOnly {
		t.Error("expected read_only=true")
	}
	if store.callCount.Load() != 1 {
		t.Errorf("expected 1 DB call, got %d", store.callCount.Load())
	}
}

func TestPostgresAuth_CacheHit_NoDBCall(t *testing.T) {
	store := &mockStore{
		row: &clientRow{
			ClientID:   "client_abc",
			APIKeyHash: testHash(t),
		},
	}
	auth := NewPostgresAuthenticatorWithStore(store, 1*time.Minute, zap.NewNop())

	// First call — cache miss, hits DB
	if _, err := auth.Authenticate(context.Background(), testAPIKey); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if store.callCount.Load() != 1 {
		t.Fatalf("expected 1 DB call after first auth, got %d", store.callCount.Load())
	}

	// Second call — cache hit, no DB call
	client, err := auth.Authenticate(context.Background(), testAPIKey)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if store.callCount.Load() != 1 {
		t.Errorf("expected still 1 DB call (cache hit), got %d", store.callCount.Load())
	}
	if client.ClientID != "client_abc" {
		t.Errorf("expected client_abc from cache, got %s", client.ClientID)
	}
}

func TestPostgresAuth_WrongKey_Denied(t *testing.T) {
	store := &mockStore{
		row: &clientRow{
			ClientID:   "client_abc",
			APIKeyHash: testHash(t),
		},
	}
	auth := NewPostgresAuthenticatorWithStore(store, 1*time.Minute, zap.NewNop())

	_, err := auth.Authenticate(context.Background(), "tgk_test_wrong_key_000000000000000")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestPostgresAuth_StoreError_FailClosed(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	auth := NewPostgresAuthenticatorWithStore(store, 1*time.Minute, zap.NewNop())

	// Auth is fail-closed: a broken store denies the request.
	if _, err := auth.Authenticate(context.Background(), testAPIKey); err == nil {
		t.Fatal("expected error when store is unavailable")
	}
}

func TestPostgresAuth_ShortToken_Denied(t *testing.T) {
	auth := NewPostgresAuthenticatorWithStore(&mockStore{}, 1*time.Minute, zap.NewNop())
	if _, err := auth.Authenticate(context.Background(), "tgk_x"); err == nil {
		t.Fatal("expected error for short token")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer tgk_abc12345", "tgk_abc12345", false},
		{"lowercase bearer", "bearer tgk_abc12345", "tgk_abc12345", false},
		{"bare token", "tgk_abc12345", "tgk_abc12345", false},
		{"missing header", "", "", true},
		{"wrong prefix", "Bearer sk_abc12345", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/v1/execute", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractBearerToken(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
