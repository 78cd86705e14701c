package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"family-harmony/internal/localstate"
)

func newTestStore(t *testing.T) *localstate.Store {
	t.Helper()
	store, err := localstate.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestManager(t *testing.T, demo bool) *Manager {
	return NewManager("client-id", "client-secret", "http://localhost/cb", "test-secret", demo, newTestStore(t), zap.NewNop())
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := newTestManager(t, true)

	raw, err := m.MintSessionToken()
	if err != nil {
		t.Fatalf("MintSessionToken: %v", err)
	}

	email, err := m.VerifySessionToken(raw)
	if err != nil {
		t.Fatalf("VerifySessionToken: %v", err)
	}
	if email != "demo@family.local" {
		t.Errorf("email = %q, want demo account", email)
	}
}

func TestSessionTokenWrongSecretRejected(t *testing.T) {
	minter := newTestManager(t, true)
	raw, err := minter.MintSessionToken()
	if err != nil {
		t.Fatalf("MintSessionToken: %v", err)
	}

	verifier := NewManager("client-id", "client-secret", "http://localhost/cb", "other-secret", true, newTestStore(t), zap.NewNop())
	if _, err := verifier.VerifySessionToken(raw); err == nil {
		t.Error("expected verification failure with a different secret")
	}
	if _, err := verifier.VerifySessionToken("not.a.token"); err == nil {
		t.Error("expected verification failure for garbage input")
	}
}

func TestMintSessionTokenRequiresProfile(t *testing.T) {
	m := newTestManager(t, false)
	if _, err := m.MintSessionToken(); err == nil {
		t.Error("expected error without a signed-in profile")
	}
}

func TestTokenGatedByExpiry(t *testing.T) {
	m := newTestManager(t, false)

	if _, err := m.Token(); err == nil {
		t.Error("expected error before sign-in")
	}

	m.mu.Lock()
	m.token = &oauth2.Token{AccessToken: "access-1"}
	m.mu.Unlock()

	tok, err := m.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}

	m.MarkExpired()
	if !m.Expired() {
		t.Error("Expired() = false after MarkExpired")
	}
	if _, err := m.Token(); err == nil {
		t.Error("expected error after MarkExpired")
	} else if !strings.Contains(err.Error(), "expired") {
		t.Errorf("error = %v, want expiry mentioned", err)
	}
}

func TestBlocked(t *testing.T) {
	demo := newTestManager(t, true)
	if !demo.Blocked() {
		t.Error("demo session should block remote writes")
	}

	live := newTestManager(t, false)
	if live.Blocked() {
		t.Error("fresh live session should not be blocked")
	}
	live.MarkExpired()
	if !live.Blocked() {
		t.Error("expired session should be blocked")
	}
}

func TestResumeWithEmptyStore(t *testing.T) {
	m := newTestManager(t, false)
	resumed, err := m.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed {
		t.Error("Resume() = true with empty store")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := NewManager("client-id", "client-secret", "http://localhost/cb", "test-secret", false, store, zap.NewNop())

	if err := store.Set(ctx, localstate.KeyRefreshToken, "refresh-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, localstate.KeySpreadsheetID, "sheet-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	m.mu.Lock()
	m.token = &oauth2.Token{AccessToken: "access-1"}
	m.expired = true
	m.mu.Unlock()

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if m.Expired() {
		t.Error("expired flag should reset on logout")
	}
	if m.Authenticated() {
		t.Error("still authenticated after logout")
	}
	for _, key := range []string{localstate.KeyRefreshToken, localstate.KeySpreadsheetID} {
		v, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if v != "" {
			t.Errorf("%s = %q after logout, want empty", key, v)
		}
	}
}
