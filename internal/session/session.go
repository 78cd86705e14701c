// Package session owns the Google OAuth session: the access token, the
// signed-in profile, silent refresh and the terminal expired flag that
// gates every remote operation.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"family-harmony/internal/localstate"
)

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// RefreshInterval keeps the refresh loop safely ahead of the one-hour
// access token lifetime.
const RefreshInterval = 50 * time.Minute

// Profile is the signed-in Google account.
type Profile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Manager holds the authentication state. It implements
// oauth2.TokenSource so the Google API clients always see the current
// access token, including after a background refresh swapped it out.
type Manager struct {
	mu      sync.Mutex
	oauth   *oauth2.Config
	token   *oauth2.Token
	profile *Profile
	expired bool
	demo    bool

	sessionSecret []byte
	store         *localstate.Store
	log           *zap.Logger

	httpClient  *http.Client
	userinfoURL string
}

// NewManager creates a Manager. The OAuth config is scoped to exactly
// the three capabilities the app needs: spreadsheet read/write,
// app-created Drive files and calendar read/write.
func NewManager(clientID, clientSecret, redirectURL, sessionSecret string, demo bool, store *localstate.Store, log *zap.Logger) *Manager {
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				sheets.SpreadsheetsScope,
				drive.DriveFileScope,
				calendar.CalendarScope,
			},
		},
		sessionSecret: []byte(sessionSecret),
		demo:          demo,
		store:         store,
		log:           log,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		userinfoURL:   defaultUserinfoURL,
	}
}

// LoginURL returns the interactive consent URL. The known account
// email is passed as a hint so re-authentication skips the picker.
func (m *Manager) LoginURL(state string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
	if m.profile != nil && m.profile.Email != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", m.profile.Email))
	}
	return m.oauth.AuthCodeURL(state, opts...)
}

// Exchange completes the interactive flow: trades the code for a
// token, fetches the profile and persists the refresh credentials.
func (m *Manager) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	profile, err := m.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.profile = profile
	m.expired = false
	m.mu.Unlock()

	if err := m.persist(ctx, token, profile); err != nil {
		m.log.Warn("failed to persist session", zap.Error(err))
	}
	m.log.Info("signed in", zap.String("email", profile.Email))
	return profile, nil
}

// Resume restores a persisted session at startup and refreshes it.
// Returns false when there is nothing to resume.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	if m.demo {
		return false, nil
	}
	refreshToken, err := m.store.Get(ctx, localstate.KeyRefreshToken)
	if err != nil {
		return false, err
	}
	if refreshToken == "" {
		return false, nil
	}

	rawProfile, err := m.store.Get(ctx, localstate.KeyProfile)
	if err != nil {
		return false, err
	}
	var profile Profile
	if rawProfile != "" {
		if err := json.Unmarshal([]byte(rawProfile), &profile); err != nil {
			m.log.Warn("failed to parse stored profile", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.token = &oauth2.Token{RefreshToken: refreshToken}
	if profile.Email != "" {
		m.profile = &profile
	}
	m.mu.Unlock()

	if err := m.SilentRefresh(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// SilentRefresh reacquires an access token without user interaction.
// Failure is terminal: the expired flag blocks all remote operations
// until the next interactive login.
func (m *Manager) SilentRefresh(ctx context.Context) error {
	m.mu.Lock()
	if m.demo {
		m.mu.Unlock()
		return nil
	}
	if m.token == nil || m.token.RefreshToken == "" {
		m.expired = true
		m.mu.Unlock()
		return fmt.Errorf("no refresh token available")
	}
	seed := &oauth2.Token{RefreshToken: m.token.RefreshToken}
	m.mu.Unlock()

	fresh, err := m.oauth.TokenSource(ctx, seed).Token()
	if err != nil {
		m.mu.Lock()
		m.expired = true
		m.mu.Unlock()
		m.log.Warn("silent token refresh failed", zap.Error(err))
		return fmt.Errorf("silent refresh failed: %w", err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = seed.RefreshToken
	}

	m.mu.Lock()
	m.token = fresh
	m.expired = false
	profile := m.profile
	m.mu.Unlock()

	if err := m.persist(ctx, fresh, profile); err != nil {
		m.log.Warn("failed to persist refreshed session", zap.Error(err))
	}
	m.log.Info("access token refreshed")
	return nil
}

// StartRefreshLoop refreshes the token on a fixed interval until ctx
// is cancelled. Each attempt runs to completion or failure; there is
// no per-attempt cancellation.
func (m *Manager) StartRefreshLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !m.Authenticated() || m.demo {
					continue
				}
				if err := m.SilentRefresh(ctx); err != nil {
					m.log.Warn("background refresh failed", zap.Error(err))
				}
			}
		}
	}()
}

// Token implements oauth2.TokenSource for the Google API clients.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expired {
		return nil, fmt.Errorf("session expired, reconnect required")
	}
	if m.token == nil || m.token.AccessToken == "" {
		return nil, fmt.Errorf("not signed in")
	}
	return m.token, nil
}

// MarkExpired flags the session as terminally expired. Called on the
// first 401 from any remote API so in-flight work aborts instead of
// looping on reauthentication.
func (m *Manager) MarkExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired = true
}

// Expired reports whether the session needs an interactive reconnect.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Demo reports whether the app runs against seeded data only.
func (m *Manager) Demo() bool {
	return m.demo
}

// Blocked reports whether remote operations are currently disabled.
func (m *Manager) Blocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired || m.demo
}

// Authenticated reports whether a user is signed in (demo counts).
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.demo || m.token != nil
}

// Profile returns the signed-in profile, or nil.
func (m *Manager) Profile() *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	copied := *m.profile
	return &copied
}

// Logout clears the in-memory session and every persisted value,
// including the cached spreadsheet handle.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.token = nil
	m.profile = nil
	m.expired = false
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear local state: %w", err)
	}
	m.log.Info("signed out")
	return nil
}

func (m *Manager) fetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &profile, nil
}

func (m *Manager) persist(ctx context.Context, token *oauth2.Token, profile *Profile) error {
	if token.RefreshToken != "" {
		if err := m.store.Set(ctx, localstate.KeyRefreshToken, token.RefreshToken); err != nil {
			return err
		}
	}
	if profile != nil {
		raw, err := json.Marshal(profile)
		if err != nil {
			return err
		}
		if err := m.store.Set(ctx, localstate.KeyProfile, string(raw)); err != nil {
			return err
		}
	}
	return nil
}
