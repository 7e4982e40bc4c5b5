package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultExpiresIn is applied when the identity server omits expires_in.
const DefaultExpiresIn = 86400 * time.Second

// Options configures a [Manager].
type Options struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client     // base client for the identity endpoint; defaults to a 20s timeout client
	Store        Store            // defaults to an empty [MemoryStore]
	Logger       *log.Logger      // defaults to [shared.NewLogger]
	Now          func() time.Time // defaults to [time.Now]
}

// Manager owns the token state machine. It is safe for concurrent use.
type Manager struct {
	config *oauth2.Config
	client *http.Client
	store  Store
	logger *log.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cred   models.Credential
	claims *models.IdentityClaims

	refreshes singleflight.Group
}

// NewManager creates a [Manager]. Call [Manager.Restore] to load a persisted credential.
func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = NewMemoryStore(models.Credential{})
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 20 * time.Second}
	}
	client := *base
	client.Transport = &tokenShapeTransport{base: base.Transport}

	return &Manager{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client: &client,
		store:  opts.Store,
		logger: shared.WithLogger(opts.Logger, "component", "session"),
		now:    opts.Now,
	}
}

// Restore loads the persisted credential and recomputes its claims.
func (m *Manager) Restore(ctx context.Context) error {
	cred, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	m.mu.Lock()
	m.cred = cred
	m.claims = DecodeClaims(cred.AccessToken)
	m.mu.Unlock()

	m.logger.Debug("restored session", "authenticated", m.IsAuthenticated(), "expires_at", cred.ExpiresAt)
	return nil
}

// IsAuthenticated reports whether a non-empty, unexpired access token is held. No network call.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.ValidAt(m.now())
}

// Credential returns a copy of the current credential.
func (m *Manager) Credential() models.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred
}

// Claims returns the unverified identity decoded from the current access token, or nil.
func (m *Manager) Claims() *models.IdentityClaims {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.claims == nil {
		return nil
	}
	c := *m.claims
	return &c
}

// Authenticate exchanges username and password for tokens and persists them.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (models.Credential, error) {
	if username == "" || password == "" {
		return models.Credential{}, authErr(InvalidCredentials, shared.ErrMissingCredentials)
	}

	tok, err := m.config.PasswordCredentialsToken(m.exchangeContext(ctx), username, password)
	if err != nil {
		if isClientError(err) {
			m.logger.Warn("password grant rejected", "username", username)
			return models.Credential{}, authErr(InvalidCredentials, err)
		}
		return models.Credential{}, authErr(Network, err)
	}

	cred := m.credentialFrom(tok, "")
	if err := m.commit(ctx, cred); err != nil {
		return models.Credential{}, err
	}

	m.logger.Info("authenticated", "username", username, "expires_at", cred.ExpiresAt)
	return cred, nil
}

// ValidToken returns a usable access token, refreshing an expired one when a refresh token is stored.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	cred := m.Credential()
	if cred.IsZero() {
		return "", authErr(NoValidToken, shared.ErrNotAuthenticated)
	}
	if cred.ValidAt(m.now()) {
		return cred.AccessToken, nil
	}
	if !cred.CanRefresh() {
		return "", authErr(NoValidToken, fmt.Errorf("access token expired at %s", cred.ExpiresAt.Format(time.RFC3339)))
	}

	refreshed, err := m.Refresh(ctx)
	if err != nil {
		return "", authErr(NoValidToken, err)
	}
	return refreshed.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new token pair.
//
// Concurrent callers share one exchange. A 4xx from the identity endpoint is irrecoverable and clears the session.
func (m *Manager) Refresh(ctx context.Context) (models.Credential, error) {
	ctx = context.WithoutCancel(ctx)

	v, err, joined := m.refreshes.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if joined {
		m.logger.Debug("joined in-flight refresh")
	}
	if err != nil {
		return models.Credential{}, err
	}
	return v.(models.Credential), nil
}

func (m *Manager) refresh(ctx context.Context) (models.Credential, error) {
	current := m.Credential()
	if !current.CanRefresh() {
		return models.Credential{}, authErr(NoRefreshToken, nil)
	}

	src := m.config.TokenSource(m.exchangeContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		if isClientError(err) {
			m.logger.Warn("refresh token rejected, clearing session")
			if clearErr := m.Logout(ctx); clearErr != nil {
				m.logger.Error("failed to clear rejected credential", "error", clearErr)
			}
		}
		return models.Credential{}, authErr(RefreshFailed, err)
	}

	cred := m.credentialFrom(tok, current.RefreshToken)
	if err := m.commit(ctx, cred); err != nil {
		return models.Credential{}, err
	}

	m.logger.Info("refreshed access token", "expires_at", cred.ExpiresAt)
	return cred, nil
}

// Logout clears the persisted and in-memory credential. Idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.cred = models.Credential{}
	m.claims = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// commit writes cred through to the store, then makes it current.
func (m *Manager) commit(ctx context.Context, cred models.Credential) error {
	if err := m.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	claims := DecodeClaims(cred.AccessToken)

	m.mu.Lock()
	m.cred = cred
	m.claims = claims
	m.mu.Unlock()
	return nil
}

func (m *Manager) credentialFrom(tok *oauth2.Token, previousRefresh string) models.Credential {
	now := m.now()
	expiresAt := now.Add(DefaultExpiresIn)
	if secs := extraSeconds(tok.Extra("expires_in")); secs > 0 {
		expiresAt = now.Add(time.Duration(secs) * time.Second)
	} else if !tok.Expiry.IsZero() && tok.Expiry.After(now) {
		expiresAt = tok.Expiry
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}
}

func (m *Manager) exchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

func isClientError(err error) bool {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) || rerr.Response == nil {
		return false
	}
	return rerr.Response.StatusCode >= 400 && rerr.Response.StatusCode < 500
}

func extraSeconds(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
