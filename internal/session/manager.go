package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/config"
	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/store"
)

var errNoCredentials = errors.New("credentials not available yet")

// ErrAuthWaitExpired is returned when credentials do not arrive within
// the bounded wait. Callers treat it conservatively and leave persisted
// state untouched.
var ErrAuthWaitExpired = errors.New("timed out waiting for auth session")

// AnonSessionClient is the slice of the relay client the manager needs.
type AnonSessionClient interface {
	AnonSession(ctx context.Context) (model.AuthSession, error)
}

// Manager owns the anonymous signed identity. It adopts a persisted
// session when one exists, otherwise fetches one from the relay exactly
// once. A fetch failure is logged, never surfaced: authorized calls
// simply fail at call time until a session exists.
type Manager struct {
	stateRepo store.StateRepository
	relay     AnonSessionClient

	mu     sync.RWMutex
	creds  model.AuthSession
	userID string
}

func NewManager(stateRepo store.StateRepository, relay AnonSessionClient) *Manager {
	return &Manager{
		stateRepo: stateRepo,
		relay:     relay,
	}
}

// Ensure makes the manager hold credentials if at all possible. Safe to
// call more than once; an adopted session is never replaced.
func (m *Manager) Ensure(ctx context.Context) {
	if _, ok := m.Credentials(); ok {
		return
	}

	saved, err := m.stateRepo.AuthSession(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read persisted auth session")
	}
	if saved != nil {
		m.adopt(*saved)
		log.Debug().Msg("adopted persisted auth session")
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, config.AnonSessionTimeout)
	defer cancel()

	s, err := m.relay.AnonSession(fetchCtx)
	if err != nil {
		log.Warn().Err(err).Msg("anonymous session request failed")
		return
	}

	if err := m.stateRepo.PutAuthSession(ctx, s); err != nil {
		log.Error().Err(err).Msg("failed to persist auth session")
	}
	m.adopt(s)
	log.Info().Msg("anonymous session established")
}

func (m *Manager) adopt(s model.AuthSession) {
	m.mu.Lock()
	m.creds = s
	m.mu.Unlock()
}

// Credentials returns the adopted session, if any.
func (m *Manager) Credentials() (model.AuthSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, m.creds.Valid()
}

// WaitForCredentials polls at a fixed short interval until credentials
// exist, the ceiling elapses, or ctx is canceled.
func (m *Manager) WaitForCredentials(ctx context.Context, ceiling time.Duration) (model.AuthSession, error) {
	waitCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	var creds model.AuthSession
	op := func() error {
		if c, ok := m.Credentials(); ok {
			creds = c
			return nil
		}
		return errNoCredentials
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(config.AuthWaitPollInterval), waitCtx)
	if err := backoff.Retry(op, b); err != nil {
		if ctx.Err() != nil {
			return model.AuthSession{}, ctx.Err()
		}
		return model.AuthSession{}, ErrAuthWaitExpired
	}
	return creds, nil
}

// AnonymousUserID returns the long-lived legacy identity, generating and
// persisting one on first use.
func (m *Manager) AnonymousUserID(ctx context.Context) (string, error) {
	m.mu.RLock()
	cached := m.userID
	m.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	id, err := m.stateRepo.AnonymousUserID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = newAnonymousUserID()
		if err := m.stateRepo.PutAnonymousUserID(ctx, id); err != nil {
			return "", err
		}
		log.Info().Str("userId", id).Msg("generated anonymous user id")
	}

	m.mu.Lock()
	m.userID = id
	m.mu.Unlock()
	return id, nil
}

func newAnonymousUserID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "web-" + hex.EncodeToString(buf)
}
