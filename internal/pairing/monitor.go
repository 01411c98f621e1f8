package pairing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/session"
	"github.com/acetvpair/tvlink-go/internal/store"
)

// StatusClient is the slice of the relay client the monitor needs.
type StatusClient interface {
	Status(ctx context.Context, auth model.AuthSession, deviceID string) error
}

// Monitor re-validates the persisted pairing against the relay. A new
// check supersedes an in-flight one: the older check is canceled and
// only the winning check may mutate persisted state.
type Monitor struct {
	stateRepo store.StateRepository
	sessions  *session.Manager
	relay     StatusClient
	authWait  time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewMonitor(
	stateRepo store.StateRepository,
	sessions *session.Manager,
	relayClient StatusClient,
	authWait time.Duration,
) *Monitor {
	return &Monitor{
		stateRepo: stateRepo,
		sessions:  sessions,
		relay:     relayClient,
		authWait:  authWait,
	}
}

// CheckPaired reports whether the persisted pairing is still authorized.
// Revocation (403/404) deletes the record; every other failure is
// conservative and leaves it in place for a later retry.
func (m *Monitor) CheckPaired(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.gen++
	myGen := m.gen
	if m.cancel != nil {
		m.cancel()
	}
	checkCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	defer cancel()

	device, err := m.stateRepo.PairedDevice(checkCtx)
	if err != nil {
		return false, apperrors.Store(err)
	}
	if device == nil {
		return false, nil
	}

	auth, err := m.sessions.WaitForCredentials(checkCtx, m.authWait)
	if err != nil {
		// Credentials never arrived, or a newer check superseded this
		// one. Assume still paired; persisted state stays untouched.
		log.Debug().Err(err).Msg("pairing check abandoned before status call")
		return true, nil
	}

	statusErr := m.relay.Status(checkCtx, auth, device.DeviceID)

	switch {
	case statusErr == nil:
		if m.wins(myGen, checkCtx) {
			device.VerifiedAt = time.Now()
			if err := m.stateRepo.PutPairedDevice(ctx, *device); err != nil {
				log.Error().Err(err).Msg("failed to record pairing re-validation")
			}
		}
		return true, nil

	case apperrors.IsCode(statusErr, apperrors.ErrCodePairingRevoked):
		if !m.wins(myGen, checkCtx) {
			return true, nil
		}
		if err := m.stateRepo.DeletePairedDevice(ctx); err != nil {
			return false, apperrors.Store(err)
		}
		log.Info().Str("deviceId", device.DeviceID).Msg("pairing revoked server-side, cleared")
		return false, nil

	case apperrors.IsCode(statusErr, apperrors.ErrCodeCanceled):
		// Superseded mid-flight: report whatever is persisted, mutate nothing.
		current, err := m.stateRepo.PairedDevice(ctx)
		if err != nil {
			return false, apperrors.Store(err)
		}
		return current != nil, nil

	default:
		log.Debug().Err(statusErr).Msg("pairing status check inconclusive, assuming still paired")
		return true, nil
	}
}

// wins reports whether this check is still the latest one and was not
// canceled. Only a winning check may mutate persisted state.
func (m *Monitor) wins(gen uint64, ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}
