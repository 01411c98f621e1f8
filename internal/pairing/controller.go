package pairing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/config"
	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/notify"
	"github.com/acetvpair/tvlink-go/internal/relay"
	"github.com/acetvpair/tvlink-go/internal/session"
	"github.com/acetvpair/tvlink-go/internal/store"
)

// PairClient is the slice of the relay client the controller needs.
type PairClient interface {
	Pair(ctx context.Context, auth model.AuthSession, code, userID string) (string, error)
	Unlink(ctx context.Context, auth model.AuthSession, deviceID string) (relay.UnlinkOutcome, error)
}

// Controller turns a 6-digit code shown on the TV into a durable device
// pairing. It owns the digit entry buffer and guarantees at most one
// submission in flight.
type Controller struct {
	stateRepo     store.StateRepository
	sessions      *session.Manager
	relay         PairClient
	notifier      notify.Notifier
	unlinkTimeout time.Duration

	mu         sync.Mutex
	digits     [config.PairCodeDigits]string
	submitting bool
}

func NewController(
	stateRepo store.StateRepository,
	sessions *session.Manager,
	relayClient PairClient,
	notifier notify.Notifier,
	unlinkTimeout time.Duration,
) *Controller {
	return &Controller{
		stateRepo:     stateRepo,
		sessions:      sessions,
		relay:         relayClient,
		notifier:      notifier,
		unlinkTimeout: unlinkTimeout,
	}
}

// Open resets the entry buffer and asks the UI to show the pairing
// modal with focus on the first slot.
func (c *Controller) Open() {
	c.mu.Lock()
	c.digits = [config.PairCodeDigits]string{}
	submitting := c.submitting
	c.mu.Unlock()

	c.notifier.OpenPairing()
	c.notifier.PairingState(c.digitsSlice(), "", submitting)
}

// SetDigit writes user input into the buffer starting at index. The
// input may be a single keystroke or a pasted run of characters;
// non-digits are stripped. Entry is ignored entirely while a submission
// is in flight. When the buffer becomes fully populated the code is
// submitted automatically.
func (c *Controller) SetDigit(ctx context.Context, index int, raw string) error {
	if index < 0 || index >= config.PairCodeDigits {
		return apperrors.ValidationError("digit index out of range")
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil
	}

	only := stripNonDigits(raw)
	if only == "" {
		c.digits[index] = ""
	} else {
		for i := 0; i < len(only) && index+i < config.PairCodeDigits; i++ {
			c.digits[index+i] = string(only[i])
		}
	}
	code, complete := c.codeLocked()
	c.mu.Unlock()

	c.notifier.PairingState(c.digitsSlice(), "", false)

	if complete {
		err := c.Submit(ctx, code)
		if apperrors.IsCode(err, apperrors.ErrCodeSubmitInFlight) {
			// Another keystroke completed the buffer first and its
			// submission is already running; this one has nothing to add.
			return nil
		}
		return err
	}
	return nil
}

// Submit exchanges the code for a device id. A call made while another
// submission is in flight is rejected without touching the in-flight one.
func (c *Controller) Submit(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if len(code) != config.PairCodeDigits || stripNonDigits(code) != code {
		return apperrors.ValidationError("pair code must be 6 digits")
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return apperrors.SubmissionInFlight()
	}
	c.submitting = true
	c.mu.Unlock()

	c.notifier.PairingState(c.digitsSlice(), "", true)

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	// Missing credentials degrade to empty headers and a server-side
	// rejection, same as any other invalid submission.
	auth, _ := c.sessions.Credentials()

	userID, err := c.sessions.AnonymousUserID(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve anonymous user id")
	}

	deviceID, err := c.relay.Pair(ctx, auth, code, userID)
	if err != nil {
		message := "Invalid or expired code"
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Message != "" {
			message = appErr.Message
		}
		c.resetDigits(message)
		log.Warn().Err(err).Msg("pairing submission rejected")
		return err
	}

	now := time.Now()
	if err := c.stateRepo.PutPairedDevice(ctx, model.PairedDevice{
		DeviceID:   deviceID,
		PairedAt:   now,
		VerifiedAt: now,
	}); err != nil {
		c.resetDigits("Could not save the pairing, try again")
		return apperrors.Store(err)
	}

	c.mu.Lock()
	c.digits = [config.PairCodeDigits]string{}
	c.mu.Unlock()

	c.notifier.ClosePairing()
	log.Info().Str("deviceId", deviceID).Msg("tv paired")
	return nil
}

// Unlink releases the current pairing. Server answers that mean the
// pairing is already gone (404, 403) still clear the local record.
func (c *Controller) Unlink(ctx context.Context) error {
	device, err := c.stateRepo.PairedDevice(ctx)
	if err != nil {
		return apperrors.Store(err)
	}
	if device == nil {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.unlinkTimeout)
	defer cancel()

	auth, _ := c.sessions.Credentials()

	outcome, err := c.relay.Unlink(reqCtx, auth, device.DeviceID)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			c.notifier.Toast("Timed out while unlinking", notify.VariantError)
		} else if appErr, ok := apperrors.AsAppError(err); ok {
			c.notifier.Toast(appErr.Message, notify.VariantError)
		} else {
			c.notifier.Toast("Network error while unlinking", notify.VariantError)
		}
		return err
	}

	switch outcome {
	case relay.UnlinkOK:
		c.notifier.Toast("TV unlinked", notify.VariantSuccess)
	case relay.UnlinkNotFound:
		c.notifier.Toast("TV not found: treated as already unlinked", notify.VariantWarn)
	case relay.UnlinkForbidden:
		c.notifier.Toast("Access revoked: TV removed from this client", notify.VariantWarn)
	}

	if err := c.stateRepo.DeletePairedDevice(ctx); err != nil {
		return apperrors.Store(err)
	}
	log.Info().Str("deviceId", device.DeviceID).Str("outcome", string(outcome)).Msg("tv unlinked")
	return nil
}

// Digits returns a copy of the current entry buffer.
func (c *Controller) Digits() []string {
	return c.digitsSlice()
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

func (c *Controller) resetDigits(errMessage string) {
	c.mu.Lock()
	c.digits = [config.PairCodeDigits]string{}
	c.mu.Unlock()
	c.notifier.PairingState(c.digitsSlice(), errMessage, false)
}

func (c *Controller) digitsSlice() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, config.PairCodeDigits)
	copy(out, c.digits[:])
	return out
}

// codeLocked joins the buffer and reports whether every slot is filled.
// Caller must hold c.mu.
func (c *Controller) codeLocked() (string, bool) {
	var b strings.Builder
	for _, d := range c.digits {
		if d == "" {
			return "", false
		}
		b.WriteString(d)
	}
	return b.String(), true
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
