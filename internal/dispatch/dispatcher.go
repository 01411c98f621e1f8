package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/cast"
	"github.com/acetvpair/tvlink-go/internal/config"
	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/notify"
	"github.com/acetvpair/tvlink-go/internal/relay"
	"github.com/acetvpair/tvlink-go/internal/session"
	"github.com/acetvpair/tvlink-go/internal/store"
)

// Delivery lifecycle states published per result item.
const (
	StateSending   = "sending"
	StateDelivered = "delivered"
	StateFailed    = "failed"
	StateIdle      = "idle"
)

// SendClient is the slice of the relay client the dispatcher needs.
type SendClient interface {
	Send(ctx context.Context, auth model.AuthSession, env model.CommandEnvelope) (relay.SendResult, error)
}

// PairingOpener reopens the pairing entry flow. Opening resets the digit
// buffer, so a revoked send drops the user into a clean dialog.
type PairingOpener interface {
	Open()
}

// Timing groups the dispatcher's delay and ceiling knobs.
type Timing struct {
	CastReadyTimeout time.Duration
	RetrySettle      time.Duration
	CastCloseDelay   time.Duration
}

// Dispatcher sends a single playback command to the paired device. The
// only recovery it knows is the cast-wake path: one confirmation, one
// wake, one retry, then a terminal outcome either way.
type Dispatcher struct {
	stateRepo   store.StateRepository
	sessions    *session.Manager
	relay       SendClient
	notifier    notify.Notifier
	confirmer   notify.Confirmer
	pairing     PairingOpener
	coordinator *cast.Coordinator
	timing      Timing
}

func NewDispatcher(
	stateRepo store.StateRepository,
	sessions *session.Manager,
	relayClient SendClient,
	notifier notify.Notifier,
	confirmer notify.Confirmer,
	pairingOpener PairingOpener,
	coordinator *cast.Coordinator,
	timing Timing,
) *Dispatcher {
	return &Dispatcher{
		stateRepo:   stateRepo,
		sessions:    sessions,
		relay:       relayClient,
		notifier:    notifier,
		confirmer:   confirmer,
		pairing:     pairingOpener,
		coordinator: coordinator,
		timing:      timing,
	}
}

// Send dispatches the stream behind rawLink to the paired TV. itemKey
// identifies the result item so the UI can track its pending state.
func (d *Dispatcher) Send(ctx context.Context, itemKey, rawLink string) error {
	device, err := d.stateRepo.PairedDevice(ctx)
	if err != nil {
		return apperrors.Store(err)
	}
	if device == nil {
		d.pairing.Open()
		return apperrors.NotPaired()
	}

	cid, ok := ExtractCID(rawLink)
	if !ok {
		d.notifier.Toast("Could not extract a content id from this link", notify.VariantError)
		return apperrors.InvalidCID()
	}

	env := model.CommandEnvelope{
		DeviceID: device.DeviceID,
		Action:   model.ActionAcestream,
		CID:      cid,
	}
	return d.deliver(ctx, itemKey, env)
}

// SendURL dispatches a direct-playback URL instead of a content id.
func (d *Dispatcher) SendURL(ctx context.Context, itemKey, url string) error {
	device, err := d.stateRepo.PairedDevice(ctx)
	if err != nil {
		return apperrors.Store(err)
	}
	if device == nil {
		d.pairing.Open()
		return apperrors.NotPaired()
	}
	if url == "" {
		return apperrors.MissingRequired("url")
	}

	env := model.CommandEnvelope{
		DeviceID: device.DeviceID,
		Action:   model.ActionPlayURL,
		URL:      url,
	}
	return d.deliver(ctx, itemKey, env)
}

// deliver runs the explicit two-state sequence: one direct attempt, and
// on the single retryable outcome an optional cast wake followed by
// exactly one more attempt.
func (d *Dispatcher) deliver(ctx context.Context, itemKey string, env model.CommandEnvelope) error {
	d.notifier.DeliveryState(itemKey, StateSending)

	outcome, reason, err := d.attempt(ctx, env)
	switch {
	case err != nil:
		return d.fail(itemKey, err)

	case outcome == model.DeliveryDelivered:
		d.notifier.DeliveryState(itemKey, StateDelivered)
		d.notifier.Toast("Sent to the TV!", notify.VariantSuccess)
		return nil

	case outcome == model.DeliveryUnauthorized:
		return d.revoked(ctx, itemKey, env.DeviceID)

	case outcome == model.DeliveryUnreachable:
		return d.wakeAndRetry(ctx, itemKey, env, reason)

	default:
		return d.fail(itemKey, apperrors.DeliveryFailed(""))
	}
}

func (d *Dispatcher) wakeAndRetry(ctx context.Context, itemKey string, env model.CommandEnvelope, reason string) error {
	log.Info().Str("deviceId", env.DeviceID).Str("reason", reason).Msg("device unreachable, offering cast wake")

	if !d.confirmWake(ctx) {
		// Declined: no further network call, no error shown.
		d.notifier.DeliveryState(itemKey, StateIdle)
		return nil
	}

	// The coordinator must get a chance to release any session it opened
	// no matter how the retry ends.
	defer func() {
		go d.coordinator.CloseIfOwned(d.timing.CastCloseDelay)
	}()

	if !d.coordinator.WaitForReady(ctx, d.timing.CastReadyTimeout) {
		d.notifier.Toast("Could not connect via cast", notify.VariantError)
		d.notifier.DeliveryState(itemKey, StateFailed)
		return apperrors.CastUnavailable()
	}

	// Let the receiver finish its power/input handshake before retrying.
	select {
	case <-time.After(d.timing.RetrySettle):
	case <-ctx.Done():
		return d.fail(itemKey, apperrors.Canceled())
	}

	outcome, retryReason, err := d.attempt(ctx, env)
	switch {
	case err != nil:
		return d.fail(itemKey, err)
	case outcome == model.DeliveryDelivered:
		d.notifier.DeliveryState(itemKey, StateDelivered)
		d.notifier.Toast("Sent to the TV!", notify.VariantSuccess)
		return nil
	case outcome == model.DeliveryUnauthorized:
		return d.revoked(ctx, itemKey, env.DeviceID)
	case outcome == model.DeliveryUnreachable:
		// The retry is the last attempt; unreachable is now terminal.
		return d.fail(itemKey, apperrors.DeviceUnreachable(retryReason))
	default:
		return d.fail(itemKey, apperrors.DeliveryFailed(""))
	}
}

// attempt performs one delivery and normalizes the transport outcome.
func (d *Dispatcher) attempt(ctx context.Context, env model.CommandEnvelope) (model.DeliveryOutcome, string, error) {
	auth, _ := d.sessions.Credentials()

	result, err := d.relay.Send(ctx, auth, env)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeCanceled) {
			return model.DeliveryFailed, "", err
		}
		return model.DeliveryFailed, "", apperrors.Wrap(apperrors.ErrCodeDeliveryFailed, "Send failed", err)
	}
	return result.Outcome, result.Reason, nil
}

// confirmWake asks the user before opening a casting session. A stored
// auto-wake preference substitutes for the prompt; either way the
// chooser opens only after an affirmative answer.
func (d *Dispatcher) confirmWake(ctx context.Context) bool {
	autoWake, err := d.stateRepo.AutoWake(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read auto-wake preference")
	}
	if autoWake {
		return d.coordinator.OpenChooser()
	}

	promptCtx, cancel := context.WithTimeout(ctx, config.ConfirmPromptTimeout)
	defer cancel()

	return d.confirmer.Confirm(promptCtx,
		"No quick answer from the TV. Try waking it via cast and retry?",
		func() { d.coordinator.OpenChooser() },
	)
}

func (d *Dispatcher) revoked(ctx context.Context, itemKey, deviceID string) error {
	if err := d.stateRepo.DeletePairedDevice(ctx); err != nil {
		log.Error().Err(err).Msg("failed to clear revoked pairing")
	}
	d.notifier.DeliveryState(itemKey, StateFailed)
	d.pairing.Open()
	d.notifier.Toast("TV is no longer linked", notify.VariantWarn)
	log.Info().Str("deviceId", deviceID).Msg("pairing revoked during send, cleared")
	return apperrors.PairingRevoked()
}

func (d *Dispatcher) fail(itemKey string, err error) error {
	if apperrors.IsCode(err, apperrors.ErrCodeCanceled) {
		// Aborted calls are silent: no toast, no failed state.
		d.notifier.DeliveryState(itemKey, StateIdle)
		return err
	}
	d.notifier.DeliveryState(itemKey, StateFailed)
	message := "Send failed"
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.Message != "" {
		message = appErr.Message
	}
	d.notifier.Toast(message, notify.VariantError)
	return err
}
