package notify

import "context"

// Notifier is the one-way surface the orchestration core uses to request
// presentation-layer feedback.
type Notifier interface {
	Toast(message, variant string)
	OpenPairing()
	ClosePairing()
	PairingState(digits []string, errMessage string, submitting bool)
	DeliveryState(itemKey, state string)
}

// Confirmer asks the user a yes/no question. Implementations must always
// settle: an unanswered prompt resolves false when ctx expires.
type Confirmer interface {
	Confirm(ctx context.Context, text string, onConfirm func()) bool
}

var _ Notifier = (*Broker)(nil)
var _ Confirmer = (*Broker)(nil)
