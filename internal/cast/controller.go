package cast

import "github.com/acetvpair/tvlink-go/internal/model"

// SessionController is the boundary to the platform casting context.
// The context is owned by the platform layer; this client only requests
// sessions and observes state transitions.
//
// Subscribe returns a disposer. Implementations must tolerate the
// disposer being called exactly once after the subscriber stops caring,
// and must never invoke the callback after disposal.
type SessionController interface {
	// Init prepares the platform context. It is idempotent; an error
	// means casting is unavailable on this client.
	Init() error
	HasSession() bool
	// RequestSession asks the platform to open its device chooser and
	// establish a session. Establishment is asynchronous and reported
	// through subscribed state transitions.
	RequestSession() error
	EndSession() error
	Subscribe(fn func(model.CastSessionState)) (dispose func())
}
