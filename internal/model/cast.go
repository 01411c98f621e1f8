package model

// CastSessionState mirrors the platform casting session transitions the
// wake coordinator observes. The session itself is owned by the platform
// layer, not by this client.
type CastSessionState string

const (
	CastSessionStarted     CastSessionState = "started"
	CastSessionResumed     CastSessionState = "resumed"
	CastSessionStartFailed CastSessionState = "start_failed"
	CastSessionEnded       CastSessionState = "ended"
)

// Ready reports whether the state means a session is usable.
func (s CastSessionState) Ready() bool {
	return s == CastSessionStarted || s == CastSessionResumed
}

// Terminal reports whether the state settles a pending wait negatively.
func (s CastSessionState) Terminal() bool {
	return s == CastSessionStartFailed || s == CastSessionEnded
}

// Known reports whether the value is one of the defined transitions.
func (s CastSessionState) Known() bool {
	return s.Ready() || s.Terminal()
}
