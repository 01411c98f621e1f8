package model

// CommandAction is a playback action the receiver understands.
type CommandAction string

const (
	ActionAcestream CommandAction = "acestream"
	ActionPlayURL   CommandAction = "playUrl"
)

// CommandEnvelope is the payload POSTed to /tv/send. For ActionAcestream
// the CID must be set; for ActionPlayURL the URL must be set.
type CommandEnvelope struct {
	DeviceID string        `json:"deviceId"`
	Action   CommandAction `json:"action"`
	CID      string        `json:"cid,omitempty"`
	URL      string        `json:"url,omitempty"`
}

// DeliveryOutcome classifies the result of one delivery attempt.
type DeliveryOutcome string

const (
	// DeliveryDelivered: the receiver acknowledged the command.
	DeliveryDelivered DeliveryOutcome = "delivered"
	// DeliveryUnreachable: accepted by the relay but not acknowledged by
	// the device (HTTP 202). The only retryable outcome.
	DeliveryUnreachable DeliveryOutcome = "unreachable"
	// DeliveryUnauthorized: the pairing was revoked server-side (403/404).
	DeliveryUnauthorized DeliveryOutcome = "unauthorized"
	// DeliveryFailed: terminal failure, no retry path.
	DeliveryFailed DeliveryOutcome = "failed"
)
