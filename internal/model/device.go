package model

import "time"

// PairedDevice is the single TV this client is linked to. A record only
// exists after a successful pairing exchange or status re-validation;
// a revoked status check deletes it.
type PairedDevice struct {
	DeviceID   string    `db:"device_id" json:"deviceId"`
	PairedAt   time.Time `db:"paired_at" json:"pairedAt"`
	VerifiedAt time.Time `db:"verified_at" json:"verifiedAt"`
}
