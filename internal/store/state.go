package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acetvpair/tvlink-go/internal/model"
)

// State keys. Each key holds one JSON-encoded value; the keys are
// independent and need no transactional consistency with each other.
const (
	keyAuthSession  = "auth_session"
	keyAnonUserID   = "anonymous_user_id"
	keyPairedDevice = "paired_device"
	keyAutoWake     = "auto_wake_cast"
	keyDisplayPref  = "display_pref"
)

// StateRepository is the durable client-side key/value store: the
// anonymous identity, the paired device and the user preferences that
// the original web client kept in cookies and local storage.
type StateRepository interface {
	AuthSession(ctx context.Context) (*model.AuthSession, error)
	PutAuthSession(ctx context.Context, s model.AuthSession) error

	AnonymousUserID(ctx context.Context) (string, error)
	PutAnonymousUserID(ctx context.Context, id string) error

	PairedDevice(ctx context.Context) (*model.PairedDevice, error)
	PutPairedDevice(ctx context.Context, d model.PairedDevice) error
	DeletePairedDevice(ctx context.Context) error

	AutoWake(ctx context.Context) (bool, error)
	PutAutoWake(ctx context.Context, on bool) error

	DisplayPref(ctx context.Context) (string, error)
	PutDisplayPref(ctx context.Context, pref string) error
}

type stateRepo struct {
	db *sqlx.DB
}

func NewStateRepository(db *sqlx.DB) StateRepository {
	return &stateRepo{db: db}
}

func (r *stateRepo) get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := r.db.GetContext(ctx, &raw, `
		SELECT value FROM client_state WHERE key = ?
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *stateRepo) put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO client_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), time.Now().UTC())
	return err
}

func (r *stateRepo) delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key)
	return err
}

func (r *stateRepo) AuthSession(ctx context.Context) (*model.AuthSession, error) {
	var s model.AuthSession
	ok, err := r.get(ctx, keyAuthSession, &s)
	if err != nil || !ok {
		return nil, err
	}
	// Absent or both-present: never adopt a half-written session.
	if !s.Valid() {
		return nil, nil
	}
	return &s, nil
}

func (r *stateRepo) PutAuthSession(ctx context.Context, s model.AuthSession) error {
	return r.put(ctx, keyAuthSession, s)
}

func (r *stateRepo) AnonymousUserID(ctx context.Context) (string, error) {
	var id string
	ok, err := r.get(ctx, keyAnonUserID, &id)
	if err != nil || !ok {
		return "", err
	}
	return id, nil
}

func (r *stateRepo) PutAnonymousUserID(ctx context.Context, id string) error {
	return r.put(ctx, keyAnonUserID, id)
}

func (r *stateRepo) PairedDevice(ctx context.Context) (*model.PairedDevice, error) {
	var d model.PairedDevice
	ok, err := r.get(ctx, keyPairedDevice, &d)
	if err != nil || !ok {
		return nil, err
	}
	if d.DeviceID == "" {
		return nil, nil
	}
	return &d, nil
}

func (r *stateRepo) PutPairedDevice(ctx context.Context, d model.PairedDevice) error {
	return r.put(ctx, keyPairedDevice, d)
}

func (r *stateRepo) DeletePairedDevice(ctx context.Context) error {
	return r.delete(ctx, keyPairedDevice)
}

func (r *stateRepo) AutoWake(ctx context.Context) (bool, error) {
	var on bool
	ok, err := r.get(ctx, keyAutoWake, &on)
	if err != nil || !ok {
		return false, err
	}
	return on, nil
}

func (r *stateRepo) PutAutoWake(ctx context.Context, on bool) error {
	return r.put(ctx, keyAutoWake, on)
}

func (r *stateRepo) DisplayPref(ctx context.Context) (string, error) {
	var pref string
	ok, err := r.get(ctx, keyDisplayPref, &pref)
	if err != nil || !ok {
		return "", err
	}
	return pref, nil
}

func (r *stateRepo) PutDisplayPref(ctx context.Context, pref string) error {
	return r.put(ctx, keyDisplayPref, pref)
}
