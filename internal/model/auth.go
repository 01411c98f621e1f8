package model

// AuthSession is the anonymous signed identity returned by /auth/anon.
// It is either fully populated or absent; a partially populated session
// is never persisted.
type AuthSession struct {
	UID string `db:"uid" json:"uid"`
	Sig string `db:"sig" json:"sig"`
}

func (s AuthSession) Valid() bool {
	return s.UID != "" && s.Sig != ""
}
