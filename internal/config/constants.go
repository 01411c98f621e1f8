package config

import "time"

// HTTP server timeouts for the local gateway
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 10 * time.Second
)

// Relay backend call timeouts
const (
	RelayRequestTimeout = 15 * time.Second
	AnonSessionTimeout  = 10 * time.Second
)

// Database ping timeout for startup checks
const DBPingTimeout = 5 * time.Second

// AuthWaitPollInterval is how often the pairing status monitor re-checks
// for credentials while waiting for the anonymous session to arrive.
const AuthWaitPollInterval = 100 * time.Millisecond

// ConfirmPromptTimeout bounds how long the dispatcher waits for the
// user to answer the wake prompt. No answer counts as a decline.
const ConfirmPromptTimeout = 30 * time.Second

// Pairing code length shown on the TV
const PairCodeDigits = 6
