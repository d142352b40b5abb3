package model

import "errors"

var (
	// ErrAuthExpired means the refresh exchange was rejected. Fatal for the
	// current cycle; recoverable once credentials are re-authorized.
	ErrAuthExpired = errors.New("authorization expired")
	// ErrTransport covers network failures and timeouts. Aborts the cycle;
	// the scheduler's next tick retries.
	ErrTransport = errors.New("transport failure")
	// ErrUpstream is a non-200 from a secondary resource. Degrades the
	// affected field only.
	ErrUpstream = errors.New("upstream fault")
	// ErrDecode is a malformed payload, treated like ErrUpstream for the
	// resource it affects.
	ErrDecode = errors.New("decode fault")
)
