// Package credstore persists the linked account's credential and identity.
// It is the write-through target of the token lifecycle: Save must be
// durable before a refreshed token is used, and is idempotent so repeated
// saves with the same values are harmless.
package credstore

import (
	"context"
	"errors"

	"github.com/mythosaz/destiny2-ha/internal/model"
)

// ErrNotLinked means no account has completed authorization yet.
var ErrNotLinked = errors.New("no linked account")

// Record is the durable state for one linked account.
type Record struct {
	Credential model.Credential
	Identity   model.AccountIdentity
}

// Store exposes persistence operations for the single linked account.
// Implementations live under this package per driver (sqlite, postgres).
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Close() error
}
