package credstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosaz/destiny2-ha/internal/model"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleRecord() *Record {
	created := time.Date(2019, 10, 1, 9, 0, 0, 0, time.UTC)
	return &Record{
		Credential: model.Credential{
			APIKey:       "api-key",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC),
		},
		Identity: model.AccountIdentity{
			MembershipID:   "4611686018467260757",
			MembershipType: -1,
			DisplayName:    "Guardian",
			GlobalName:     "Guardian#1234",
			CreatedAt:      &created,
		},
	}
}

func TestSQLiteStore_LoadBeforeLink(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Load(context.Background())
	assert.True(t, errors.Is(err, ErrNotLinked))
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()

	require.NoError(t, st.Save(ctx, rec))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.Credential.AccessToken, got.Credential.AccessToken)
	assert.Equal(t, rec.Credential.RefreshToken, got.Credential.RefreshToken)
	assert.True(t, rec.Credential.ExpiresAt.Equal(got.Credential.ExpiresAt))
	assert.Equal(t, rec.Identity.MembershipID, got.Identity.MembershipID)
	assert.Equal(t, -1, got.Identity.MembershipType)
	require.NotNil(t, got.Identity.CreatedAt)
	assert.True(t, rec.Identity.CreatedAt.Equal(*got.Identity.CreatedAt))
}

func TestSQLiteStore_SaveIsIdempotentMerge(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()

	require.NoError(t, st.Save(ctx, rec))
	// Saving the same record again must be harmless.
	require.NoError(t, st.Save(ctx, rec))

	// A refresh replaces token fields and preserves the rest.
	rec.Credential.AccessToken = "access-2"
	rec.Credential.RefreshToken = "refresh-2"
	rec.Credential.ExpiresAt = rec.Credential.ExpiresAt.Add(time.Hour)
	require.NoError(t, st.Save(ctx, rec))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.Credential.AccessToken)
	assert.Equal(t, "api-key", got.Credential.APIKey)
	assert.Equal(t, "Guardian#1234", got.Identity.GlobalName)
}

func TestSQLiteStore_NilCreatedAt(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()
	rec.Identity.CreatedAt = nil

	require.NoError(t, st.Save(ctx, rec))
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.Identity.CreatedAt)
}
