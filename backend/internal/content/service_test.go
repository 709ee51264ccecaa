package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snap-backend/backend/internal/auth"
	"snap-backend/backend/internal/pipeline"
	"snap-backend/backend/internal/store"
	serrors "snap-backend/backend/pkg/errors"
)

type fixture struct {
	svc     *Service
	store   *store.MemoryStore
	creds   auth.Credentials
	ownerID string
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	creds := auth.NewJWTCredentials([]byte("test-secret"), time.Hour, 4)

	owner, err := st.CreateNode(context.Background(), store.KindAccount, store.Record{
		store.KeyUserName: "alice",
		store.KeyContent:  []string{},
	})
	require.NoError(t, err)
	ownerID := store.String(owner, store.KeyID)

	token, err := creds.Sign(ownerID, "alice")
	require.NoError(t, err)

	return &fixture{
		svc:     NewService(st, creds, pipeline.NewRegistry(), pipeline.NewRegistry()),
		store:   st,
		creds:   creds,
		ownerID: ownerID,
		token:   token,
	}
}

func TestCreateText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.CreateText(ctx, f.token, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", store.String(item, store.KeyContentString))
	assert.Equal(t, f.ownerID, store.String(item, store.KeyCreatorID))
	require.NotEmpty(t, store.String(item, store.KeyID))

	// the new item shows up in the creator's content list
	owners, err := f.store.FindNodes(ctx, store.KindAccount, store.Record{store.KeyID: f.ownerID})
	require.NoError(t, err)
	assert.Equal(t, []string{store.String(item, store.KeyID)}, store.Strings(owners[0], store.KeyContent))
}

func TestCreateStructuredPayload(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.Create(context.Background(), f.token, store.Record{
		"title": "first post",
		"body":  "hello world",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "first post", item["title"])
	assert.Equal(t, f.ownerID, store.String(item, store.KeyCreatorID))
}

func TestCreateDerivesCreatorFromToken(t *testing.T) {
	f := newFixture(t)

	// the caller-supplied creatorId is overridden by the authenticated id
	item, err := f.svc.Create(context.Background(), f.token, store.Record{
		store.KeyCreatorID: "someone-else",
		"body":             "x",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, f.ownerID, store.String(item, store.KeyCreatorID))
}

func TestCreateRequiresValidToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage"} {
		_, err := f.svc.CreateText(ctx, token, "hello", nil)
		require.Error(t, err)
		assert.Equal(t, serrors.ErrorTypeAuthenticationFailed, serrors.TypeOf(err))
	}

	// nothing was persisted
	items, err := f.store.FindNodes(ctx, store.KindContent, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateAppliesBuilders(t *testing.T) {
	f := newFixture(t)
	f.svc.builders.Register("stamp", func(rec store.Record) store.Record {
		rec["stamped"] = true
		return rec
	})

	item, err := f.svc.CreateText(context.Background(), f.token, "hello", []string{"stamp"})
	require.NoError(t, err)
	assert.Equal(t, true, item["stamped"])
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateText(ctx, f.token, "one", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateText(ctx, f.token, "two", nil)
	require.NoError(t, err)

	all, err := f.svc.Get(ctx, f.token, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := f.svc.Get(ctx, f.token, store.Record{store.KeyContentString: "one"}, nil)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, store.String(first, store.KeyID), store.String(one[0], store.KeyID))

	_, err = f.svc.Get(ctx, "bad", nil, nil)
	require.Error(t, err)
	assert.Equal(t, serrors.ErrorTypeAuthenticationFailed, serrors.TypeOf(err))
}

func TestGetAppliesReducers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.reducers.Register("short", func(rec store.Record) store.Record {
		delete(rec, "body")
		return rec
	})

	_, err := f.svc.Create(ctx, f.token, store.Record{"title": "t", "body": "long text"}, nil)
	require.NoError(t, err)

	out, err := f.svc.Get(ctx, f.token, nil, []string{"short"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotContains(t, out[0], "body")
	assert.Equal(t, "t", out[0]["title"])
}

func TestUpdateInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.CreateText(ctx, f.token, "before", nil)
	require.NoError(t, err)
	id := store.String(item, store.KeyID)

	updated, err := f.svc.Update(ctx, f.token, store.Record{
		store.KeyID:            id,
		store.KeyContentString: "after",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, id, store.String(updated, store.KeyID))
	assert.Equal(t, "after", store.String(updated, store.KeyContentString))

	// no second record was created
	all, err := f.store.FindNodes(ctx, store.KindContent, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateReplacesPayloadWholesale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, f.token, store.Record{"title": "draft", "body": "long text"}, nil)
	require.NoError(t, err)
	id := store.String(item, store.KeyID)

	updated, err := f.svc.Update(ctx, f.token, store.Record{
		store.KeyID: id,
		"title":     "final",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "final", updated["title"])
	assert.NotContains(t, updated, "body")
	assert.Equal(t, id, store.String(updated, store.KeyID))
	assert.Equal(t, f.ownerID, store.String(updated, store.KeyCreatorID))

	// fields absent from the new payload are gone from the store too
	stored, err := f.store.FindNodes(ctx, store.KindContent, store.Record{store.KeyID: id})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotContains(t, stored[0], "body")
}

func TestUpdateFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.token, store.Record{store.KeyContentString: "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, serrors.ErrorTypeInvalidInput, serrors.TypeOf(err))

	_, err = f.svc.Update(ctx, f.token, store.Record{store.KeyID: "missing"}, nil)
	require.Error(t, err)
	assert.Equal(t, serrors.ErrorTypeNotFound, serrors.TypeOf(err))

	_, err = f.svc.Update(ctx, "bad-token", store.Record{store.KeyID: "whatever"}, nil)
	require.Error(t, err)
	assert.Equal(t, serrors.ErrorTypeAuthenticationFailed, serrors.TypeOf(err))
}
