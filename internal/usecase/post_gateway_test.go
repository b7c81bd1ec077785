package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/usecase"
)

func TestPostGateway_InsertResults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakePostRepo()
	g := usecase.NewPostGateway(repo, testLogger(t), newMetrics())

	assert.False(t, g.Exists(ctx, "a"))
	assert.Equal(t, entity.Inserted, g.Insert(ctx, &entity.Post{Link: "a", Content: "first"}))
	assert.True(t, g.Exists(ctx, "a"))
	assert.Equal(t, entity.Duplicate, g.Insert(ctx, &entity.Post{Link: "a", Content: "second"}))
	assert.Equal(t, "first", repo.get("a").Content)

	repo.failInsert = errors.New("locked")
	res := g.Insert(ctx, &entity.Post{Link: "b"})
	assert.Equal(t, entity.StorageError, res)
	assert.False(t, res.Saved())
	assert.True(t, entity.Inserted.Saved())
	assert.False(t, entity.Duplicate.Saved())
}

func TestPostGateway_MarkProcessedIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakePostRepo("a", "b")
	g := usecase.NewPostGateway(repo, testLogger(t), newMetrics())

	g.MarkProcessed(ctx, "a")
	g.MarkProcessed(ctx, "a")

	assert.True(t, repo.get("a").Processed)
	assert.Equal(t, []string{"b"}, g.ListUnprocessed(ctx))
}

func TestPostGateway_SafeDefaultsOnStorageError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakePostRepo("a")
	repo.failAll = errors.New("database is locked")
	g := usecase.NewPostGateway(repo, testLogger(t), newMetrics())

	assert.False(t, g.Exists(ctx, "a"))
	assert.Equal(t, entity.StorageError, g.Insert(ctx, &entity.Post{Link: "b"}))
	assert.NotPanics(t, func() { g.MarkProcessed(ctx, "a") })
	assert.Equal(t, []string{}, g.ListUnprocessed(ctx))
	_, err := g.GetStatus(ctx, "a")
	assert.Error(t, err)
	assert.Error(t, g.Ping(ctx))
}

func TestPostGateway_GetStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakePostRepo()
	g := usecase.NewPostGateway(repo, testLogger(t), newMetrics())

	require.Equal(t, entity.Inserted, g.Insert(ctx, &entity.Post{
		Link:           "a",
		AbsoluteDate:   "03/04/25, 13:30",
		ServiceRequest: entity.ServiceRequestYes,
	}))

	st, err := g.GetStatus(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, usecase.StatusUnprocessed, st.CurrentStatus)
	assert.Equal(t, entity.ServiceRequestYes, st.ServiceRequest)
	assert.Equal(t, "03/04/25, 13:30", st.Date)

	g.MarkProcessed(ctx, "a")
	st, err = g.GetStatus(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, usecase.StatusProcessed, st.CurrentStatus)

	st, err = g.GetStatus(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, usecase.StatusNotFound, st.CurrentStatus)
}
