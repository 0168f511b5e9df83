package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/powerforge/internal/hero"
	"github.com/cory-johannsen/powerforge/internal/storage/postgres"
	"github.com/cory-johannsen/powerforge/internal/testutil"
)

func newRepository(t *testing.T) (*postgres.HeroRepository, *testutil.PostgresContainer) {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewHeroRepository(pc.RawPool), pc
}

func TestHeroRepository(t *testing.T) {
	repo, pc := newRepository(t)
	ctx := context.Background()

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, pc.Pool.Health(ctx, 5*time.Second))
	})

	t.Run("put and get", func(t *testing.T) {
		h := hero.New("Colossus")
		h.Powers.Add("Fastball Special")
		h.Powers.Add("Mighty Leap")
		h.Traits.Add("Big Hands")
		require.NoError(t, repo.Put(ctx, h))

		got, err := repo.Get(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	})

	t.Run("empty selections", func(t *testing.T) {
		h := hero.New("Blank")
		require.NoError(t, repo.Put(ctx, h))
		got, err := repo.Get(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	})

	t.Run("put replaces", func(t *testing.T) {
		h := hero.New("Piotr")
		h.Powers.Add("Fastball Special")
		require.NoError(t, repo.Put(ctx, h))

		h.Name = "Colossus II"
		h.Powers.Remove("Fastball Special")
		h.Traits.Add("Big Hands")
		require.NoError(t, repo.Put(ctx, h))

		got, err := repo.Get(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, hero.ErrHeroNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		h := hero.New("Doomed")
		require.NoError(t, repo.Put(ctx, h))
		require.NoError(t, repo.Delete(ctx, h.ID))
		_, err := repo.Get(ctx, h.ID)
		assert.ErrorIs(t, err, hero.ErrHeroNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, h.ID), hero.ErrHeroNotFound)
	})

	t.Run("list ordered by name", func(t *testing.T) {
		heroes, err := repo.List(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, heroes)
		for i := 1; i < len(heroes); i++ {
			assert.LessOrEqual(t, heroes[i-1].Name, heroes[i].Name)
		}
	})

	t.Run("property round trip", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			h := hero.New(rapid.StringMatching(`[A-Z][a-z]{1,12}`).Draw(rt, "name"))
			for _, id := range rapid.SliceOf(rapid.StringMatching(`[A-Z][a-z]{2,8}( [A-Z][a-z]{2,8})?`)).Draw(rt, "powers") {
				h.Powers.Add(id)
			}
			require.NoError(rt, repo.Put(ctx, h))
			got, err := repo.Get(ctx, h.ID)
			require.NoError(rt, err)
			assert.Equal(rt, h, got)
		})
	})
}

func TestHeroRepository_SchemaMissing(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	repo := postgres.NewHeroRepository(pc.RawPool)
	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, postgres.ErrSchemaMissing)
}

func TestHeroRepository_PutRequiresID(t *testing.T) {
	repo := postgres.NewHeroRepository(nil)
	err := repo.Put(context.Background(), &hero.Hero{Name: "No ID"})
	assert.Error(t, err)
}
