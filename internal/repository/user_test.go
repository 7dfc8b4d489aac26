package repository

import (
	"context"
	"testing"

	"weave/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		user := &models.User{Email: "first@e.com", Password: "pw"}
		require.NoError(t, repo.Create(ctx, user))
		assert.NotZero(t, user.ID)

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)

		byEmail, err := repo.GetByEmail(ctx, "first@e.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("DuplicateEmailIsConflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Email: "first@e.com", Password: "pw"})
		require.Error(t, err)
		assert.Equal(t, models.CodeConflict, appErrorCode(t, err))
	})

	t.Run("GetMissingIsNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999999)
		require.Error(t, err)
		assert.Equal(t, models.CodeNotFound, appErrorCode(t, err))

		_, err = repo.GetByEmail(ctx, "nobody@e.com")
		require.Error(t, err)
		assert.Equal(t, models.CodeNotFound, appErrorCode(t, err))
	})

	t.Run("UpdatePersistsProfileChanges", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "first@e.com")
		require.NoError(t, err)

		profession := "Engineer"
		user.Profession = &profession
		require.NoError(t, repo.Update(ctx, user))

		reloaded, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.Profession)
		assert.Equal(t, "Engineer", *reloaded.Profession)
	})

	t.Run("GetByIDs", func(t *testing.T) {
		second := &models.User{Email: "second@e.com", Password: "pw"}
		require.NoError(t, repo.Create(ctx, second))

		none, err := repo.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)

		first, err := repo.GetByEmail(ctx, "first@e.com")
		require.NoError(t, err)

		users, err := repo.GetByIDs(ctx, []uint{first.ID, second.ID, 999999})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("ListOthersExcludesAndCaps", func(t *testing.T) {
		third := &models.User{Email: "third@e.com", Password: "pw"}
		require.NoError(t, repo.Create(ctx, third))

		first, err := repo.GetByEmail(ctx, "first@e.com")
		require.NoError(t, err)

		others, err := repo.ListOthers(ctx, first.ID, 0)
		require.NoError(t, err)
		require.Len(t, others, 2)
		for _, u := range others {
			assert.NotEqual(t, first.ID, u.ID)
		}
		// Deterministic ascending order for the fallback scan.
		assert.Less(t, others[0].ID, others[1].ID)

		capped, err := repo.ListOthers(ctx, first.ID, 1)
		require.NoError(t, err)
		assert.Len(t, capped, 1)
	})

	t.Run("ListPaginates", func(t *testing.T) {
		page, err := repo.List(ctx, 2, 0)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := repo.List(ctx, 2, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}
