package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/filetrack-api/internal/domain/model"
	"github.com/target/filetrack-api/internal/testutil"
)

func TestSettingsRepo_TagsAndPath(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db)
		ctx := context.Background()

		require.NoError(t, repo.ApplyTagChanges(ctx, model.TagChanges{Add: []model.Tag{
			{ID: "customer", Name: "Customer", Mandatory: true},
			{ID: "year", Name: "Year"},
		}}))

		tags, err := repo.ListTags(ctx)
		require.NoError(t, err)
		assert.Len(t, tags, 2)

		require.NoError(t, repo.ReplacePathSchema(ctx, []model.PathMember{
			{ID: "year", Order: 1}, {ID: "customer", Order: 0},
		}))
		schema, err := repo.GetPathSchema(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.PathMember{{ID: "customer", Order: 0}, {ID: "year", Order: 1}}, schema)

		err = repo.ApplyTagChanges(ctx, model.TagChanges{Delete: []model.Tag{{ID: "year"}}})
		require.ErrorIs(t, err, ErrTagInUse)

		err = repo.ReplacePathSchema(ctx, []model.PathMember{{ID: "ghost", Order: 0}})
		require.ErrorIs(t, err, ErrUnknownPathTag)

		schema, err = repo.GetPathSchema(ctx)
		require.NoError(t, err)
		assert.Len(t, schema, 2, "failed replace must roll back")

		require.NoError(t, repo.ApplyTagChanges(ctx, model.TagChanges{
			Update: []model.Tag{{ID: "year", Name: "Fiscal year", Mandatory: true}},
		}))
		tag, err := repo.GetTag(ctx, "year")
		require.NoError(t, err)
		assert.Equal(t, "Fiscal year", tag.Name)
		assert.True(t, tag.Mandatory)

		_, err = repo.GetTag(ctx, "missing")
		require.ErrorIs(t, err, ErrTagNotFound)
	})
}
