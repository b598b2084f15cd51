package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertDefaultCategories(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertDefaultCategories(ctx))

	cats, err := s.GetCategories(ctx, 0, 0)
	require.NoError(t, err)

	var b strings.Builder
	for _, cat := range cats {
		fmt.Fprintf(&b, "%s: %s\n", cat.Name, cat.Description)
		fields, err := s.GetFieldsInCategory(ctx, cat.ID, 0, 0)
		require.NoError(t, err)
		for _, f := range fields {
			fmt.Fprintf(&b, "  - %s\n", f.Name)
		}
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_categories", []byte(b.String()))

	counts := countRows(t, s)
	assert.Equal(t, 5, counts.Categories)
	assert.Equal(t, 11, counts.Fields)
	assert.Equal(t, 0, counts.Articles)
}

func TestInsertDefaultCategories_NotIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertDefaultCategories(ctx))

	err := s.InsertDefaultCategories(ctx)
	assert.True(t, IsConflict(err))
	assert.Equal(t, 5, countRows(t, s).Categories, "failed seed rolls back entirely")
}
