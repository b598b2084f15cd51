package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategory(t *testing.T) {
	s := createTestStore(t)

	cat, err := s.CreateCategory(context.Background(), "Person")
	require.NoError(t, err)

	assert.NotZero(t, cat.ID)
	assert.Equal(t, "Person", cat.Name)
	assert.Equal(t, "", cat.Description)
	assert.Equal(t, testEpoch, cat.CreatedAt)
	assert.Equal(t, testEpoch, cat.UpdatedAt)
}

func TestCreateCategory_DuplicateNameConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, "Person")
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, "Person")
	require.Error(t, err)
	assert.True(t, IsConflict(err), "expected conflict, got %v", err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Person", se.Name)

	assert.Equal(t, 1, countRows(t, s).Categories)
}

func TestCreateCategory_NormalizedNamesCollide(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// "é" precomposed vs "e" + combining acute accent.
	_, err := s.CreateCategory(ctx, "Caf\u00e9")
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, "Cafe\u0301")
	assert.True(t, IsConflict(err), "expected conflict, got %v", err)
}

func TestGetCategories_OrderedByName(t *testing.T) {
	s := createTestStore(t)
	for _, name := range []string{"Place", "Concept", "Item"} {
		mustCategory(t, s, name)
	}

	cats, err := s.GetCategories(context.Background(), 0, 0)
	require.NoError(t, err)

	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Concept", "Item", "Place"}, names)
}

func TestGetCategories_Paging(t *testing.T) {
	s := createTestStore(t)
	for _, name := range []string{"A", "B", "C", "D"} {
		mustCategory(t, s, name)
	}

	cats, err := s.GetCategories(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "B", cats[0].Name)
	assert.Equal(t, "C", cats[1].Name)
}

func TestGetCategories_EmptyReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)

	cats, err := s.GetCategories(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, cats)
	assert.Empty(t, cats)
}

func TestGetCategory_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetCategory(context.Background(), 42)
	assert.True(t, IsNotFound(err))
}

func TestGetArticlesInCategory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	person := mustCategory(t, s, "Person")
	place := mustCategory(t, s, "Place")
	mustArticle(t, s, "Zed", person.ID)
	mustArticle(t, s, "Ann", person.ID)
	mustArticle(t, s, "Town", place.ID)

	arts, err := s.GetArticlesInCategory(ctx, person.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "Ann", arts[0].Name)
	assert.Equal(t, "Zed", arts[1].Name)

	_, err = s.GetArticlesInCategory(ctx, 999, 0, 0)
	assert.True(t, IsNotFound(err))
}

func TestRenameCategory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	person := mustCategory(t, s, "Person")
	mustCategory(t, s, "Place")

	renamed, err := s.RenameCategory(ctx, person.ID, "Character")
	require.NoError(t, err)
	assert.Equal(t, "Character", renamed.Name)

	// Renaming to its own name is allowed.
	_, err = s.RenameCategory(ctx, person.ID, "Character")
	assert.NoError(t, err)

	_, err = s.RenameCategory(ctx, person.ID, "Place")
	assert.True(t, IsConflict(err))

	_, err = s.RenameCategory(ctx, 999, "Other")
	assert.True(t, IsNotFound(err))
}

func TestUpdateCategoryDescriptionImageIcon(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Person")

	updated, err := s.UpdateCategoryDescription(ctx, cat.ID, "People of the world")
	require.NoError(t, err)
	assert.Equal(t, "People of the world", updated.Description)

	require.NoError(t, s.UpdateCategoryImage(ctx, cat.ID, "person.png"))
	require.NoError(t, s.UpdateCategoryIcon(ctx, cat.ID, "user"))

	img, err := s.GetCategoryImage(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "person.png", img)

	got, err := s.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "user", got.Icon)

	assert.True(t, IsNotFound(s.UpdateCategoryImage(ctx, 999, "x.png")))
}

func TestDeleteCategory_CascadesWholeSubtree(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	person := mustCategory(t, s, "Person")
	place := mustCategory(t, s, "Place")
	mustField(t, s, person.ID, "Age")
	mustField(t, s, person.ID, "Gender")
	mustField(t, s, place.ID, "Climate")

	a := mustArticle(t, s, "A", person.ID)
	b := mustArticle(t, s, "B", person.ID)
	c := mustArticle(t, s, "C", person.ID)
	outsider := mustArticle(t, s, "Town", place.ID)

	mustConnection(t, s, a.ID, b.ID)
	mustConnection(t, s, outsider.ID, c.ID)

	_, err := s.CreateSnippet(ctx, a.ID, "notes")
	require.NoError(t, err)

	deleted, err := s.DeleteCategory(ctx, person.ID)
	require.NoError(t, err)
	assert.Equal(t, "Person", deleted.Name)

	counts := countRows(t, s)
	assert.Equal(t, 1, counts.Categories)
	assert.Equal(t, 1, counts.Fields)
	assert.Equal(t, 1, counts.Articles)
	// Only Town's value for Climate remains.
	assert.Equal(t, 1, counts.FieldValues)
	assert.Equal(t, 0, counts.Connections)
	assert.Equal(t, 0, counts.ConnectionDescriptions)
	assert.Equal(t, 0, counts.Snippets)

	conns, err := s.GetConnections(ctx, outsider.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, conns)

	_, err = s.GetCategory(ctx, person.ID)
	assert.True(t, IsNotFound(err))
}

func TestDeleteCategory_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.DeleteCategory(context.Background(), 7)
	assert.True(t, IsNotFound(err))
}

func TestDeleteCategory_ManyArticles(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Crowd")
	mustField(t, s, cat.ID, "Mood")

	first := mustArticle(t, s, "first", cat.ID)
	for i := 0; i < cascadeBatch+10; i++ {
		art := mustArticle(t, s, "member", cat.ID)
		if i%100 == 0 {
			mustConnection(t, s, first.ID, art.ID)
		}
	}

	_, err := s.DeleteCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, RowCounts{}, countRows(t, s))
}
