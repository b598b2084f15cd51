package fixture

import (
	"context"
	"fmt"

	"github.com/roach88/worldscribe/internal/store"
)

// Applied maps fixture names to the ids the store assigned.
type Applied struct {
	Categories  map[string]int64 `json:"categories"`
	Fields      map[string]int64 `json:"fields"` // "<category>/<field>"
	Articles    map[string]int64 `json:"articles"`
	Connections []int64          `json:"connections"`
}

// Apply builds w in st. Each store operation commits on its own, so a
// failure leaves the rows created before it in place; the returned Applied
// lists them.
func Apply(ctx context.Context, st *store.Store, w *World) (*Applied, error) {
	out := &Applied{
		Categories:  map[string]int64{},
		Fields:      map[string]int64{},
		Articles:    map[string]int64{},
		Connections: []int64{},
	}

	existing, err := st.GetCategories(ctx, 0, 0)
	if err != nil {
		return out, err
	}
	byName := make(map[string]store.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	for _, cat := range w.Categories {
		if err := applyCategory(ctx, st, cat, byName, out); err != nil {
			return out, fmt.Errorf("category %q: %w", cat.Name, err)
		}
	}

	for _, c := range w.Connections {
		conn, err := st.CreateConnection(ctx, out.Articles[c.Main], out.Articles[c.Other])
		if err != nil {
			return out, fmt.Errorf("connection %q -> %q: %w", c.Main, c.Other, err)
		}
		if c.MainRole != "" || c.OtherRole != "" || c.Description != "" {
			if _, err := st.UpdateConnection(ctx, conn.ID, c.MainRole, c.OtherRole, c.Description); err != nil {
				return out, fmt.Errorf("connection %q -> %q: %w", c.Main, c.Other, err)
			}
		}
		out.Connections = append(out.Connections, conn.ID)
	}
	return out, nil
}

func applyCategory(ctx context.Context, st *store.Store, cat Category, byName map[string]store.Category, out *Applied) error {
	current, ok := byName[cat.Name]
	if !ok {
		created, err := st.CreateCategory(ctx, cat.Name)
		if err != nil {
			return err
		}
		current = created
	}
	if cat.Description != "" && cat.Description != current.Description {
		if _, err := st.UpdateCategoryDescription(ctx, current.ID, cat.Description); err != nil {
			return err
		}
	}
	out.Categories[cat.Name] = current.ID

	fields, err := st.GetFieldsInCategory(ctx, current.ID, 0, 0)
	if err != nil {
		return err
	}
	fieldIDs := make(map[string]int64, len(fields))
	for _, f := range fields {
		fieldIDs[f.Name] = f.ID
	}
	for _, name := range cat.Fields {
		if _, ok := fieldIDs[name]; !ok {
			f, err := st.CreateField(ctx, current.ID, name)
			if err != nil {
				return err
			}
			fieldIDs[name] = f.ID
		}
		out.Fields[cat.Name+"/"+name] = fieldIDs[name]
	}

	for _, art := range cat.Articles {
		created, err := st.CreateArticle(ctx, art.Name, current.ID)
		if err != nil {
			return fmt.Errorf("article %q: %w", art.Name, err)
		}
		out.Articles[art.Name] = created.ID

		for field, value := range art.Values {
			if _, err := st.UpdateArticleField(ctx, created.ID, fieldIDs[field], value); err != nil {
				return fmt.Errorf("article %q field %q: %w", art.Name, field, err)
			}
		}
		for _, sn := range art.Snippets {
			s, err := st.CreateSnippet(ctx, created.ID, sn.Name)
			if err != nil {
				return fmt.Errorf("article %q: %w", art.Name, err)
			}
			if sn.Content != "" {
				if _, err := st.UpdateSnippet(ctx, s.ID, sn.Content); err != nil {
					return fmt.Errorf("article %q: %w", art.Name, err)
				}
			}
		}
	}
	return nil
}
