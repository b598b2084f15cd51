package store

import (
	"context"
	"database/sql"
)

// DefaultCategory is one of the starter Categories of a new World.
type DefaultCategory struct {
	Name        string
	Description string
	Fields      []string
}

// DefaultCategories are inserted into every newly created World.
var DefaultCategories = []DefaultCategory{
	{
		Name:        "Person",
		Description: "Living entities that occupy this world.",
		Fields:      []string{"Nicknames / Aliases", "Age", "Gender", "Short Bio"},
	},
	{
		Name:        "Group",
		Description: "People and other entities that have organized into a clan, team, etc.",
		Fields:      []string{"Mandate / Description", "History"},
	},
	{
		Name:        "Place",
		Description: "Locations and settings that make up this world.",
		Fields:      []string{"Description", "History"},
	},
	{
		Name:        "Item",
		Description: "Noteworthy objects that affect the lives of those who live in this world.",
		Fields:      []string{"Properties / Description", "History"},
	},
	{
		Name:        "Concept",
		Description: "Key ideas and theorems that drive the nature of this world.",
		Fields:      []string{"Description"},
	},
}

// InsertDefaultCategories creates the DefaultCategories and their Fields in
// one transaction.
//
// It is not idempotent: a second call fails with Conflict on "Person".
// Call it exactly once, right after creating an empty store.
func (s *Store) InsertDefaultCategories(ctx context.Context) error {
	return s.withTx(ctx, "insert default categories", func(tx *sql.Tx) error {
		for _, def := range DefaultCategories {
			cat, err := s.createCategoryTx(ctx, tx, def.Name, def.Description)
			if err != nil {
				return err
			}
			for _, field := range def.Fields {
				if _, err := s.createFieldTx(ctx, tx, cat.ID, field); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
