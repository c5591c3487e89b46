package cms

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateSchema creates the tables for every model if they are missing.
// The child tables carry ON DELETE CASCADE foreign keys as a backstop
// to the explicit transactional deletes in the products repository.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create users table")
	}

	if _, err := db.NewCreateTable().
		Model((*Product)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create products table")
	}

	children := []struct {
		name  string
		model any
	}{
		{"product_translations", (*ProductTranslation)(nil)},
		{"product_features", (*ProductFeature)(nil)},
		{"product_images", (*ProductImage)(nil)},
	}

	for _, child := range children {
		q := db.NewCreateTable().
			Model(child.model).
			IfNotExists().
			ForeignKey(`("product_id") REFERENCES "products" ("id") ON DELETE CASCADE`)

		if _, err := q.Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "failed to create "+child.name+" table")
		}
	}

	return nil
}
