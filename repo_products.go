package cms

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Products interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	GetTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Product) (*Product, error)
	ReplaceChildrenTx(ctx context.Context, tx bun.IDB, record *Product) error
	AppendImagesTx(ctx context.Context, tx bun.IDB, productID uuid.UUID, paths []string) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type products struct {
	db *bun.DB
}

var _ Products = (*products)(nil)

func NewProductsRepository(db *bun.DB) Products {
	return &products{db: db}
}

func (p *products) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return p.GetTx(ctx, p.db, id)
}

func (p *products) GetTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Product, error) {
	record := &Product{}
	err := tx.NewSelect().
		Model(record).
		Relation("Translations").
		Relation("Features").
		Relation("Images").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (p *products) List(ctx context.Context) ([]*Product, error) {
	var records []*Product
	err := p.db.NewSelect().
		Model(&records).
		Relation("Translations").
		Relation("Features").
		Relation("Images").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (p *products) CreateTx(ctx context.Context, tx bun.IDB, record *Product) (*Product, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	if err := p.insertChildrenTx(ctx, tx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// ReplaceChildrenTx deletes and re-inserts the translations and
// features of record. Images are not touched here: updates append new
// uploads and never drop existing references.
func (p *products) ReplaceChildrenTx(ctx context.Context, tx bun.IDB, record *Product) error {
	if _, err := tx.NewDelete().
		Model((*ProductTranslation)(nil)).
		Where("?TableAlias.product_id = ?", record.ID).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := tx.NewDelete().
		Model((*ProductFeature)(nil)).
		Where("?TableAlias.product_id = ?", record.ID).
		Exec(ctx); err != nil {
		return err
	}

	return p.insertChildrenTx(ctx, tx, record)
}

func (p *products) insertChildrenTx(ctx context.Context, tx bun.IDB, record *Product) error {
	for _, t := range record.Translations {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.ProductID = record.ID
	}
	if len(record.Translations) > 0 {
		if _, err := tx.NewInsert().Model(&record.Translations).Exec(ctx); err != nil {
			return err
		}
	}

	for _, f := range record.Features {
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		f.ProductID = record.ID
	}
	if len(record.Features) > 0 {
		if _, err := tx.NewInsert().Model(&record.Features).Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (p *products) AppendImagesTx(ctx context.Context, tx bun.IDB, productID uuid.UUID, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	images := make([]*ProductImage, 0, len(paths))
	for _, path := range paths {
		images = append(images, &ProductImage{
			ID:        uuid.New(),
			ProductID: productID,
			Path:      path,
		})
	}

	_, err := tx.NewInsert().Model(&images).Exec(ctx)
	return err
}

// DeleteTx removes a product and all of its children in one
// transaction, children first. The FK ON DELETE CASCADE in the schema
// is a backstop; the deletes here are the authoritative path.
func (p *products) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	for _, model := range []any{
		(*ProductTranslation)(nil),
		(*ProductFeature)(nil),
		(*ProductImage)(nil),
	} {
		if _, err := tx.NewDelete().
			Model(model).
			Where("?TableAlias.product_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
	}

	res, err := tx.NewDelete().
		Model((*Product)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}
