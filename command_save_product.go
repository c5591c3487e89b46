package cms

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TranslationInput is one localized title/description pair.
type TranslationInput struct {
	Language    string `json:"language"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FeatureInput is one named attribute of a product.
type FeatureInput struct {
	Name  string `json:"feature_name"`
	Value string `json:"feature_value"`
}

// SaveProductMessage carries the full desired state of a product. On
// updates the translations and features replace the stored ones while
// ImagePaths only ever append.
type SaveProductMessage struct {
	ProductID    uuid.UUID          `json:"-"`
	Translations []TranslationInput `json:"translations"`
	Features     []FeatureInput     `json:"features"`
	ImagePaths   []string           `json:"-"`
}

func (e SaveProductMessage) Type() string { return "product.save" }

func (e SaveProductMessage) toModel() *Product {
	record := &Product{ID: e.ProductID}
	for _, t := range e.Translations {
		record.Translations = append(record.Translations, &ProductTranslation{
			Language:    t.Language,
			Title:       t.Title,
			Description: t.Description,
		})
	}
	for _, f := range e.Features {
		record.Features = append(record.Features, &ProductFeature{
			Name:  f.Name,
			Value: f.Value,
		})
	}
	return record
}

type SaveProductHandler struct {
	repo RepositoryManager
}

func NewSaveProductHandler(repo RepositoryManager) *SaveProductHandler {
	return &SaveProductHandler{repo: repo}
}

// Create persists a new product with its children and image references
// in a single transaction.
func (h *SaveProductHandler) Create(ctx context.Context, event SaveProductMessage) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var created *Product
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Products().CreateTx(ctx, tx, event.toModel())
		if err != nil {
			return err
		}

		if err := h.repo.Products().AppendImagesTx(ctx, tx, record.ID, event.ImagePaths); err != nil {
			return err
		}

		created, err = h.repo.Products().GetTx(ctx, tx, record.ID)
		return err
	})

	if err != nil {
		return nil, wrapProductErr(err, "product create transaction failed")
	}

	return created, nil
}

// Update replaces the translations and features of an existing product
// and appends any newly uploaded image references.
func (h *SaveProductHandler) Update(ctx context.Context, event SaveProductMessage) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var updated *Product
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Products().GetTx(ctx, tx, event.ProductID); err != nil {
			return err
		}

		if err := h.repo.Products().ReplaceChildrenTx(ctx, tx, event.toModel()); err != nil {
			return err
		}

		if err := h.repo.Products().AppendImagesTx(ctx, tx, event.ProductID, event.ImagePaths); err != nil {
			return err
		}

		var err error
		updated, err = h.repo.Products().GetTx(ctx, tx, event.ProductID)
		return err
	})

	if err != nil {
		return nil, wrapProductErr(err, "product update transaction failed")
	}

	return updated, nil
}

// Delete removes a product and its children inside one transaction. The
// image files on disk are left in place.
func (h *SaveProductHandler) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Products().DeleteTx(ctx, tx, id)
	})

	if err != nil {
		return wrapProductErr(err, "product delete transaction failed")
	}

	return nil
}

func wrapProductErr(err error, msg string) error {
	if goerrors.IsNotFound(err) {
		return ErrProductNotFound
	}

	if IsUniqueViolation(err) {
		return ErrDuplicateLanguage
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
