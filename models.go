package cms

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. The email doubles as the session token
// subject, so it is unique and never rewritten implicitly.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	IsActive      bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	IsSuperuser   bool       `bun:"is_superuser,notnull,default:false" json:"is_superuser"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsActiveAccount reports whether the account may pass the active guard.
func (u *User) IsActiveAccount() bool {
	return u != nil && u.IsActive
}

// IsSuperuserAccount reports whether the account passes the superuser
// guard. An inactive superuser is not authorized anywhere.
func (u *User) IsSuperuserAccount() bool {
	return u != nil && u.IsActive && u.IsSuperuser
}

// Product owns its translations, features and image references. The
// children are replaced or removed by explicit transactional statements
// in the repository, never by ORM graph cascade.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`
	ID            uuid.UUID             `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Translations  []*ProductTranslation `bun:"rel:has-many,join:id=product_id" json:"translations"`
	Features      []*ProductFeature     `bun:"rel:has-many,join:id=product_id" json:"features"`
	Images        []*ProductImage       `bun:"rel:has-many,join:id=product_id" json:"images"`
	CreatedAt     *time.Time            `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time            `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// TranslationFor returns the translation matching language, or nil.
func (p *Product) TranslationFor(language string) *ProductTranslation {
	for _, t := range p.Translations {
		if t.Language == language {
			return t
		}
	}
	return nil
}

// ProductTranslation holds the localized title and description for one
// language. One row per (product, language).
type ProductTranslation struct {
	bun.BaseModel `bun:"table:product_translations,alias:ptr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProductID     uuid.UUID `bun:"product_id,notnull,type:uuid,unique:product_language" json:"product_id,omitempty"`
	Language      string    `bun:"language,notnull,unique:product_language" json:"language"`
	Title         string    `bun:"title,notnull" json:"title"`
	Description   string    `bun:"description" json:"description"`
}

// ProductFeature is a named key/value attribute of a product.
type ProductFeature struct {
	bun.BaseModel `bun:"table:product_features,alias:pft"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProductID     uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id,omitempty"`
	Name          string    `bun:"feature_name,notnull" json:"feature_name"`
	Value         string    `bun:"feature_value" json:"feature_value"`
}

// ProductImage stores the shared relative path of one variant set
// (year/month/id.webp). Callers prepend the tier root when reading.
type ProductImage struct {
	bun.BaseModel `bun:"table:product_images,alias:pim"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProductID     uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id,omitempty"`
	Path          string    `bun:"image_path,notnull" json:"image_path"`
}
