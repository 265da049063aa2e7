package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDForUpdate locks the product row for the remainder of the
	// surrounding transaction, serializing concurrent stock mutations
	// on the same product.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	ReferencedByInvoice(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, scope Scope, page, limit int, search string) ([]model.Product, int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	db := GetDB(ctx, r.db)
	// sqlite has no row locks; its writers serialize on the database
	// handle instead, so the clause is postgres-only.
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product model.Product
	if err := db.Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := GetDB(ctx, r.db).Model(&model.Product{}).Where("name = ?", name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productRepository) ReferencedByInvoice(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.InvoiceItem{}).
		Where("product_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productRepository) List(ctx context.Context, scope Scope, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	base := GetDB(ctx, r.db).Model(&model.Product{}).Scopes(scope)
	if search != "" {
		base = base.Where("name LIKE ?", "%"+search+"%")
	}
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := GetDB(ctx, r.db).Scopes(scope)
	if search != "" {
		fetch = fetch.Where("name LIKE ?", "%"+search+"%")
	}
	offset := (page - 1) * limit
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
